package db

// Schema defines the SQLite schema for the prefetch ledger.
// Each row is one request path that was resolved and fetched ahead of time.
const Schema = `
CREATE TABLE IF NOT EXISTS fetches (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    image TEXT NOT NULL,
    object_key TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT '',
    format TEXT NOT NULL DEFAULT '',
    output_format TEXT NOT NULL DEFAULT '',
    sha256 TEXT NOT NULL DEFAULT '',
    original_size INTEGER NOT NULL DEFAULT 0,
    local_path TEXT,
    status TEXT NOT NULL CHECK(status IN ('pending', 'fetching', 'ready', 'failed', 'cleaned')),
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_fetches_path ON fetches(path);
CREATE INDEX IF NOT EXISTS idx_fetches_status ON fetches(status);
CREATE INDEX IF NOT EXISTS idx_fetches_created_at ON fetches(created_at);
`

// Status constants
const (
	StatusPending  = "pending"
	StatusFetching = "fetching"
	StatusReady    = "ready"
	StatusFailed   = "failed"
	StatusCleaned  = "cleaned"
)

// Fetch is one prefetched request path
type Fetch struct {
	ID           int64
	Path         string
	Image        string
	ObjectKey    string
	Source       string
	Format       string
	OutputFormat string
	SHA256       string
	OriginalSize int64
	LocalPath    string
	Status       string
	ErrorMessage string
	CreatedAt    string
	UpdatedAt    string
}
