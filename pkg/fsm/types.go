package fsm

// PrefetchRequest is the FSM input
type PrefetchRequest struct {
	Path string
}

// PrefetchResponse is the FSM output (accumulated across transitions)
type PrefetchResponse struct {
	// From CheckDB
	FetchID int64

	// From Fetch
	Image        string
	ObjectKey    string
	Source       string
	Format       string
	OutputFormat string
	SHA256       string
	OriginalSize int64
	LocalPath    string

	// From Complete/Failed
	Status       string
	ErrorMessage string
}

// State names
const (
	StateCheckDB  = "check_db"
	StateFetch    = "fetch"
	StateComplete = "complete"
	StateFailed   = "failed"
)
