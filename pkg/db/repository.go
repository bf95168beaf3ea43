package db

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fly-io/imgdispatch/pkg/errors"
	_ "modernc.org/sqlite"
)

const fetchColumns = `id, path, image, object_key, source, format, output_format, sha256,
	original_size, local_path, status, error_message, created_at, updated_at`

// Repository provides database operations for the prefetch ledger
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository
func NewRepository(dbPath string) (*Repository, error) {
	slog.Info("database_init", "db_path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		slog.Error("database_open_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to open database")
	}

	// Create schema
	slog.Info("database_create_schema", "db_path", dbPath)
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		slog.Error("database_schema_failed", "db_path", dbPath, "error", err)
		return nil, errors.Wrap(err, "failed to create schema")
	}

	slog.Info("database_ready", "db_path", dbPath)
	return &Repository{db: db}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new fetch record
func (r *Repository) Create(f *Fetch) error {
	slog.Info("database_create_fetch", "path", f.Path, "status", f.Status)

	query := `
		INSERT INTO fetches (path, image, object_key, source, format, output_format, sha256,
		                     original_size, local_path, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.Exec(query,
		f.Path, f.Image, f.ObjectKey, f.Source, f.Format, f.OutputFormat, f.SHA256,
		f.OriginalSize, f.LocalPath, f.Status, f.ErrorMessage)
	if err != nil {
		slog.Error("database_insert_failed", "path", f.Path, "error", err)
		return errors.Wrap(err, "failed to insert fetch")
	}

	id, err := result.LastInsertId()
	if err != nil {
		slog.Error("database_last_insert_id_failed", "path", f.Path, "error", err)
		return errors.Wrap(err, "failed to get last insert id")
	}
	f.ID = id

	slog.Info("database_fetch_created", "path", f.Path, "fetch_id", f.ID, "status", f.Status)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFetch(row scanner) (*Fetch, error) {
	var f Fetch
	var localPath, errorMessage sql.NullString

	err := row.Scan(
		&f.ID, &f.Path, &f.Image, &f.ObjectKey, &f.Source, &f.Format, &f.OutputFormat, &f.SHA256,
		&f.OriginalSize, &localPath, &f.Status, &errorMessage, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}

	// Handle nullable fields
	f.LocalPath = localPath.String
	f.ErrorMessage = errorMessage.String
	return &f, nil
}

// GetByPath retrieves a fetch by request path. It returns nil, nil when the
// path has not been fetched.
func (r *Repository) GetByPath(path string) (*Fetch, error) {
	slog.Info("database_query_fetch", "path", path)

	f, err := scanFetch(r.db.QueryRow(`SELECT `+fetchColumns+` FROM fetches WHERE path = ?`, path))
	if err == sql.ErrNoRows {
		slog.Info("database_fetch_not_found", "path", path)
		return nil, nil // Not found
	}
	if err != nil {
		slog.Error("database_query_failed", "path", path, "error", err)
		return nil, errors.Wrap(err, "failed to query fetch")
	}

	slog.Info("database_fetch_found", "path", path, "fetch_id", f.ID, "status", f.Status)
	return f, nil
}

// Update updates an existing fetch record
func (r *Repository) Update(f *Fetch) error {
	slog.Info("database_update_fetch", "fetch_id", f.ID, "path", f.Path, "status", f.Status)

	query := `
		UPDATE fetches
		SET image = ?, object_key = ?, source = ?, format = ?, output_format = ?, sha256 = ?,
		    original_size = ?, local_path = ?, status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	result, err := r.db.Exec(query,
		f.Image, f.ObjectKey, f.Source, f.Format, f.OutputFormat, f.SHA256,
		f.OriginalSize, f.LocalPath, f.Status, f.ErrorMessage, f.ID)
	if err != nil {
		slog.Error("database_update_failed", "fetch_id", f.ID, "path", f.Path, "error", err)
		return errors.Wrap(err, "failed to update fetch")
	}

	rows, err := result.RowsAffected()
	if err != nil {
		slog.Error("database_rows_affected_failed", "fetch_id", f.ID, "error", err)
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		slog.Error("database_fetch_not_found_for_update", "fetch_id", f.ID)
		return fmt.Errorf("fetch not found: id=%d", f.ID)
	}

	slog.Info("database_fetch_updated", "fetch_id", f.ID, "path", f.Path, "status", f.Status)
	return nil
}

// UpdateStatus updates only the status field
func (r *Repository) UpdateStatus(id int64, status, errorMessage string) error {
	slog.Info("database_update_status", "fetch_id", id, "status", status)

	query := `UPDATE fetches SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := r.db.Exec(query, status, errorMessage, id)
	if err != nil {
		slog.Error("database_status_update_failed", "fetch_id", id, "status", status, "error", err)
		return errors.Wrap(err, "failed to update status")
	}

	slog.Info("database_status_updated", "fetch_id", id, "status", status)
	return nil
}

// List retrieves all fetches, newest first
func (r *Repository) List() ([]*Fetch, error) {
	slog.Info("database_list_fetches")

	rows, err := r.db.Query(`SELECT ` + fetchColumns + ` FROM fetches ORDER BY created_at DESC, id DESC`)
	if err != nil {
		slog.Error("database_list_query_failed", "error", err)
		return nil, errors.Wrap(err, "failed to list fetches")
	}
	defer rows.Close()

	var fetches []*Fetch
	for rows.Next() {
		f, err := scanFetch(rows)
		if err != nil {
			slog.Error("database_scan_row_failed", "error", err)
			return nil, errors.Wrap(err, "failed to scan row")
		}
		fetches = append(fetches, f)
	}

	if err := rows.Err(); err != nil {
		slog.Error("database_rows_error", "error", err)
		return nil, errors.Wrap(err, "rows error")
	}

	slog.Info("database_list_complete", "fetch_count", len(fetches))
	return fetches, nil
}

// Delete deletes a fetch by ID
func (r *Repository) Delete(id int64) error {
	slog.Info("database_delete_fetch", "fetch_id", id)

	_, err := r.db.Exec(`DELETE FROM fetches WHERE id = ?`, id)
	if err != nil {
		slog.Error("database_delete_failed", "fetch_id", id, "error", err)
		return errors.Wrap(err, "failed to delete fetch")
	}

	slog.Info("database_fetch_deleted", "fetch_id", id)
	return nil
}
