package fsm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fly-io/imgdispatch/pkg/db"
	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/fly-io/imgdispatch/pkg/image"
	"github.com/fly-io/imgdispatch/pkg/security"
	"github.com/superfly/fsm"
)

// Ledger is the subset of *db.Repository the workflow needs
type Ledger interface {
	GetByPath(path string) (*db.Fetch, error)
	Create(f *db.Fetch) error
	Update(f *db.Fetch) error
	UpdateStatus(id int64, status, errorMessage string) error
}

// Resolver picks the source for a request. *sources.Resolver implements it.
type Resolver interface {
	image.Resolver
	Describe(img *image.Image) (source string, external, excluded bool)
}

// Machine holds dependencies for FSM transitions
type Machine struct {
	repo       Ledger
	resolver   Resolver
	validator  *security.Validator
	workDir    string
	expiry     time.Duration
	maxRetries int
}

// NewMachine creates a new FSM machine with dependencies
func NewMachine(
	repo Ledger,
	resolver Resolver,
	validator *security.Validator,
	workDir string,
	expiry time.Duration,
	maxRetries int,
) *Machine {
	return &Machine{
		repo:       repo,
		resolver:   resolver,
		validator:  validator,
		workDir:    workDir,
		expiry:     expiry,
		maxRetries: maxRetries,
	}
}

func (m *Machine) checkRetries(ctx context.Context, path string) error {
	if retryCount := fsm.RetryFromContext(ctx); retryCount >= uint64(m.maxRetries) {
		slog.Error("max_retries_exceeded", "path", path, "max_retries", m.maxRetries)
		return fsm.Abort(fmt.Errorf("max retries (%d) exceeded", m.maxRetries))
	}
	return nil
}

// handleCheckDB checks if the path was already prefetched (idempotency)
func (m *Machine) handleCheckDB(ctx context.Context, req *fsm.Request[PrefetchRequest, PrefetchResponse]) (*fsm.Response[PrefetchResponse], error) {
	slog.Info("fsm_state_check_db", "path", req.Msg.Path)

	if err := m.checkRetries(ctx, req.Msg.Path); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		resp = &PrefetchResponse{}
	}
	if err := m.checkDB(req.Msg.Path, resp); err != nil {
		return nil, err
	}
	return fsm.NewResponse(resp), nil
}

func (m *Machine) checkDB(path string, resp *PrefetchResponse) error {
	f, err := m.repo.GetByPath(path)
	if err != nil {
		slog.Error("database_check_failed", "path", path, "error", err)
		return fsm.Abort(errors.Wrap(err, "database error"))
	}

	if f != nil {
		resp.FetchID = f.ID
		resp.Status = f.Status
		if f.Status == db.StatusReady {
			slog.Info("fetch_already_ready", "path", path, "fetch_id", f.ID)
			resp.Image = f.Image
			resp.ObjectKey = f.ObjectKey
			resp.Source = f.Source
			resp.Format = f.Format
			resp.OutputFormat = f.OutputFormat
			resp.SHA256 = f.SHA256
			resp.OriginalSize = f.OriginalSize
			resp.LocalPath = f.LocalPath
			return nil
		}
		slog.Info("fetch_found_continue_processing", "path", path, "fetch_id", f.ID, "status", f.Status)
		return nil
	}

	// Create new pending record
	f = &db.Fetch{Path: path, Status: db.StatusPending}
	if img, err := image.New(path, m.expiry); err == nil {
		f.Image = img.Image()
		f.ObjectKey = img.Key()
	}
	if err := m.repo.Create(f); err != nil {
		slog.Error("create_fetch_failed", "path", path, "error", err)
		return errors.Wrap(err, "failed to create fetch record")
	}
	resp.FetchID = f.ID
	resp.Status = f.Status
	slog.Info("fetch_created", "path", path, "fetch_id", f.ID)
	return nil
}

// handleFetch resolves the source and drains its stream to disk
func (m *Machine) handleFetch(ctx context.Context, req *fsm.Request[PrefetchRequest, PrefetchResponse]) (*fsm.Response[PrefetchResponse], error) {
	slog.Info("fsm_state_fetch", "path", req.Msg.Path)

	if err := m.checkRetries(ctx, req.Msg.Path); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if err := m.fetch(ctx, req.Msg.Path, resp); err != nil {
		return nil, err
	}
	return fsm.NewResponse(resp), nil
}

func (m *Machine) fetch(ctx context.Context, path string, resp *PrefetchResponse) error {
	if resp.Status == db.StatusReady {
		slog.Info("fetch_skipped", "path", path, "reason", "already_ready")
		return nil
	}

	img, err := image.New(path, m.expiry)
	if err != nil {
		m.repo.UpdateStatus(resp.FetchID, db.StatusFailed, err.Error())
		return fsm.Abort(err)
	}

	if err := m.repo.UpdateStatus(resp.FetchID, db.StatusFetching, ""); err != nil {
		slog.Error("status_update_failed", "fetch_id", resp.FetchID, "status", db.StatusFetching, "error", err)
		return errors.Wrap(err, "failed to update status")
	}

	source, _, _ := m.resolver.Describe(img)
	image.Drain(ctx, img.GetFile(m.resolver))
	defer img.Log().Flush(slog.Default(), "path", path)

	resp.Image = img.Image()
	resp.ObjectKey = img.Key()
	resp.Source = source
	resp.OutputFormat = img.OutputFormat()
	resp.Format = img.Format()

	if img.IsError() {
		slog.Error("fetch_failed", "path", path, "source", source, "error", img.Err())
		resp.Status = db.StatusFailed
		resp.ErrorMessage = img.Err().Error()
		m.repo.UpdateStatus(resp.FetchID, db.StatusFailed, resp.ErrorMessage)
		return fsm.Abort(img.Err())
	}
	if !img.IsBuffer() {
		err := fmt.Errorf("source %s produced no payload", source)
		slog.Error("fetch_failed", "path", path, "source", source, "error", err)
		resp.Status = db.StatusFailed
		resp.ErrorMessage = err.Error()
		m.repo.UpdateStatus(resp.FetchID, db.StatusFailed, resp.ErrorMessage)
		return fsm.Abort(err)
	}

	if err := m.validator.ValidateKey(img.Key()); err != nil {
		m.repo.UpdateStatus(resp.FetchID, db.StatusFailed, err.Error())
		return fsm.Abort(err)
	}

	localPath := filepath.Join(m.workDir, "downloads", filepath.FromSlash(img.Key()))
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		slog.Error("download_dir_creation_failed", "path", localPath, "error", err)
		return errors.Wrap(err, "failed to create download dir")
	}
	if err := os.WriteFile(localPath, img.Contents(), 0644); err != nil {
		slog.Error("download_write_failed", "path", localPath, "error", err)
		return errors.Wrap(err, "failed to write download")
	}

	sum := sha256.Sum256(img.Contents())
	resp.SHA256 = hex.EncodeToString(sum[:])
	resp.OriginalSize = img.OriginalContentLength()
	resp.LocalPath = localPath

	slog.Info("fetch_complete",
		"path", path,
		"source", source,
		"format", resp.Format,
		"size", resp.OriginalSize,
		"local_path", localPath,
		"sha256", resp.SHA256[:16]+"...",
	)

	if err := m.repo.Update(&db.Fetch{
		ID:           resp.FetchID,
		Path:         path,
		Image:        resp.Image,
		ObjectKey:    resp.ObjectKey,
		Source:       resp.Source,
		Format:       resp.Format,
		OutputFormat: resp.OutputFormat,
		SHA256:       resp.SHA256,
		OriginalSize: resp.OriginalSize,
		LocalPath:    resp.LocalPath,
		Status:       db.StatusFetching,
	}); err != nil {
		slog.Error("fetch_update_failed", "fetch_id", resp.FetchID, "error", err)
		return errors.Wrap(err, "failed to update fetch")
	}
	return nil
}

// handleComplete marks the prefetch as ready
func (m *Machine) handleComplete(ctx context.Context, req *fsm.Request[PrefetchRequest, PrefetchResponse]) (*fsm.Response[PrefetchResponse], error) {
	slog.Info("fsm_state_complete", "path", req.Msg.Path)

	if err := m.checkRetries(ctx, req.Msg.Path); err != nil {
		return nil, err
	}

	resp := req.W.Msg
	if resp == nil {
		return nil, fsm.Abort(fmt.Errorf("response not initialized"))
	}
	if err := m.complete(req.Msg.Path, resp); err != nil {
		return nil, err
	}
	return fsm.NewResponse(resp), nil
}

func (m *Machine) complete(path string, resp *PrefetchResponse) error {
	if err := m.repo.UpdateStatus(resp.FetchID, db.StatusReady, ""); err != nil {
		slog.Error("status_update_failed", "fetch_id", resp.FetchID, "error", err)
		return errors.Wrap(err, "failed to update status")
	}
	resp.Status = db.StatusReady

	slog.Info("fsm_complete", "path", path, "status", db.StatusReady)
	return nil
}
