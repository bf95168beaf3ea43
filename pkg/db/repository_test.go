package db

import (
	"path/filepath"
	"testing"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "fetches.db"))
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)

	f := &Fetch{
		Path:         "/images/photo.png.webp",
		Image:        "photo",
		ObjectKey:    "images/photo.png",
		Source:       "s3",
		OutputFormat: "webp",
		Status:       StatusPending,
	}

	if err := repo.Create(f); err != nil {
		t.Fatalf("failed to create fetch: %v", err)
	}
	if f.ID == 0 {
		t.Error("expected ID to be assigned")
	}

	retrieved, err := repo.GetByPath("/images/photo.png.webp")
	if err != nil {
		t.Fatalf("failed to get fetch: %v", err)
	}

	if retrieved.Image != f.Image || retrieved.ObjectKey != f.ObjectKey || retrieved.OutputFormat != "webp" {
		t.Errorf("retrieved fetch mismatch: got %+v, want %+v", retrieved, f)
	}

	missing, err := repo.GetByPath("/nope.png")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for missing path, got %+v, %v", missing, err)
	}
}

func TestRepository_UpdateStatus(t *testing.T) {
	repo := newTestRepository(t)

	f := &Fetch{Path: "/a.png", Image: "a", ObjectKey: "a.png", Status: StatusPending}
	if err := repo.Create(f); err != nil {
		t.Fatalf("failed to create fetch: %v", err)
	}

	if err := repo.UpdateStatus(f.ID, StatusFailed, "a.png: object not found"); err != nil {
		t.Fatalf("failed to update status: %v", err)
	}

	updated, _ := repo.GetByPath("/a.png")
	if updated.Status != StatusFailed || updated.ErrorMessage != "a.png: object not found" {
		t.Errorf("status not updated: got %+v", updated)
	}
}

func TestRepository_UpdateAndDelete(t *testing.T) {
	repo := newTestRepository(t)

	f := &Fetch{Path: "/a.png", Image: "a", ObjectKey: "a.png", Status: StatusFetching}
	repo.Create(f)

	f.Format = "png"
	f.OriginalSize = 2048
	f.LocalPath = "/tmp/a.png"
	f.Status = StatusReady
	if err := repo.Update(f); err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	got, _ := repo.GetByPath("/a.png")
	if got.Format != "png" || got.OriginalSize != 2048 || got.LocalPath != "/tmp/a.png" || got.Status != StatusReady {
		t.Errorf("update not persisted: %+v", got)
	}

	if err := repo.Update(&Fetch{ID: 999, Status: StatusReady}); err == nil {
		t.Error("expected error updating unknown id")
	}

	if err := repo.Delete(f.ID); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}
	if got, _ := repo.GetByPath("/a.png"); got != nil {
		t.Error("fetch should be deleted")
	}
}

func TestRepository_List(t *testing.T) {
	repo := newTestRepository(t)

	repo.Create(&Fetch{Path: "/one.png", Image: "one", ObjectKey: "one.png", Status: StatusReady})
	repo.Create(&Fetch{Path: "/two.png", Image: "two", ObjectKey: "two.png", Status: StatusFailed})

	fetches, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list fetches: %v", err)
	}

	if len(fetches) != 2 {
		t.Fatalf("expected 2 fetches, got %d", len(fetches))
	}
	if fetches[0].Path != "/two.png" {
		t.Errorf("expected newest first, got %s", fetches[0].Path)
	}
}
