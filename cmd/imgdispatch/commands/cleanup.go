package commands

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fly-io/imgdispatch/internal/config"
	"github.com/fly-io/imgdispatch/pkg/db"
	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	cleanupAll      bool
	cleanupPath     string
	cleanupOrphaned bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove prefetched payloads",
	Long: `Clean up prefetched payloads:
  --all              Clean every recorded fetch
  --path <request>   Clean one recorded fetch
  --orphaned         Remove downloads the ledger does not know about`,
	RunE: runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVar(&cleanupAll, "all", false, "Clean all fetches")
	cleanupCmd.Flags().StringVar(&cleanupPath, "path", "", "Clean a specific request path")
	cleanupCmd.Flags().BoolVar(&cleanupOrphaned, "orphaned", false, "Clean orphaned downloads")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	switch {
	case cleanupAll:
		return cleanupAllFetches(repo)
	case cleanupPath != "":
		return cleanupSpecificFetch(repo, cleanupPath)
	case cleanupOrphaned:
		n, err := cleanupOrphanedDownloads(repo, cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d orphaned downloads\n", n)
		return nil
	default:
		return fmt.Errorf("must specify --all, --path, or --orphaned")
	}
}

func cleanupAllFetches(repo *db.Repository) error {
	fetches, err := repo.List()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	fmt.Printf("Cleaning up %d fetches...\n", len(fetches))

	for _, f := range fetches {
		if err := cleanupFetch(repo, f); err != nil {
			fmt.Printf("Failed to clean %s: %v\n", f.Path, err)
		} else {
			fmt.Printf("Cleaned: %s\n", f.Path)
		}
	}

	return nil
}

func cleanupSpecificFetch(repo *db.Repository, path string) error {
	f, err := repo.GetByPath(path)
	if err != nil {
		return errors.Wrap(err, "lookup failed")
	}
	if f == nil {
		return fmt.Errorf("no fetch recorded for %s", path)
	}

	if err := cleanupFetch(repo, f); err != nil {
		return errors.Wrap(err, "cleanup failed")
	}

	fmt.Printf("Cleaned: %s\n", path)
	return nil
}

// cleanupFetch removes the payload on disk and marks the record cleaned
func cleanupFetch(repo *db.Repository, f *db.Fetch) error {
	if f.LocalPath != "" {
		if err := os.Remove(f.LocalPath); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "failed to remove download")
		}
	}

	f.LocalPath = ""
	f.Status = db.StatusCleaned
	if err := repo.Update(f); err != nil {
		return errors.Wrap(err, "failed to update database")
	}
	return nil
}

// cleanupOrphanedDownloads removes files under the downloads directory that
// no ledger record points at
func cleanupOrphanedDownloads(repo *db.Repository, cfg *config.Config) (int, error) {
	fetches, err := repo.List()
	if err != nil {
		return 0, errors.Wrap(err, "list failed")
	}
	known := make(map[string]bool, len(fetches))
	for _, f := range fetches {
		if f.LocalPath != "" {
			known[filepath.Clean(f.LocalPath)] = true
		}
	}

	removed := 0
	root := filepath.Join(cfg.WorkDir, "downloads")
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || known[filepath.Clean(path)] {
			return nil
		}
		if err := os.Remove(path); err != nil {
			fmt.Printf("Failed to remove orphaned download %s: %v\n", path, err)
			return nil
		}
		removed++
		return nil
	})
	if err != nil {
		return removed, errors.Wrap(err, "failed to scan downloads")
	}
	return removed, nil
}
