package commands

import (
	"fmt"

	"github.com/fly-io/imgdispatch/internal/config"
	"github.com/fly-io/imgdispatch/pkg/db"
	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List prefetched paths and their status",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	if err := ensureDirectories(cfg.SQLitePath, "", ""); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	fetches, err := repo.List()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	if len(fetches) == 0 {
		fmt.Println("No fetches found")
		return nil
	}

	fmt.Printf("%-40s %-10s %-8s %-6s %-10s %s\n", "PATH", "STATUS", "SOURCE", "FORMAT", "SIZE", "ERROR")
	fmt.Println("----------------------------------------------------------------------------------------------------")

	for _, f := range fetches {
		size := "-"
		if f.OriginalSize > 0 {
			size = fmt.Sprintf("%d", f.OriginalSize)
		}
		fmt.Printf("%-40s %-10s %-8s %-6s %-10s %s\n",
			f.Path, f.Status, dash(f.Source), dash(f.Format), size, dash(f.ErrorMessage))
	}

	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
