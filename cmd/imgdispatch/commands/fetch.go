package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/fly-io/imgdispatch/pkg/db"
	"github.com/fly-io/imgdispatch/pkg/errors"
	appfsm "github.com/fly-io/imgdispatch/pkg/fsm"
	"github.com/fly-io/imgdispatch/pkg/metrics"
	"github.com/fly-io/imgdispatch/pkg/security"
	"github.com/fly-io/imgdispatch/pkg/sources"
	"github.com/spf13/cobra"
	"github.com/superfly/fsm"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <request-path>",
	Short: "Resolve a request path, fetch its payload, and record it in the ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := ensureDirectories(cfg.SQLitePath, cfg.FSMDBPath, cfg.WorkDir); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "db init failed")
	}
	defer repo.Close()

	resolver, err := sources.NewFromConfig(ctx, cfg, metrics.Nop{})
	if err != nil {
		return errors.Wrap(err, "resolver init failed")
	}

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	validator := security.NewValidator(cfg.MaxFileSize)
	machine := appfsm.NewMachine(repo, resolver, validator, cfg.WorkDir, cfg.ImageExpiry, cfg.FSMMaxRetries)
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return errors.Wrap(err, "FSM register failed")
	}

	req := &appfsm.PrefetchRequest{Path: path}
	resp := &appfsm.PrefetchResponse{}

	version, err := start(ctx, path, fsm.NewRequest(req, resp))
	if err != nil {
		return errors.Wrap(err, "FSM start failed")
	}

	slog.Info("fsm started", "version", version)

	if err := manager.Wait(ctx, version); err != nil {
		return errors.Wrap(err, "FSM execution failed")
	}

	slog.Info("fetch completed",
		"status", resp.Status,
		"source", resp.Source,
		"format", resp.Format,
		"local_path", resp.LocalPath)

	return nil
}
