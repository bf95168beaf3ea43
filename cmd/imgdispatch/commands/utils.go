package commands

import (
	"os"
	"path/filepath"

	"github.com/fly-io/imgdispatch/internal/config"
	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/spf13/cobra"
)

// ensureDirectories creates all necessary directories for the application
func ensureDirectories(sqlitePath, fsmDBPath, workDir string) error {
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
		return errors.Wrap(err, "failed to create database directory")
	}

	// Only the prefetch workflow needs these
	if fsmDBPath != "" {
		if err := os.MkdirAll(fsmDBPath, 0755); err != nil {
			return errors.Wrap(err, "failed to create FSM directory")
		}
	}
	if workDir != "" {
		if err := os.MkdirAll(filepath.Join(workDir, "downloads"), 0755); err != nil {
			return errors.Wrap(err, "failed to create work directory")
		}
	}

	return nil
}

// loadConfig loads and validates configuration for a command
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	applyExpiryFlag(cmd)

	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config invalid")
	}
	return cfg, nil
}
