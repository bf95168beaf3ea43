package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/fly-io/imgdispatch/pkg/metrics"
	"github.com/fly-io/imgdispatch/pkg/server"
	"github.com/fly-io/imgdispatch/pkg/sources"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve image requests over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen-addr", ":3001", "HTTP listen address")
	viper.BindPFlag("listen-addr", serveCmd.Flags().Lookup("listen-addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	observer, err := metrics.NewPrometheusObserver("imgdispatch", reg)
	if err != nil {
		return errors.Wrap(err, "metrics init failed")
	}

	resolver, err := sources.NewFromConfig(ctx, cfg, observer)
	if err != nil {
		return errors.Wrap(err, "resolver init failed")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(resolver, cfg.ImageExpiry, reg)
	return srv.Run(ctx, cfg.ListenAddr)
}
