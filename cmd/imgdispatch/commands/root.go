package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "imgdispatch",
	Short: "Image request resolution and source dispatch",
	Long:  `Parses image request paths, selects the source that owns them, and fetches and validates the payload.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("default-source", "s3", "Source used when a request names none")
	flags.String("exclude-sources", "", "Comma separated list of sources to refuse")
	flags.Duration("image-expiry", 0, "Cache lifetime for served images (0 keeps the configured default)")
	flags.String("s3-bucket", "", "S3 bucket for the s3 source")
	flags.String("s3-region", "us-east-1", "S3 region")
	flags.Bool("s3-anonymous", false, "Use anonymous S3 credentials")
	flags.String("local-dir", "./images", "Root directory for the local source")
	flags.Int64("max-file-size", 50*1024*1024, "Max payload size in bytes")
	flags.String("sqlite-path", ".artifacts/images.db", "SQLite ledger path")
	flags.String("fsm-db-path", ".artifacts/fsm.db", "FSM BoltDB path")
	flags.String("work-dir", "/tmp/imgdispatch", "Directory for prefetched payloads")

	for _, name := range []string{
		"default-source",
		"exclude-sources",
		"s3-bucket",
		"s3-region",
		"s3-anonymous",
		"local-dir",
		"max-file-size",
		"sqlite-path",
		"fsm-db-path",
		"work-dir",
	} {
		viper.BindPFlag(name, flags.Lookup(name))
	}
}

// applyExpiryFlag lets an explicit --image-expiry win over config while a
// zero flag keeps whatever viper resolved.
func applyExpiryFlag(cmd *cobra.Command) {
	if d, err := cmd.Flags().GetDuration("image-expiry"); err == nil && d > 0 {
		viper.Set("image-expiry", d)
	}
}
