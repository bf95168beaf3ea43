package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fly-io/imgdispatch/pkg/errors"
	"github.com/fly-io/imgdispatch/pkg/image"
	"github.com/fly-io/imgdispatch/pkg/metrics"
	"github.com/fly-io/imgdispatch/pkg/sources"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <request-path>",
	Short: "Show how a request path parses and which source would serve it",
	Long: `Parses the request path and reports the resolution decision without
contacting any source. With --check the resolved source is asked whether it
holds the object key.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var inspectCheck bool

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().BoolVar(&inspectCheck, "check", false, "Check that the resolved source holds the key")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	img, err := image.New(args[0], cfg.ImageExpiry)
	if err != nil {
		return errors.Wrap(err, "parse failed")
	}

	if !inspectCheck {
		resolver := sources.New(sources.Options{
			DefaultSource: cfg.DefaultSource,
			Excludes:      cfg.Excludes(),
			External:      cfg.ExternalSources,
		})
		printInspection(cmd.OutOrStdout(), img, resolver)
		return nil
	}

	ctx := context.Background()
	resolver, err := sources.NewFromConfig(ctx, cfg, metrics.Nop{})
	if err != nil {
		return errors.Wrap(err, "resolver init failed")
	}
	printInspection(cmd.OutOrStdout(), img, resolver)
	printPresence(ctx, cmd.OutOrStdout(), img, resolver)
	return nil
}

// printPresence asks the resolved source whether it holds img's key
func printPresence(ctx context.Context, w io.Writer, img *image.Image, resolver *sources.Resolver) {
	ok, err := resolver.Exists(ctx, img)
	if err != nil {
		printRow(w, "exists", "unknown ("+err.Error()+")")
		return
	}
	printRow(w, "exists", fmt.Sprintf("%t", ok))
}

func printRow(w io.Writer, k, v string) {
	if v == "" {
		v = "-"
	}
	fmt.Fprintf(w, "%-16s %s\n", k, v)
}

func printInspection(w io.Writer, img *image.Image, resolver *sources.Resolver) {
	source, external, excluded := resolver.Describe(img)

	var mods []string
	for _, d := range img.Modifiers().Directives() {
		mods = append(mods, d.Key+"="+d.Value)
	}

	row := func(k, v string) { printRow(w, k, v) }
	row("path", img.Path())
	row("image", img.Image())
	row("key", img.Key())
	row("format", img.Format())
	row("output format", img.OutputFormat())
	row("metadata", fmt.Sprintf("%t", img.IsMetadata()))
	row("modifiers", strings.Join(mods, ", "))
	row("source", source)
	row("external", fmt.Sprintf("%t", external))
	row("excluded", fmt.Sprintf("%t", excluded))
	row("expiry", img.Expiry().String())
	if img.IsError() {
		row("error", img.Err().Error())
	}
}
