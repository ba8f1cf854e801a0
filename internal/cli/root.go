// Package cli defines the bigday command surface. Each pipeline stage is a
// subcommand; run executes them all in order.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bigday",
	Short: "Big-day tornado climatology analysis pipeline",
	Long: `bigday ingests the SPC tornado catalog, aggregates big-day events,
fetches reanalysis grids for event days, extracts environmental covariates
over each event's buffered hull, samples non-event contrast days, and fits
a random-intercept mixed model of event energy.

Stages persist their outputs as files in the output directory, so every
stage can be re-run on its own:

  bigday ingest     catalog CSV  -> reports.csv
  bigday events     reports.csv  -> events.json
  bigday fetch      events.json  -> grid files in the data directory
  bigday extract    events.json  -> events.csv (and optional Kafka export)
  bigday sample     reports.csv + events.json -> contrast.csv
  bigday fit        events.csv   -> model.txt
  bigday run        all of the above, in order

Configuration comes from a YAML file (--config) with BIGDAY_* environment
variable overrides.

Exit codes:
  0 = success
  1 = analysis failure
  2 = bad usage or configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to the YAML run configuration file")
}

// configError marks failures that are the operator's to fix rather than the
// pipeline's.
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// SetBuildInfo wires the version command to values injected at build time.
func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// BuildInfo returns the injected build metadata.
func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

// Execute runs the root command under a signal-aware context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var cfgErr *configError
		if errors.As(err, &cfgErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
