package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/tornado-bigday/internal/adapter/http"
	"github.com/couchcryptid/tornado-bigday/internal/adapter/kafka"
	"github.com/couchcryptid/tornado-bigday/internal/adapter/reanalysis"
	"github.com/couchcryptid/tornado-bigday/internal/analysis"
	"github.com/couchcryptid/tornado-bigday/internal/config"
	"github.com/couchcryptid/tornado-bigday/internal/observability"
	"github.com/couchcryptid/tornado-bigday/internal/pipeline"
)

// app holds the wired dependencies for one command invocation.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	runner    *analysis.Runner
	publisher *kafka.Publisher // nil unless Kafka export is enabled
}

func newApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, &configError{err: err}
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := reanalysis.NewClient(cfg.ArchiveBaseURL, cfg.ValidHour, cfg.FetchTimeout, logger)
	store := reanalysis.NewStore(cfg.DataDir, cfg.ValidHour, client, logger, metrics)

	a := &app{cfg: cfg, logger: logger, metrics: metrics}
	var publisher analysis.RowPublisher
	if cfg.KafkaEnabled() {
		a.publisher = kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		publisher = a.publisher
		logger.Info("kafka export enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	a.runner = analysis.NewRunner(cfg, store, publisher, logger, metrics)
	return a, nil
}

func (a *app) Close() {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.Close(); err != nil {
		a.logger.Error("kafka publisher close error", "error", err)
	}
}

// runStage wires a single Runner stage method into a cobra RunE.
func runStage(stage func(*analysis.Runner, context.Context) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return stage(a.runner, cmd.Context())
	}
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Parse, filter, and derive the tornado catalog",
	RunE:  runStage((*analysis.Runner).Ingest),
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Aggregate reports into big-day events",
	RunE:  runStage((*analysis.Runner).BuildEvents),
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download reanalysis grids for event days",
	RunE:  runStage((*analysis.Runner).FetchGrids),
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract environmental covariates over event domains",
	RunE:  runStage((*analysis.Runner).ExtractCovariates),
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Sample non-event contrast days and extract their covariates",
	RunE:  runStage((*analysis.Runner).SampleContrast),
}

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the mixed-effects and OLS models",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.runner.Fit(cmd.Context())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		header := color.New(color.Bold, color.FgCyan)
		header.Fprintln(w, "bigday model fit")
		fmt.Fprintln(w)
		fmt.Fprintln(w, out.Mixed.Summary("Random-intercept model (group: year)"))
		fmt.Fprintln(w, out.OLS.Summary("OLS baseline"))
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage in order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		p := pipeline.New(a.runner.Stages(), a.logger, a.metrics)

		if a.cfg.MetricsAddr != "" {
			srv := httpadapter.NewServer(a.cfg.MetricsAddr, p, p, a.logger)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("sidecar server error", "error", err)
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.logger.Error("sidecar server shutdown error", "error", err)
				}
			}()
		}

		return p.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd, eventsCmd, fetchCmd, extractCmd, sampleCmd, fitCmd, runCmd)
}
