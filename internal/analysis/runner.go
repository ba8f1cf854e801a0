// Package analysis wires the domain packages into pipeline stages. Each
// stage reads its input from the output directory and writes its result
// back there, so any stage can be re-run on its own.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/bigday"
	"github.com/couchcryptid/tornado-bigday/internal/catalog"
	"github.com/couchcryptid/tornado-bigday/internal/config"
	"github.com/couchcryptid/tornado-bigday/internal/contrast"
	"github.com/couchcryptid/tornado-bigday/internal/covariates"
	"github.com/couchcryptid/tornado-bigday/internal/grid"
	"github.com/couchcryptid/tornado-bigday/internal/observability"
	"github.com/couchcryptid/tornado-bigday/internal/pipeline"
)

// Output file names, relative to the configured output directory.
const (
	ReportsFile  = "reports.csv"
	EventsFile   = "events.json"
	TableFile    = "events.csv"
	ContrastFile = "contrast.csv"
	ModelFile    = "model.txt"
)

// GridStore persists per-day reanalysis grids; the reanalysis store
// satisfies it.
type GridStore interface {
	EnsureDay(ctx context.Context, day time.Time) (int, error)
	LoadDay(day time.Time) (map[string]*grid.Grid, error)
}

// RowPublisher exports covariate rows; the Kafka publisher satisfies it.
type RowPublisher interface {
	PublishRows(ctx context.Context, rows []covariates.Row) error
}

// Runner holds the dependencies shared by all stages.
type Runner struct {
	cfg       *config.Config
	store     GridStore
	publisher RowPublisher // nil when Kafka export is disabled
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewRunner creates a Runner. publisher may be nil.
func NewRunner(cfg *config.Config, store GridStore, publisher RowPublisher, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{cfg: cfg, store: store, publisher: publisher, logger: logger, metrics: metrics}
}

// Stages returns the full stage sequence for a complete run.
func (r *Runner) Stages() []pipeline.Stage {
	return []pipeline.Stage{
		{Name: "ingest", Run: r.Ingest},
		{Name: "build-events", Run: r.BuildEvents},
		{Name: "fetch-grids", Run: r.FetchGrids},
		{Name: "extract-covariates", Run: r.ExtractCovariates},
		{Name: "sample-contrast", Run: r.SampleContrast},
		{Name: "fit-models", Run: r.FitModels},
	}
}

func (r *Runner) outPath(name string) string {
	return filepath.Join(r.cfg.OutputDir, name)
}

// Ingest parses the catalog CSV, filters it to the configured years and
// bounding box, derives per-report fields, and writes the report table.
func (r *Runner) Ingest(_ context.Context) error {
	f, err := os.Open(r.cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	reports, err := catalog.ReadCatalog(f)
	if err != nil {
		return err
	}

	filtered, err := catalog.Filter(reports, catalog.FilterOptions{
		StartYear: r.cfg.StartYear,
		EndYear:   r.cfg.EndYear,
		Bounds: catalog.Bounds{
			LatMin: r.cfg.LatMin, LatMax: r.cfg.LatMax,
			LonMin: r.cfg.LonMin, LonMax: r.cfg.LonMax,
		},
	})
	if err != nil {
		return err
	}

	if err := r.writeFile(ReportsFile, func(w *os.File) error {
		return catalog.WriteReports(w, filtered)
	}); err != nil {
		return err
	}

	r.metrics.ReportsIngested.Add(float64(len(filtered)))
	r.logger.Info("catalog ingested",
		"total", len(reports), "kept", len(filtered),
		"start_year", r.cfg.StartYear, "end_year", r.cfg.EndYear)
	return nil
}

// BuildEvents groups the report table into big-day events.
func (r *Runner) BuildEvents(_ context.Context) error {
	reports, err := r.readReports()
	if err != nil {
		return err
	}

	events, err := bigday.Cluster(reports, bigday.Options{
		MinCount: r.cfg.MinCount,
		BufferKm: r.cfg.BufferKm,
	})
	if err != nil {
		return err
	}

	if err := r.writeFile(EventsFile, func(w *os.File) error {
		return bigday.WriteEvents(w, events)
	}); err != nil {
		return err
	}

	r.metrics.EventsBuilt.Add(float64(len(events)))
	r.logger.Info("events built", "reports", len(reports), "events", len(events), "min_count", r.cfg.MinCount)
	return nil
}

// FetchGrids downloads the reanalysis grids for every event day that is
// not already on disk.
func (r *Runner) FetchGrids(ctx context.Context) error {
	events, err := r.readEvents()
	if err != nil {
		return err
	}

	fetched := 0
	for _, ev := range events {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		n, err := r.store.EnsureDay(ctx, ev.Day)
		if err != nil {
			return fmt.Errorf("fetch grids for %s: %w", ev.Day.Format("2006-01-02"), err)
		}
		fetched += n
	}

	r.logger.Info("grids ensured", "days", len(events), "fetched", fetched)
	return nil
}

// ExtractCovariates assembles the event-environment table and writes it
// as CSV, publishing the rows to Kafka when export is enabled.
func (r *Runner) ExtractCovariates(ctx context.Context) error {
	events, err := r.readEvents()
	if err != nil {
		return err
	}

	rows, err := covariates.Assemble(events, r.store)
	if err != nil {
		return err
	}

	if err := r.writeFile(TableFile, func(w *os.File) error {
		return covariates.WriteCSV(w, rows)
	}); err != nil {
		return err
	}

	if r.publisher != nil {
		if err := r.publisher.PublishRows(ctx, rows); err != nil {
			return err
		}
	}

	r.logger.Info("covariates extracted", "rows", len(rows))
	return nil
}

// SampleContrast draws non-event convective days, fetches their grids, and
// extracts covariates over randomly drawn event domains.
func (r *Runner) SampleContrast(ctx context.Context) error {
	events, err := r.readEvents()
	if err != nil {
		return err
	}

	// Candidate days are the catalog's own convective days, not the whole
	// calendar.
	reports, err := r.readReports()
	if err != nil {
		return err
	}
	catalogDays := make(map[time.Time]struct{}, len(reports))
	for _, rep := range reports {
		catalogDays[rep.ConvectiveDay] = struct{}{}
	}

	samples, err := contrast.Draw(events, catalogDays, contrast.Options{
		N:         r.cfg.ContrastSize,
		StartYear: r.cfg.StartYear,
		EndYear:   r.cfg.EndYear,
		Seed:      r.cfg.Seed,
	})
	if err != nil {
		return err
	}

	rows := make([]covariates.Row, 0, len(samples))
	for _, s := range samples {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := r.store.EnsureDay(ctx, s.Day); err != nil {
			return fmt.Errorf("fetch grids for contrast day %s: %w", s.Day.Format("2006-01-02"), err)
		}
		row, err := covariates.ExtractAt(s.ID, s.Day, s.Domain, r.store)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	if err := r.writeFile(ContrastFile, func(w *os.File) error {
		return covariates.WriteCSV(w, rows)
	}); err != nil {
		return err
	}

	r.logger.Info("contrast sampled", "days", len(rows), "seed", r.cfg.Seed)
	return nil
}

// FitModels fits the mixed and OLS models and writes their summaries.
func (r *Runner) FitModels(ctx context.Context) error {
	_, err := r.Fit(ctx)
	return err
}

func (r *Runner) readReports() ([]catalog.Report, error) {
	f, err := os.Open(r.outPath(ReportsFile))
	if err != nil {
		return nil, fmt.Errorf("open report table (run ingest first): %w", err)
	}
	defer f.Close()
	return catalog.ReadReports(f)
}

func (r *Runner) readEvents() ([]bigday.Event, error) {
	f, err := os.Open(r.outPath(EventsFile))
	if err != nil {
		return nil, fmt.Errorf("open events (run events first): %w", err)
	}
	defer f.Close()
	return bigday.ReadEvents(f)
}

// writeFile writes to a temp file in the output directory and renames it
// into place so re-runs never observe partial output.
func (r *Runner) writeFile(name string, write func(*os.File) error) error {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(r.cfg.OutputDir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), r.outPath(name))
}
