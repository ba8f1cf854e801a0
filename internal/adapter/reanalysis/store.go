package reanalysis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/grid"
	"github.com/couchcryptid/tornado-bigday/internal/observability"
)

// Fetcher is the subset of Client the store needs; tests substitute a fake.
type Fetcher interface {
	Fetch(ctx context.Context, day time.Time, variable string) (*grid.Grid, error)
}

// Store persists archive documents in a flat data directory, one file per
// (day, variable). File names mirror the archive paths so a directory listing
// reads like the remote index.
type Store struct {
	dir       string
	validHour int
	fetcher   Fetcher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewStore creates a store rooted at dir. The fetcher may be nil for a
// read-only store (extract stages that must not hit the network).
func NewStore(dir string, validHour int, fetcher Fetcher, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{dir: dir, validHour: validHour, fetcher: fetcher, logger: logger, metrics: metrics}
}

// Path returns the on-disk location for one (day, variable) document.
func (s *Store) Path(day time.Time, variable string) string {
	name := fmt.Sprintf("%s_%s_%02dz.json", day.Format("20060102"), variable, s.validHour)
	return filepath.Join(s.dir, name)
}

// EnsureDay downloads any of the day's variables not already on disk.
// Returns the number of files actually fetched.
func (s *Store) EnsureDay(ctx context.Context, day time.Time) (int, error) {
	if s.fetcher == nil {
		return 0, fmt.Errorf("ensure day %s: store has no fetcher", day.Format("2006-01-02"))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, fmt.Errorf("create data dir: %w", err)
	}

	fetched := 0
	for _, variable := range Variables {
		path := s.Path(day, variable)
		if _, err := os.Stat(path); err == nil {
			s.metrics.GridsFetched.WithLabelValues(variable, "cached").Inc()
			continue
		}

		start := time.Now()
		g, err := s.fetcher.Fetch(ctx, day, variable)
		if err != nil {
			s.metrics.GridsFetched.WithLabelValues(variable, "error").Inc()
			return fetched, err
		}
		s.metrics.FetchDuration.Observe(time.Since(start).Seconds())

		if err := s.write(path, g); err != nil {
			return fetched, err
		}
		s.metrics.GridsFetched.WithLabelValues(variable, "fetched").Inc()
		fetched++

		s.logger.Debug("grid fetched",
			"day", day.Format("2006-01-02"),
			"variable", variable,
			"cells", len(g.Values),
		)
	}
	return fetched, nil
}

// write lands the document via a temp file and rename so a crash mid-write
// never leaves a truncated JSON that EnsureDay would later skip.
func (s *Store) write(path string, g *grid.Grid) error {
	tmp, err := os.CreateTemp(s.dir, ".grid-*")
	if err != nil {
		return fmt.Errorf("write grid: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := grid.Encode(tmp, g); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write grid: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write grid: %w", err)
	}
	return nil
}

// LoadDay reads all of the day's variables from disk, keyed by variable name.
// A missing file is an error naming the day and variable.
func (s *Store) LoadDay(day time.Time) (map[string]*grid.Grid, error) {
	grids := make(map[string]*grid.Grid, len(Variables))
	for _, variable := range Variables {
		path := s.Path(day, variable)
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("load grid %s/%s: %w", day.Format("2006-01-02"), variable, err)
		}
		g, decodeErr := grid.Decode(f)
		f.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("load grid %s/%s: %w", day.Format("2006-01-02"), variable, decodeErr)
		}
		grids[variable] = g
	}
	return grids, nil
}
