// Package reanalysis fetches gridded reanalysis fields from the org's
// archive service and persists them in a local data directory.
//
// The archive re-serves NARR/ERA5 subsets as one flat JSON raster per
// (date, variable, valid hour):
//
//	GET {base}/{yyyy}/{yyyymmdd}_{variable}_{hh}z.json
//
// Downloads are sequential and idempotent: a file already on disk is never
// fetched again, so an interrupted fetch stage resumes where it stopped.
package reanalysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/grid"
)

// Variables are the reanalysis fields the analysis extracts, in fetch order:
// convective available potential energy, convective inhibition, 0-3 km
// storm-relative helicity, and the storm-motion U/V components.
var Variables = []string{"cape", "cin", "srh03", "ustm", "vstm"}

// Client fetches grids from the reanalysis archive over HTTP.
type Client struct {
	baseURL    string
	validHour  int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an archive client. validHour is the UTC valid hour of the
// daily snapshot, typically 18 (peak convective heating over the US).
func NewClient(baseURL string, validHour int, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		validHour:  validHour,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// URL returns the archive URL for one (day, variable) document.
func (c *Client) URL(day time.Time, variable string) string {
	return fmt.Sprintf("%s/%04d/%s_%s_%02dz.json",
		c.baseURL, day.Year(), day.Format("20060102"), variable, c.validHour)
}

// Fetch downloads and validates the grid for one day and variable.
func (c *Client) Fetch(ctx context.Context, day time.Time, variable string) (*grid.Grid, error) {
	u := c.URL(day, variable)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("archive error: status %d from %s: %s", resp.StatusCode, u, body)
	}

	g, err := grid.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	if g.Variable != variable {
		return nil, fmt.Errorf("fetch %s: document says variable %q", u, g.Variable)
	}
	return g, nil
}

// FetchDay downloads all Variables for one day, sequentially, keyed by
// variable name.
func (c *Client) FetchDay(ctx context.Context, day time.Time) (map[string]*grid.Grid, error) {
	grids := make(map[string]*grid.Grid, len(Variables))
	for _, variable := range Variables {
		g, err := c.Fetch(ctx, day, variable)
		if err != nil {
			return nil, err
		}
		grids[variable] = g
	}
	return grids, nil
}
