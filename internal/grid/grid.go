// Package grid represents regular latitude/longitude rasters of a single
// reanalysis variable and extracts summary statistics over polygons.
//
// The wire format is the archive service's flat JSON document: coordinate
// vectors plus a row-major value array, one document per (day, variable,
// valid hour).
package grid

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/geo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Grid is a regular lat/lon raster. Values is row-major: the value at
// (Lats[i], Lons[j]) is Values[i*len(Lons)+j]. Coordinate vectors must be
// strictly increasing.
type Grid struct {
	Variable  string    `json:"variable"`
	ValidTime time.Time `json:"valid_time"`
	Lats      []float64 `json:"lats"`
	Lons      []float64 `json:"lons"`
	Values    []float64 `json:"values"`
}

// Validate checks the raster shape and coordinate monotonicity.
func (g *Grid) Validate() error {
	if len(g.Lats) == 0 || len(g.Lons) == 0 {
		return fmt.Errorf("grid %s: empty coordinate vector", g.Variable)
	}
	if len(g.Values) != len(g.Lats)*len(g.Lons) {
		return fmt.Errorf("grid %s: %d values for %dx%d raster",
			g.Variable, len(g.Values), len(g.Lats), len(g.Lons))
	}
	for i := 1; i < len(g.Lats); i++ {
		if g.Lats[i] <= g.Lats[i-1] {
			return fmt.Errorf("grid %s: lats not strictly increasing at index %d", g.Variable, i)
		}
	}
	for i := 1; i < len(g.Lons); i++ {
		if g.Lons[i] <= g.Lons[i-1] {
			return fmt.Errorf("grid %s: lons not strictly increasing at index %d", g.Variable, i)
		}
	}
	return nil
}

// At returns the value at row i (latitude), column j (longitude).
func (g *Grid) At(i, j int) float64 {
	return g.Values[i*len(g.Lons)+j]
}

// Cell returns the value of the cell whose center is nearest to (lat, lon).
// Points outside the raster extent are an error.
func (g *Grid) Cell(lat, lon float64) (float64, error) {
	if lat < g.Lats[0] || lat > g.Lats[len(g.Lats)-1] ||
		lon < g.Lons[0] || lon > g.Lons[len(g.Lons)-1] {
		return 0, fmt.Errorf("grid %s: point (%.3f, %.3f) outside raster extent", g.Variable, lat, lon)
	}
	i := nearest(g.Lats, lat)
	j := nearest(g.Lons, lon)
	return g.At(i, j), nil
}

func nearest(coords []float64, v float64) int {
	if len(coords) == 1 {
		return 0
	}
	// Within returns the interval index; pick the closer endpoint.
	idx := floats.Within(coords, v)
	if idx < 0 {
		if v <= coords[0] {
			return 0
		}
		return len(coords) - 1
	}
	if v-coords[idx] <= coords[idx+1]-v {
		return idx
	}
	return idx + 1
}

// Stats summarizes the grid cells inside a polygon.
type Stats struct {
	Mean float64
	Max  float64
	Min  float64
	N    int
}

// ExtractStats computes statistics over the cells whose centers fall inside
// poly. A polygon that covers no cell center is an error: the caller's domain
// misses the raster.
func ExtractStats(g *Grid, poly geo.Polygon) (Stats, error) {
	if err := g.Validate(); err != nil {
		return Stats{}, err
	}

	var inside []float64
	for i, lat := range g.Lats {
		for j, lon := range g.Lons {
			if poly.Contains(geo.Point{Lat: lat, Lon: lon}) {
				inside = append(inside, g.At(i, j))
			}
		}
	}
	if len(inside) == 0 {
		return Stats{}, fmt.Errorf("grid %s: polygon covers no cell centers", g.Variable)
	}

	return Stats{
		Mean: stat.Mean(inside, nil),
		Max:  floats.Max(inside),
		Min:  floats.Min(inside),
		N:    len(inside),
	}, nil
}

// Decode reads one archive JSON document and validates it.
func Decode(r io.Reader) (*Grid, error) {
	var g Grid
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("decode grid: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// Encode writes the grid as an archive JSON document.
func Encode(w io.Writer, g *Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(g); err != nil {
		return fmt.Errorf("encode grid: %w", err)
	}
	return nil
}
