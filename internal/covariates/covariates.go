// Package covariates assembles the event-environment table: one row per
// big-day event pairing the event's response variables (count, energy) with
// environmental covariates extracted from reanalysis grids over the event
// domain.
package covariates

import (
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/bigday"
	"github.com/couchcryptid/tornado-bigday/internal/geo"
	"github.com/couchcryptid/tornado-bigday/internal/grid"
)

// Row is one observation of the analysis table.
type Row struct {
	EventID       string    `json:"event_id"`
	Day           time.Time `json:"day"`
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Count         int       `json:"count"`
	TotalEnergyW  float64   `json:"total_energy_w"`
	LogEnergy     float64   `json:"log_energy"` // log10 of TotalEnergyW
	DomainAreaKm2 float64   `json:"domain_area_km2"`

	// Environmental covariates over the event domain.
	MaxCAPE  float64 `json:"max_cape"`  // J/kg
	MinCIN   float64 `json:"min_cin"`   // J/kg, most negative
	MaxSRH   float64 `json:"max_srh"`   // m²/s²
	MeanUStm float64 `json:"mean_ustm"` // m/s
	MeanVStm float64 `json:"mean_vstm"` // m/s
}

// GridLoader supplies the per-day grids; the reanalysis store satisfies it.
type GridLoader interface {
	LoadDay(day time.Time) (map[string]*grid.Grid, error)
}

// Assemble builds one Row per event from grids already on disk. A day whose
// grids are missing or whose domain misses the raster is an error naming the
// event.
func Assemble(events []bigday.Event, loader GridLoader) ([]Row, error) {
	rows := make([]Row, 0, len(events))
	for _, ev := range events {
		row, err := assembleOne(ev.ID, ev.Day, ev.Domain, loader)
		if err != nil {
			return nil, err
		}
		row.Count = ev.Count
		row.TotalEnergyW = ev.TotalEnergyW
		row.LogEnergy = log10OrZero(ev.TotalEnergyW)
		row.DomainAreaKm2 = ev.DomainAreaKm2
		rows = append(rows, row)
	}
	return rows, nil
}

// assembleOne extracts the environmental covariates for one (day, domain) pair.
func assembleOne(id string, day time.Time, domain geo.Polygon, loader GridLoader) (Row, error) {
	grids, err := loader.LoadDay(day)
	if err != nil {
		return Row{}, fmt.Errorf("assemble %s: %w", id, err)
	}

	stats := make(map[string]grid.Stats, len(grids))
	for variable, g := range grids {
		s, err := grid.ExtractStats(g, domain)
		if err != nil {
			return Row{}, fmt.Errorf("assemble %s: %w", id, err)
		}
		stats[variable] = s
	}

	for _, required := range []string{"cape", "cin", "srh03", "ustm", "vstm"} {
		if _, ok := stats[required]; !ok {
			return Row{}, fmt.Errorf("assemble %s: no %s grid for %s", id, required, day.Format("2006-01-02"))
		}
	}

	return Row{
		EventID:  id,
		Day:      day,
		Year:     day.Year(),
		Month:    int(day.Month()),
		MaxCAPE:  stats["cape"].Max,
		MinCIN:   stats["cin"].Min,
		MaxSRH:   stats["srh03"].Max,
		MeanUStm: stats["ustm"].Mean,
		MeanVStm: stats["vstm"].Mean,
	}, nil
}

// ExtractAt builds a Row for an arbitrary (day, domain) pair with no event
// attached; the contrast sample uses it for non-event days.
func ExtractAt(id string, day time.Time, domain geo.Polygon, loader GridLoader) (Row, error) {
	row, err := assembleOne(id, day, domain, loader)
	if err != nil {
		return Row{}, err
	}
	row.DomainAreaKm2 = domain.AreaKm2()
	return row, nil
}

func log10OrZero(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return math.Log10(v)
}
