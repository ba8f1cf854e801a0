package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/energy"
	"github.com/couchcryptid/tornado-bigday/internal/geo"
)

const (
	// cstOffset is the catalog's local standard time offset from UTC.
	cstOffset = -6 * time.Hour

	metersPerMile = 1609.344
	metersPerYard = 0.9144
)

// Report is one catalog row with derived analysis fields.
type Report struct {
	Seq       int       // om: sequence number within the year
	Time      time.Time // event time, UTC
	State     string
	Rating    int // (E)F rating; -9 when unknown
	Injuries  int
	Fatal     int
	Touchdown geo.Point
	Liftoff   geo.Point
	LengthMi  float64
	WidthYd   float64

	// Derived.
	ConvectiveDay time.Time // midnight-UTC label of the 12Z-12Z day
	PathAreaM2    float64
	EnergyW       float64
}

// Year returns the calendar year of the report's convective day.
func (r Report) Year() int { return r.ConvectiveDay.Year() }

// Month returns the calendar month of the report's convective day.
func (r Report) Month() time.Month { return r.ConvectiveDay.Month() }

// ConvectiveDayOf returns the convective-day label for a UTC instant: the
// midnight-UTC date of the 12Z that started the day.
func ConvectiveDayOf(t time.Time) time.Time {
	shifted := t.UTC().Add(-12 * time.Hour)
	return time.Date(shifted.Year(), shifted.Month(), shifted.Day(), 0, 0, 0, 0, time.UTC)
}

// ReadCatalog parses the SPC actual-tornadoes CSV. The header row is required;
// columns are located by name so column reordering upstream is harmless.
// Numeric parse failures are an error naming the line.
func ReadCatalog(r io.Reader) ([]Report, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"om", "date", "time", "st", "mag", "inj", "fat", "slat", "slon", "elat", "elon", "len", "wid"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("read catalog header: missing column %q", required)
		}
	}

	var reports []Report
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read catalog line %d: %w", line, err)
		}

		rep, err := parseRow(rec, col)
		if err != nil {
			return nil, fmt.Errorf("read catalog line %d: %w", line, err)
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func parseRow(rec []string, col map[string]int) (Report, error) {
	seq, err := strconv.Atoi(rec[col["om"]])
	if err != nil {
		return Report{}, fmt.Errorf("om: %w", err)
	}

	local, err := time.Parse("2006-01-02 15:04:05", rec[col["date"]]+" "+rec[col["time"]])
	if err != nil {
		return Report{}, fmt.Errorf("date/time: %w", err)
	}
	// Catalog times are CST regardless of the tz column (see package doc).
	utc := local.Add(-cstOffset)

	rating, err := strconv.Atoi(rec[col["mag"]])
	if err != nil {
		return Report{}, fmt.Errorf("mag: %w", err)
	}
	inj, err := strconv.Atoi(rec[col["inj"]])
	if err != nil {
		return Report{}, fmt.Errorf("inj: %w", err)
	}
	fat, err := strconv.Atoi(rec[col["fat"]])
	if err != nil {
		return Report{}, fmt.Errorf("fat: %w", err)
	}

	floats := make(map[string]float64, 6)
	for _, name := range []string{"slat", "slon", "elat", "elon", "len", "wid"} {
		v, err := strconv.ParseFloat(rec[col[name]], 64)
		if err != nil {
			return Report{}, fmt.Errorf("%s: %w", name, err)
		}
		floats[name] = v
	}

	return Report{
		Seq:       seq,
		Time:      utc,
		State:     rec[col["st"]],
		Rating:    rating,
		Injuries:  inj,
		Fatal:     fat,
		Touchdown: geo.Point{Lat: floats["slat"], Lon: floats["slon"]},
		Liftoff:   geo.Point{Lat: floats["elat"], Lon: floats["elon"]},
		LengthMi:  floats["len"],
		WidthYd:   floats["wid"],
	}, nil
}

// Bounds is a latitude/longitude bounding box.
type Bounds struct {
	LatMin, LatMax float64
	LonMin, LonMax float64
}

// Contains reports whether p lies within the box (inclusive).
func (b Bounds) Contains(p geo.Point) bool {
	return p.Lat >= b.LatMin && p.Lat <= b.LatMax &&
		p.Lon >= b.LonMin && p.Lon <= b.LonMax
}

// FilterOptions controls which catalog rows survive filtering.
type FilterOptions struct {
	StartYear int
	EndYear   int
	Bounds    Bounds
}

// Filter drops rows outside the study: unknown ratings (mag < 0), touchdown
// coordinates outside the bounding box, and event times whose convective day
// falls outside [StartYear, EndYear]. Surviving reports come back with
// derived fields populated.
func Filter(reports []Report, opts FilterOptions) ([]Report, error) {
	out := make([]Report, 0, len(reports))
	for _, rep := range reports {
		if rep.Rating < 0 {
			continue
		}
		if !opts.Bounds.Contains(rep.Touchdown) {
			continue
		}

		derived, err := Derive(rep)
		if err != nil {
			return nil, err
		}
		year := derived.ConvectiveDay.Year()
		if year < opts.StartYear || year > opts.EndYear {
			continue
		}
		out = append(out, derived)
	}
	return out, nil
}

// Derive fills the derived fields of a report: convective day, path area, and
// energy dissipation. Rows with a zero path dimension get the per-rating
// default area.
func Derive(rep Report) (Report, error) {
	rep.ConvectiveDay = ConvectiveDayOf(rep.Time)

	areaM2 := rep.LengthMi * metersPerMile * rep.WidthYd * metersPerYard
	if areaM2 <= 0 {
		fallback, err := energy.DefaultPathArea(rep.Rating)
		if err != nil {
			return Report{}, fmt.Errorf("derive report %d: %w", rep.Seq, err)
		}
		areaM2 = fallback
	}
	rep.PathAreaM2 = areaM2

	e, err := energy.Dissipation(areaM2, rep.Rating)
	if err != nil {
		return Report{}, fmt.Errorf("derive report %d: %w", rep.Seq, err)
	}
	rep.EnergyW = e
	return rep, nil
}
