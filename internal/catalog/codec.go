package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/geo"
)

// reportHeader is the column layout of the intermediate derived-report CSV
// written by the ingest stage and read by every later stage.
var reportHeader = []string{
	"seq", "time", "state", "rating", "injuries", "fatalities",
	"slat", "slon", "elat", "elon", "length_mi", "width_yd",
	"convective_day", "path_area_m2", "energy_w",
}

const dayLayout = "2006-01-02"

// WriteReports writes derived reports as CSV.
func WriteReports(w io.Writer, reports []Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, r := range reports {
		rec := []string{
			strconv.Itoa(r.Seq),
			r.Time.UTC().Format(time.RFC3339),
			r.State,
			strconv.Itoa(r.Rating),
			strconv.Itoa(r.Injuries),
			strconv.Itoa(r.Fatal),
			formatFloat(r.Touchdown.Lat),
			formatFloat(r.Touchdown.Lon),
			formatFloat(r.Liftoff.Lat),
			formatFloat(r.Liftoff.Lon),
			formatFloat(r.LengthMi),
			formatFloat(r.WidthYd),
			r.ConvectiveDay.Format(dayLayout),
			formatFloat(r.PathAreaM2),
			formatFloat(r.EnergyW),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write report %d: %w", r.Seq, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadReports reads the intermediate derived-report CSV back.
func ReadReports(r io.Reader) ([]Report, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(reportHeader)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read report header: %w", err)
	}
	for i, name := range reportHeader {
		if header[i] != name {
			return nil, fmt.Errorf("read report header: column %d is %q, want %q", i, header[i], name)
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
			return nil, fmt.Errorf("read report line %d: %w", line, err)
		}
		rep, err := parseReportRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("read report line %d: %w", line, err)
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func parseReportRecord(rec []string) (Report, error) {
	seq, err := strconv.Atoi(rec[0])
	if err != nil {
		return Report{}, fmt.Errorf("seq: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, rec[1])
	if err != nil {
		return Report{}, fmt.Errorf("time: %w", err)
	}
	rating, err := strconv.Atoi(rec[3])
	if err != nil {
		return Report{}, fmt.Errorf("rating: %w", err)
	}
	inj, err := strconv.Atoi(rec[4])
	if err != nil {
		return Report{}, fmt.Errorf("injuries: %w", err)
	}
	fat, err := strconv.Atoi(rec[5])
	if err != nil {
		return Report{}, fmt.Errorf("fatalities: %w", err)
	}

	f := make([]float64, 8)
	for i, idx := range []int{6, 7, 8, 9, 10, 11, 13, 14} {
		v, err := strconv.ParseFloat(rec[idx], 64)
		if err != nil {
			return Report{}, fmt.Errorf("%s: %w", reportHeader[idx], err)
		}
		f[i] = v
	}
	day, err := time.Parse(dayLayout, rec[12])
	if err != nil {
		return Report{}, fmt.Errorf("convective_day: %w", err)
	}

	return Report{
		Seq:           seq,
		Time:          ts,
		State:         rec[2],
		Rating:        rating,
		Injuries:      inj,
		Fatal:         fat,
		Touchdown:     geo.Point{Lat: f[0], Lon: f[1]},
		Liftoff:       geo.Point{Lat: f[2], Lon: f[3]},
		LengthMi:      f[4],
		WidthYd:       f[5],
		ConvectiveDay: day,
		PathAreaM2:    f[6],
		EnergyW:       f[7],
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
