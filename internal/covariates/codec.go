package covariates

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// header is the analysis-table column layout. fit and external tooling (R,
// pandas) both consume this file, so column names stay lower_snake and stable.
var header = []string{
	"event_id", "day", "year", "month", "count",
	"total_energy_w", "log_energy", "domain_area_km2",
	"max_cape", "min_cin", "max_srh", "mean_ustm", "mean_vstm",
}

const dayLayout = "2006-01-02"

// WriteCSV writes the analysis table.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write covariate header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.EventID,
			r.Day.Format(dayLayout),
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Month),
			strconv.Itoa(r.Count),
			formatFloat(r.TotalEnergyW),
			formatFloat(r.LogEnergy),
			formatFloat(r.DomainAreaKm2),
			formatFloat(r.MaxCAPE),
			formatFloat(r.MinCIN),
			formatFloat(r.MaxSRH),
			formatFloat(r.MeanUStm),
			formatFloat(r.MeanVStm),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write covariate row %s: %w", r.EventID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads the analysis table back.
func ReadCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	got, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read covariate header: %w", err)
	}
	for i, name := range header {
		if got[i] != name {
			return nil, fmt.Errorf("read covariate header: column %d is %q, want %q", i, got[i], name)
		}
	}

	var rows []Row
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read covariate line %d: %w", line, err)
		}
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("read covariate line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRecord(rec []string) (Row, error) {
	day, err := time.Parse(dayLayout, rec[1])
	if err != nil {
		return Row{}, fmt.Errorf("day: %w", err)
	}

	ints := make([]int, 3)
	for i, idx := range []int{2, 3, 4} {
		v, err := strconv.Atoi(rec[idx])
		if err != nil {
			return Row{}, fmt.Errorf("%s: %w", header[idx], err)
		}
		ints[i] = v
	}

	f := make([]float64, 8)
	for i, idx := range []int{5, 6, 7, 8, 9, 10, 11, 12} {
		v, err := strconv.ParseFloat(rec[idx], 64)
		if err != nil {
			return Row{}, fmt.Errorf("%s: %w", header[idx], err)
		}
		f[i] = v
	}

	return Row{
		EventID:       rec[0],
		Day:           day,
		Year:          ints[0],
		Month:         ints[1],
		Count:         ints[2],
		TotalEnergyW:  f[0],
		LogEnergy:     f[1],
		DomainAreaKm2: f[2],
		MaxCAPE:       f[3],
		MinCIN:        f[4],
		MaxSRH:        f[5],
		MeanUStm:      f[6],
		MeanVStm:      f[7],
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
