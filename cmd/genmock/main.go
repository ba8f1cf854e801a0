// Command genmock generates synthetic fixtures for offline pipeline runs: an
// SPC-format tornado catalog with clustered outbreak days, and the matching
// reanalysis archive tree of JSON grid files. The archive tree can be served
// with any static file server as a stand-in for the real archive.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -catalog-out data/mock/tornadoes.csv \
//	  -archive-dir data/mock/archive \
//	  -start-year 2010 -end-year 2012 -seed 7
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/grid"
)

var catalogHeader = []string{
	"om", "yr", "mo", "dy", "date", "time", "tz", "st", "stf", "stn",
	"mag", "inj", "fat", "loss", "closs", "slat", "slon", "elat", "elon",
	"len", "wid", "ns", "sn", "sg", "f1", "f2", "f3", "f4", "fc",
}

var states = []string{"TX", "OK", "KS", "AL", "MS", "TN", "MO", "AR", "IA", "NE"}

var variables = []string{"cape", "cin", "srh03", "ustm", "vstm"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	catalogOut := flag.String("catalog-out", "", "output path for the synthetic catalog CSV")
	archiveDir := flag.String("archive-dir", "", "output directory for the synthetic archive tree")
	startYear := flag.Int("start-year", 2010, "first catalog year")
	endYear := flag.Int("end-year", 2012, "last catalog year")
	outbreaks := flag.Int("outbreaks", 4, "outbreak days per year")
	validHour := flag.Int("valid-hour", 18, "archive valid hour (UTC)")
	seed := flag.Uint64("seed", 7, "RNG seed")
	flag.Parse()

	if *catalogOut == "" || *archiveDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -catalog-out, -archive-dir")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))

	days, rows := synthesizeCatalog(rng, *startYear, *endYear, *outbreaks)
	if err := writeCatalog(*catalogOut, rows); err != nil {
		return fmt.Errorf("writing catalog: %w", err)
	}
	log.Printf("wrote catalog: %s (%d rows, %d outbreak days)", *catalogOut, len(rows), len(days))

	written := 0
	for _, day := range days {
		for _, variable := range variables {
			if err := writeGrid(*archiveDir, day, variable, *validHour, rng); err != nil {
				return fmt.Errorf("writing grid: %w", err)
			}
			written++
		}
	}
	log.Printf("wrote archive: %s (%d grid files)", *archiveDir, written)
	return nil
}

// synthesizeCatalog builds outbreak days of 12-25 tornadoes each plus
// scattered single-tornado background days.
func synthesizeCatalog(rng *rand.Rand, startYear, endYear, outbreaks int) ([]time.Time, [][]string) {
	var days []time.Time
	var rows [][]string
	seq := 1

	for year := startYear; year <= endYear; year++ {
		for o := 0; o < outbreaks; o++ {
			// Outbreaks land on March-June afternoons.
			month := time.Month(3 + rng.IntN(4))
			day := time.Date(year, month, 1+rng.IntN(27), 0, 0, 0, 0, time.UTC)
			days = append(days, day)

			centerLat := 31 + 8*rng.Float64()
			centerLon := -98 + 10*rng.Float64()
			n := 12 + rng.IntN(14)
			for i := 0; i < n; i++ {
				rows = append(rows, synthesizeRow(rng, seq, day, centerLat, centerLon))
				seq++
			}
		}

		// Background noise: isolated tornadoes that never form an event.
		for i := 0; i < 20; i++ {
			day := time.Date(year, time.Month(1+rng.IntN(12)), 1+rng.IntN(27), 0, 0, 0, 0, time.UTC)
			rows = append(rows, synthesizeRow(rng, seq, day, 30+12*rng.Float64(), -100+20*rng.Float64()))
			seq++
		}
	}
	return days, rows
}

func synthesizeRow(rng *rand.Rand, seq int, day time.Time, centerLat, centerLon float64) []string {
	// Afternoon local times keep the report inside its own convective day.
	hour := 12 + rng.IntN(8)
	minute := rng.IntN(60)
	rating := rng.IntN(5)
	lat := centerLat + rng.NormFloat64()
	lon := centerLon + rng.NormFloat64()
	lengthMi := 0.5 + 20*rng.Float64()
	widthYd := float64(50 + rng.IntN(800))

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	return []string{
		strconv.Itoa(seq),
		strconv.Itoa(day.Year()),
		strconv.Itoa(int(day.Month())),
		strconv.Itoa(day.Day()),
		day.Format("2006-01-02"),
		fmt.Sprintf("%02d:%02d:00", hour, minute),
		"3",
		states[rng.IntN(len(states))],
		"0", "0",
		strconv.Itoa(rating),
		strconv.Itoa(rng.IntN(10)), "0", "0", "0",
		f(lat), f(lon),
		f(lat + 0.1), f(lon + 0.1),
		f(lengthMi), f(widthYd),
		"1", "1", "1", "0", "0", "0", "0", "0",
	}
}

func writeCatalog(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(catalogHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeGrid writes one archive document at the path layout the fetch client
// expects: {dir}/{yyyy}/{yyyymmdd}_{var}_{hh}z.json.
func writeGrid(dir string, day time.Time, variable string, validHour int, rng *rand.Rand) error {
	yearDir := filepath.Join(dir, day.Format("2006"))
	if err := os.MkdirAll(yearDir, 0o755); err != nil {
		return err
	}

	g := synthesizeGrid(rng, variable, day, validHour)
	name := fmt.Sprintf("%s_%s_%02dz.json", day.Format("20060102"), variable, validHour)
	f, err := os.Create(filepath.Join(yearDir, name))
	if err != nil {
		return err
	}
	defer f.Close()
	return grid.Encode(f, g)
}

// synthesizeGrid covers CONUS on a 1-degree grid with values in a plausible
// range for the variable.
func synthesizeGrid(rng *rand.Rand, variable string, day time.Time, validHour int) *grid.Grid {
	var lats, lons []float64
	for lat := 24.0; lat <= 50; lat++ {
		lats = append(lats, lat)
	}
	for lon := -125.0; lon <= -66; lon++ {
		lons = append(lons, lon)
	}

	base, spread := valueRange(variable)
	values := make([]float64, len(lats)*len(lons))
	for i := range values {
		values[i] = base + spread*rng.Float64()
	}

	return &grid.Grid{
		Variable:  variable,
		ValidTime: day.Add(time.Duration(validHour) * time.Hour),
		Lats:      lats,
		Lons:      lons,
		Values:    values,
	}
}

func valueRange(variable string) (base, spread float64) {
	switch variable {
	case "cape":
		return 100, 4000
	case "cin":
		return -250, 240
	case "srh03":
		return 20, 500
	case "ustm":
		return -5, 25
	case "vstm":
		return -5, 20
	default:
		return 0, 1
	}
}
