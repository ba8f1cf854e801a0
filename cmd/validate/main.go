// Command validate performs end-to-end integrity checks across the pipeline
// outputs: the report table, the event list, the event-covariate table, and
// the contrast table. It verifies derived fields, event membership, energy
// accounting, and cross-file consistency.
//
// Usage:
//
//	go run ./cmd/validate -output-dir out -min-count 10
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/bigday"
	"github.com/couchcryptid/tornado-bigday/internal/catalog"
	"github.com/couchcryptid/tornado-bigday/internal/covariates"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	outputDir := flag.String("output-dir", "out", "pipeline output directory")
	minCount := flag.Int("min-count", 10, "big-day tornado count threshold")
	flag.Parse()

	if code := run(*outputDir, *minCount); code != 0 {
		os.Exit(code)
	}
}

func run(outputDir string, minCount int) int {
	fmt.Println("=== Big-Day Output Integrity Validation ===")
	fmt.Println()

	reports, err := loadReports(filepath.Join(outputDir, "reports.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load report table: %v\n", err)
		return 1
	}

	events, err := loadEvents(filepath.Join(outputDir, "events.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load events: %v\n", err)
		return 1
	}

	table, err := loadTable(filepath.Join(outputDir, "events.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load event table: %v\n", err)
		return 1
	}

	contrastRows, err := loadTable(filepath.Join(outputDir, "contrast.csv"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load contrast table: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateReports(reports),
		validateEvents(events, reports, minCount),
		validateTable(table, events),
		validateContrast(contrastRows, events, reports),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-44s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d reports, %d events, %d table rows, %d contrast rows\n",
		len(reports), len(events), len(table), len(contrastRows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadReports(path string) ([]catalog.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return catalog.ReadReports(f)
}

func loadEvents(path string) ([]bigday.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return bigday.ReadEvents(f)
}

func loadTable(path string) ([]covariates.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return covariates.ReadCSV(f)
}

// ── Phase 1: Report Integrity ──
// Validates derived fields on every report row.

func validateReports(reports []catalog.Report) *phase {
	p := &phase{name: "Phase 1: Report Integrity (reports.csv)"}

	for i, r := range reports {
		if r.Rating < 0 || r.Rating > 5 {
			p.errorf("report %d (om %d): rating %d outside 0-5", i, r.Seq, r.Rating)
		}
		if r.ConvectiveDay.IsZero() {
			p.errorf("report %d (om %d): convective day not derived", i, r.Seq)
		} else if h, m, s := r.ConvectiveDay.Clock(); h != 0 || m != 0 || s != 0 {
			p.errorf("report %d (om %d): convective day %s is not midnight UTC", i, r.Seq, r.ConvectiveDay)
		}
		if r.PathAreaM2 <= 0 {
			p.errorf("report %d (om %d): path area %g not positive", i, r.Seq, r.PathAreaM2)
		}
		if r.EnergyW <= 0 {
			p.errorf("report %d (om %d): energy %g not positive", i, r.Seq, r.EnergyW)
		}
		if want := catalog.ConvectiveDayOf(r.Time); !r.ConvectiveDay.Equal(want) {
			p.errorf("report %d (om %d): convective day %s, recomputed %s",
				i, r.Seq, r.ConvectiveDay.Format("2006-01-02"), want.Format("2006-01-02"))
		}
	}
	return p
}

// ── Phase 2: Event Consistency ──
// Validates events against report membership by convective day.

func validateEvents(events []bigday.Event, reports []catalog.Report, minCount int) *phase {
	p := &phase{name: "Phase 2: Event Consistency (events.json)"}

	byDay := map[time.Time][]catalog.Report{}
	for _, r := range reports {
		byDay[r.ConvectiveDay] = append(byDay[r.ConvectiveDay], r)
	}

	var prev time.Time
	for i, ev := range events {
		members := byDay[ev.Day]

		if ev.Count < minCount {
			p.errorf("event %s: count %d below threshold %d", ev.ID, ev.Count, minCount)
		}
		if ev.Count != len(members) {
			p.errorf("event %s: count %d, but %d reports share the day", ev.ID, ev.Count, len(members))
		}
		if !strings.HasPrefix(ev.ID, "bigday-") {
			p.errorf("event %s: ID missing bigday- prefix", ev.ID)
		}
		if i > 0 && !ev.Day.After(prev) {
			p.errorf("event %s: days not strictly increasing", ev.ID)
		}
		prev = ev.Day

		var energy float64
		ratingTotal := 0
		for _, c := range ev.CountByRating {
			ratingTotal += c
		}
		if ratingTotal != ev.Count {
			p.errorf("event %s: rating counts sum to %d, count is %d", ev.ID, ratingTotal, ev.Count)
		}
		for _, m := range members {
			energy += m.EnergyW
			if !ev.Domain.Contains(m.Touchdown) {
				p.errorf("event %s: touchdown of om %d outside the domain", ev.ID, m.Seq)
			}
		}
		if len(members) > 0 && !floatEq(energy, ev.TotalEnergyW) {
			p.errorf("event %s: total energy %g, member sum %g", ev.ID, ev.TotalEnergyW, energy)
		}
	}
	return p
}

// ── Phase 3: Table Consistency ──
// Validates the covariate table against the event list.

func validateTable(rows []covariates.Row, events []bigday.Event) *phase {
	p := &phase{name: "Phase 3: Table Consistency (events.csv)"}

	byID := map[string]bigday.Event{}
	for _, ev := range events {
		byID[ev.ID] = ev
	}

	if len(rows) != len(events) {
		p.errorf("table has %d rows, event list has %d", len(rows), len(events))
	}

	for _, row := range rows {
		ev, ok := byID[row.EventID]
		if !ok {
			p.errorf("row %s: no matching event", row.EventID)
			continue
		}
		if !row.Day.Equal(ev.Day) {
			p.errorf("row %s: day %s, event day %s", row.EventID,
				row.Day.Format("2006-01-02"), ev.Day.Format("2006-01-02"))
		}
		if row.Count != ev.Count {
			p.errorf("row %s: count %d, event count %d", row.EventID, row.Count, ev.Count)
		}
		if row.Year != row.Day.Year() || row.Month != int(row.Day.Month()) {
			p.errorf("row %s: year/month fields disagree with day", row.EventID)
		}
		if row.TotalEnergyW > 0 && !floatEq(row.LogEnergy, math.Log10(row.TotalEnergyW)) {
			p.errorf("row %s: log energy %g, log10(total) is %g",
				row.EventID, row.LogEnergy, math.Log10(row.TotalEnergyW))
		}
		if row.MinCIN > 0 {
			p.errorf("row %s: min CIN %g is positive", row.EventID, row.MinCIN)
		}
	}
	return p
}

// ── Phase 4: Contrast Sample ──
// Validates that contrast rows describe non-event catalog days only.

func validateContrast(rows []covariates.Row, events []bigday.Event, reports []catalog.Report) *phase {
	p := &phase{name: "Phase 4: Contrast Sample (contrast.csv)"}

	eventDays := bigday.EventDays(events)
	catalogDays := map[time.Time]bool{}
	for _, r := range reports {
		catalogDays[r.ConvectiveDay] = true
	}
	seen := map[time.Time]bool{}

	for _, row := range rows {
		if !strings.HasPrefix(row.EventID, "contrast-") {
			p.errorf("row %s: ID missing contrast- prefix", row.EventID)
		}
		if _, isEvent := eventDays[row.Day]; isEvent {
			p.errorf("row %s: day %s is a big day", row.EventID, row.Day.Format("2006-01-02"))
		}
		if !catalogDays[row.Day] {
			p.errorf("row %s: day %s is not a catalog convective day", row.EventID, row.Day.Format("2006-01-02"))
		}
		if seen[row.Day] {
			p.errorf("row %s: duplicate day %s", row.EventID, row.Day.Format("2006-01-02"))
		}
		seen[row.Day] = true
		if row.Count != 0 || row.TotalEnergyW != 0 {
			p.errorf("row %s: non-event day carries event response fields", row.EventID)
		}
	}
	return p
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	if a == b {
		return true
	}
	scale := math.Max(math.Abs(a), math.Abs(b))
	return math.Abs(a-b) <= 1e-9*scale
}
