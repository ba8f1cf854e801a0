// Package bigday aggregates tornado reports into big-day events: convective
// days whose tornado count meets a threshold. Each event carries the counts,
// the summed energy dissipation, and a spatial domain built from the convex
// hull of the touchdown points buffered outward.
package bigday

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/catalog"
	"github.com/couchcryptid/tornado-bigday/internal/geo"
	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for GeneratedAt stamps. Pass nil to
// reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Event is one big day: a convective day with Count tornadoes at or above
// the clustering threshold.
type Event struct {
	ID            string      `json:"id"`
	Day           time.Time   `json:"day"` // midnight-UTC convective-day label
	Count         int         `json:"count"`
	CountByRating [6]int      `json:"count_by_rating"` // index = EF rating
	TotalEnergyW  float64     `json:"total_energy_w"`
	Centroid      geo.Point   `json:"centroid"`
	Domain        geo.Polygon `json:"domain"` // buffered hull of touchdowns
	DomainAreaKm2 float64     `json:"domain_area_km2"`
	GeneratedAt   time.Time   `json:"generated_at"`
}

// Options controls event construction.
type Options struct {
	MinCount int     // minimum tornadoes per convective day (≥ 1)
	BufferKm float64 // outward hull displacement
}

// Cluster groups reports by convective day and returns an Event for every day
// with at least MinCount reports, sorted by day. Reports must carry derived
// fields (ConvectiveDay, EnergyW); a zero ConvectiveDay is an error.
func Cluster(reports []catalog.Report, opts Options) ([]Event, error) {
	if opts.MinCount < 1 {
		return nil, fmt.Errorf("cluster: min count %d must be at least 1", opts.MinCount)
	}
	if opts.BufferKm < 0 {
		return nil, fmt.Errorf("cluster: negative buffer %g km", opts.BufferKm)
	}

	byDay := make(map[time.Time][]catalog.Report)
	for _, rep := range reports {
		if rep.ConvectiveDay.IsZero() {
			return nil, fmt.Errorf("cluster: report %d has no convective day", rep.Seq)
		}
		byDay[rep.ConvectiveDay] = append(byDay[rep.ConvectiveDay], rep)
	}

	events := make([]Event, 0, len(byDay))
	for day, members := range byDay {
		if len(members) < opts.MinCount {
			continue
		}
		ev, err := buildEvent(day, members, opts.BufferKm)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Day.Before(events[j].Day) })
	return events, nil
}

func buildEvent(day time.Time, members []catalog.Report, bufferKm float64) (Event, error) {
	ev := Event{
		ID:          eventID(day, len(members)),
		Day:         day,
		Count:       len(members),
		GeneratedAt: clock.Now().UTC(),
	}

	points := make([]geo.Point, len(members))
	for i, rep := range members {
		if rep.Rating < 0 || rep.Rating > 5 {
			return Event{}, fmt.Errorf("cluster: report %d rating %d outside EF0-EF5", rep.Seq, rep.Rating)
		}
		ev.CountByRating[rep.Rating]++
		ev.TotalEnergyW += rep.EnergyW
		points[i] = rep.Touchdown
	}

	ev.Centroid = geo.Centroid(points)
	hull := geo.ConvexHull(points)
	ev.Domain = geo.Buffer(hull, ev.Centroid, bufferKm)
	ev.DomainAreaKm2 = ev.Domain.AreaKm2()
	return ev, nil
}

// eventID produces a deterministic ID from the day and count, following the
// short-hash convention used across the org's storm pipelines: reprocessing
// the same catalog yields the same ID.
func eventID(day time.Time, count int) string {
	input := fmt.Sprintf("%s|%d", day.Format("2006-01-02"), count)
	hash := sha256.Sum256([]byte(input))
	return "bigday-" + hex.EncodeToString(hash[:8])
}

// EventDays returns the set of convective-day labels covered by events.
func EventDays(events []Event) map[time.Time]struct{} {
	days := make(map[time.Time]struct{}, len(events))
	for _, ev := range events {
		days[ev.Day] = struct{}{}
	}
	return days
}
