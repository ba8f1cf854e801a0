// Package contrast draws the comparison sample: randomly selected non-event
// convective days whose environments are extracted the same way as event
// days. Big-day environments only mean something against the background of
// days that could have been big days and were not.
//
// Candidates come from the catalog's own convective days, and the draw is
// month-weighted: each month is chosen with probability proportional to its
// big-day count, so a May-heavy event set is compared against mostly May
// climatology rather than a uniform spread over the season.
package contrast

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/bigday"
	"github.com/couchcryptid/tornado-bigday/internal/geo"
)

// Sample is one drawn non-event day together with the event domain its
// covariates are extracted over.
type Sample struct {
	ID     string      `json:"id"`
	Day    time.Time   `json:"day"`
	Domain geo.Polygon `json:"domain"`
}

// Options controls the draw.
type Options struct {
	N         int
	StartYear int
	EndYear   int
	Seed      uint64
}

// SampleDays draws n distinct non-event convective days from catalogDays
// within the year range. Each draw first picks a month with probability
// proportional to its event-day count, then a remaining candidate day of
// that month uniformly. Deterministic for a fixed rng state.
func SampleDays(rng *rand.Rand, catalogDays, eventDays map[time.Time]struct{}, n, startYear, endYear int) ([]time.Time, error) {
	weights := monthWeights(eventDays)
	if len(weights) == 0 {
		return nil, fmt.Errorf("contrast draw: no event months to weight by")
	}

	pools := candidatePools(catalogDays, eventDays, weights, startYear, endYear)
	total := 0
	for _, pool := range pools {
		total += len(pool)
	}
	if total < n {
		return nil, fmt.Errorf("contrast draw: need %d days, only %d non-event candidates", n, total)
	}

	months := make([]time.Month, 0, len(weights))
	for m := range weights {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] < months[j] })

	days := make([]time.Time, 0, n)
	for len(days) < n {
		m := drawMonth(rng, months, weights, pools)
		pool := pools[m]
		i := rng.IntN(len(pool))
		days = append(days, pool[i])
		pool[i] = pool[len(pool)-1]
		pools[m] = pool[:len(pool)-1]
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, nil
}

// Draw selects opts.N non-event convective days from the catalog's days,
// month-weighted by big-day frequency, and pairs each with the domain of a
// uniformly drawn event. Deterministic for a fixed seed.
func Draw(events []bigday.Event, catalogDays map[time.Time]struct{}, opts Options) ([]Sample, error) {
	if opts.N < 1 {
		return nil, fmt.Errorf("contrast draw: sample size %d must be at least 1", opts.N)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("contrast draw: no events to weight months by")
	}
	if opts.StartYear > opts.EndYear {
		return nil, fmt.Errorf("contrast draw: year range %d-%d is empty", opts.StartYear, opts.EndYear)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	days, err := SampleDays(rng, catalogDays, bigday.EventDays(events), opts.N, opts.StartYear, opts.EndYear)
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, len(days))
	for i, day := range days {
		ev := events[rng.IntN(len(events))]
		samples[i] = Sample{
			ID:     fmt.Sprintf("contrast-%s", day.Format("20060102")),
			Day:    day,
			Domain: ev.Domain,
		}
	}
	return samples, nil
}

// monthWeights counts event days per calendar month.
func monthWeights(eventDays map[time.Time]struct{}) map[time.Month]int {
	weights := make(map[time.Month]int)
	for day := range eventDays {
		weights[day.Month()]++
	}
	return weights
}

// candidatePools groups the catalog's non-event days by month, keeping only
// event months within the year range. Pools are sorted so the draw depends
// only on the rng.
func candidatePools(catalogDays, eventDays map[time.Time]struct{}, weights map[time.Month]int, startYear, endYear int) map[time.Month][]time.Time {
	pools := make(map[time.Month][]time.Time, len(weights))
	for day := range catalogDays {
		if day.Year() < startYear || day.Year() > endYear {
			continue
		}
		if _, weighted := weights[day.Month()]; !weighted {
			continue
		}
		if _, isEvent := eventDays[day]; isEvent {
			continue
		}
		pools[day.Month()] = append(pools[day.Month()], day)
	}
	for _, pool := range pools {
		sort.Slice(pool, func(i, j int) bool { return pool[i].Before(pool[j]) })
	}
	return pools
}

// drawMonth picks a month by event-day weight among months that still have
// candidates.
func drawMonth(rng *rand.Rand, months []time.Month, weights map[time.Month]int, pools map[time.Month][]time.Time) time.Month {
	total := 0
	for _, m := range months {
		if len(pools[m]) > 0 {
			total += weights[m]
		}
	}

	r := rng.IntN(total)
	last := months[0]
	for _, m := range months {
		if len(pools[m]) == 0 {
			continue
		}
		last = m
		r -= weights[m]
		if r < 0 {
			return m
		}
	}
	return last
}
