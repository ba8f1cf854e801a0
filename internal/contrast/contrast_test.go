package contrast

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/couchcryptid/tornado-bigday/internal/bigday"
	"github.com/couchcryptid/tornado-bigday/internal/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEvent(y int, m time.Month, d int) bigday.Event {
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return bigday.Event{
		ID:     "bigday-" + day.Format("20060102"),
		Day:    day,
		Domain: geo.Box(geo.Point{Lat: 35, Lon: -97}, 200),
	}
}

func testEvents() []bigday.Event {
	return []bigday.Event{
		makeEvent(2010, time.April, 5),
		makeEvent(2011, time.April, 27),
		makeEvent(2011, time.May, 24),
		makeEvent(2013, time.May, 31),
	}
}

// testCatalogDays covers every March through June day of 2010-2013, the kind
// of dense coverage a real catalog has across the active season.
func testCatalogDays() map[time.Time]struct{} {
	days := map[time.Time]struct{}{}
	for year := 2010; year <= 2013; year++ {
		for _, m := range []time.Month{time.March, time.April, time.May, time.June} {
			day := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
			for day.Month() == m {
				days[day] = struct{}{}
				day = day.AddDate(0, 0, 1)
			}
		}
	}
	return days
}

func TestDraw(t *testing.T) {
	opts := Options{N: 50, StartYear: 2010, EndYear: 2013, Seed: 42}

	t.Run("draws requested size", func(t *testing.T) {
		samples, err := Draw(testEvents(), testCatalogDays(), opts)
		require.NoError(t, err)
		assert.Len(t, samples, 50)
	})

	t.Run("deterministic for fixed seed", func(t *testing.T) {
		a, err := Draw(testEvents(), testCatalogDays(), opts)
		require.NoError(t, err)
		b, err := Draw(testEvents(), testCatalogDays(), opts)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("different seeds differ", func(t *testing.T) {
		a, err := Draw(testEvents(), testCatalogDays(), opts)
		require.NoError(t, err)
		alt := opts
		alt.Seed = 7
		b, err := Draw(testEvents(), testCatalogDays(), alt)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("excludes event days and duplicates", func(t *testing.T) {
		samples, err := Draw(testEvents(), testCatalogDays(), opts)
		require.NoError(t, err)

		eventDays := bigday.EventDays(testEvents())
		seen := map[time.Time]struct{}{}
		for _, s := range samples {
			_, isEvent := eventDays[s.Day]
			assert.False(t, isEvent, "sampled an event day %s", s.Day)
			_, dup := seen[s.Day]
			assert.False(t, dup, "duplicate day %s", s.Day)
			seen[s.Day] = struct{}{}
		}
	})

	t.Run("only event months and study years", func(t *testing.T) {
		samples, err := Draw(testEvents(), testCatalogDays(), opts)
		require.NoError(t, err)
		for _, s := range samples {
			assert.Contains(t, []time.Month{time.April, time.May}, s.Day.Month())
			assert.GreaterOrEqual(t, s.Day.Year(), 2010)
			assert.LessOrEqual(t, s.Day.Year(), 2013)
		}
	})

	t.Run("candidates come from the catalog", func(t *testing.T) {
		sparse := map[time.Time]struct{}{
			time.Date(2011, time.April, 2, 0, 0, 0, 0, time.UTC): {},
			time.Date(2011, time.May, 3, 0, 0, 0, 0, time.UTC):   {},
			time.Date(2012, time.May, 14, 0, 0, 0, 0, time.UTC):  {},
		}
		samples, err := Draw(testEvents(), sparse, Options{N: 3, StartYear: 2010, EndYear: 2013, Seed: 42})
		require.NoError(t, err)
		require.Len(t, samples, 3)
		for _, s := range samples {
			assert.Contains(t, sparse, s.Day)
		}
	})

	t.Run("months weighted by event frequency", func(t *testing.T) {
		events := []bigday.Event{makeEvent(2010, time.April, 14)}
		for i := 0; i < 9; i++ {
			events = append(events, makeEvent(2010+i%4, time.May, 1+i))
		}

		samples, err := Draw(events, testCatalogDays(), Options{N: 80, StartYear: 2010, EndYear: 2013, Seed: 42})
		require.NoError(t, err)

		may := 0
		for _, s := range samples {
			if s.Day.Month() == time.May {
				may++
			}
		}
		// 9 of 10 events are May days, so roughly nine draws in ten should be.
		assert.Greater(t, float64(may)/float64(len(samples)), 0.75)
	})

	t.Run("domains come from events", func(t *testing.T) {
		samples, err := Draw(testEvents(), testCatalogDays(), opts)
		require.NoError(t, err)
		for _, s := range samples {
			assert.NotEmpty(t, s.Domain)
		}
	})

	t.Run("sorted by day", func(t *testing.T) {
		samples, err := Draw(testEvents(), testCatalogDays(), opts)
		require.NoError(t, err)
		for i := 1; i < len(samples); i++ {
			assert.True(t, samples[i-1].Day.Before(samples[i].Day))
		}
	})

	t.Run("pool exhaustion", func(t *testing.T) {
		// April+May 2010-2013 have 4*(30+31)=244 days, minus 4 event days.
		_, err := Draw(testEvents(), testCatalogDays(), Options{N: 1000, StartYear: 2010, EndYear: 2013, Seed: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "candidates")
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := Draw(testEvents(), testCatalogDays(), Options{N: 0, StartYear: 2010, EndYear: 2013})
		require.Error(t, err)
		_, err = Draw(nil, testCatalogDays(), Options{N: 5, StartYear: 2010, EndYear: 2013})
		require.Error(t, err)
		_, err = Draw(testEvents(), testCatalogDays(), Options{N: 5, StartYear: 2013, EndYear: 2010})
		require.Error(t, err)
		_, err = Draw(testEvents(), nil, Options{N: 5, StartYear: 2010, EndYear: 2013})
		require.Error(t, err)
	})
}

func TestSampleDays_NoEventMonths(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	_, err := SampleDays(rng, testCatalogDays(), map[time.Time]struct{}{}, 5, 2010, 2013)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no event months")
}
