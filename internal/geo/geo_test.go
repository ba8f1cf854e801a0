package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64 // km
		tol      float64
	}{
		{"same point", Point{35, -97}, Point{35, -97}, 0, 0.001},
		{"one degree latitude", Point{35, -97}, Point{36, -97}, 111.2, 0.5},
		{"okc to tulsa", Point{35.47, -97.52}, Point{36.15, -95.99}, 157, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Haversine(tt.a, tt.b), tt.tol)
		})
	}
}

func TestCentroid(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, Point{}, Centroid(nil))
	})

	t.Run("mean of points", func(t *testing.T) {
		c := Centroid([]Point{{34, -98}, {36, -96}})
		assert.Equal(t, Point{Lat: 35, Lon: -97}, c)
	})
}

func TestConvexHull(t *testing.T) {
	t.Run("square with interior point", func(t *testing.T) {
		points := []Point{
			{0, 0}, {0, 2}, {2, 2}, {2, 0},
			{1, 1}, // interior, must be dropped
		}
		hull := ConvexHull(points)

		require.Len(t, hull, 4)
		for _, corner := range []Point{{0, 0}, {0, 2}, {2, 2}, {2, 0}} {
			assert.Contains(t, hull, corner)
		}
	})

	t.Run("collinear points collapse", func(t *testing.T) {
		hull := ConvexHull([]Point{{0, 0}, {1, 1}, {2, 2}})
		// No area; degenerate hull keeps the distinct points.
		assert.LessOrEqual(t, len(hull), 3)
		assert.Equal(t, 0.0, hull.AreaKm2())
	})

	t.Run("duplicates removed", func(t *testing.T) {
		hull := ConvexHull([]Point{{0, 0}, {0, 0}, {0, 1}})
		assert.Len(t, hull, 2)
	})

	t.Run("two points", func(t *testing.T) {
		hull := ConvexHull([]Point{{34.5, -98.1}, {35.2, -97.4}})
		assert.Len(t, hull, 2)
	})

	t.Run("counter-clockwise orientation", func(t *testing.T) {
		hull := ConvexHull([]Point{{0, 0}, {0, 2}, {2, 2}, {2, 0}})
		require.Len(t, hull, 4)
		var signed float64
		j := len(hull) - 1
		for i := range hull {
			signed += hull[j].Lon*hull[i].Lat - hull[i].Lon*hull[j].Lat
			j = i
		}
		assert.Positive(t, signed)
	})
}

func TestPolygonContains(t *testing.T) {
	square := Polygon{{0, 0}, {0, 10}, {10, 10}, {10, 0}}

	tests := []struct {
		name     string
		p        Point
		expected bool
	}{
		{"center", Point{5, 5}, true},
		{"outside north", Point{11, 5}, false},
		{"outside west", Point{5, -1}, false},
		{"near corner inside", Point{0.5, 0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, square.Contains(tt.p))
		})
	}

	t.Run("degenerate polygon contains nothing", func(t *testing.T) {
		line := Polygon{{0, 0}, {1, 1}}
		assert.False(t, line.Contains(Point{0.5, 0.5}))
	})
}

func TestAreaKm2(t *testing.T) {
	t.Run("one degree box at equator", func(t *testing.T) {
		box := Polygon{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
		// ~111.2 km per side.
		assert.InDelta(t, 111.2*111.2, box.AreaKm2(), 300)
	})

	t.Run("longitude shrinks with latitude", func(t *testing.T) {
		equator := Polygon{{0, 0}, {0, 1}, {1, 1}, {1, 0}}
		north := Polygon{{45, 0}, {45, 1}, {46, 1}, {46, 0}}
		assert.Less(t, north.AreaKm2(), equator.AreaKm2())
	})

	t.Run("degenerate", func(t *testing.T) {
		assert.Equal(t, 0.0, Polygon{{0, 0}, {1, 1}}.AreaKm2())
	})
}

func TestBuffer(t *testing.T) {
	t.Run("expands area", func(t *testing.T) {
		hull := ConvexHull([]Point{{34, -98}, {34, -96}, {36, -96}, {36, -98}})
		c := Centroid(hull)
		buffered := Buffer(hull, c, 75)

		assert.Greater(t, buffered.AreaKm2(), hull.AreaKm2())
		for _, p := range hull {
			assert.True(t, buffered.Contains(p), "buffered hull must contain original vertex %v", p)
		}
	})

	t.Run("collinear hull becomes box", func(t *testing.T) {
		// Touchdowns along a single latitude make a zero-area hull.
		hull := ConvexHull([]Point{{35, -99}, {35, -98}, {35, -97}})
		c := Centroid(hull)
		buffered := Buffer(hull, c, 50)

		require.Len(t, buffered, 4)
		assert.Positive(t, buffered.AreaKm2())
		assert.True(t, buffered.Contains(c))
	})

	t.Run("degenerate hull becomes box", func(t *testing.T) {
		buffered := Buffer(Polygon{{35, -97}}, Point{35, -97}, 50)
		require.Len(t, buffered, 4)
		assert.True(t, buffered.Contains(Point{35, -97}))
		// Box of half-side 50 km → area ~100x100 km².
		assert.InDelta(t, 100*100, buffered.AreaKm2(), 500)
	})
}

func TestBox(t *testing.T) {
	b := Box(Point{35, -97}, 100)
	require.Len(t, b, 4)
	assert.True(t, b.Contains(Point{35, -97}))
	assert.True(t, b.Contains(Point{35.5, -97.5}))
	assert.False(t, b.Contains(Point{37, -97}))
}
