// Package geo provides the small set of spatial primitives the analysis
// needs: great-circle distance, convex hulls, polygon containment, and
// planar area on a lat/lon grid.
//
// Coordinates are WGS-84 degrees. Polygons are stored counter-clockwise
// without a duplicate closing vertex. Areas use a planar shoelace with a
// cos(latitude) longitude correction, which is accurate to well under a
// percent at the sub-synoptic scales (tens to a few hundred km) event
// domains span.
package geo

import (
	"math"
	"sort"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

// Point is a WGS-84 coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Polygon is an ordered ring of vertices, counter-clockwise, not closed.
type Polygon []Point

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// Centroid returns the arithmetic mean of the points.
// Returns the zero Point for an empty slice.
func Centroid(points []Point) Point {
	if len(points) == 0 {
		return Point{}
	}
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return Point{Lat: lat / n, Lon: lon / n}
}

// ConvexHull computes the convex hull of the points using Andrew's monotone
// chain, treating lon as x and lat as y. The result is counter-clockwise with
// collinear boundary points dropped. Fewer than 3 distinct input points yield
// a degenerate hull with that many vertices.
func ConvexHull(points []Point) Polygon {
	pts := dedupe(points)
	if len(pts) < 3 {
		return Polygon(pts)
	}

	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Lon != pts[j].Lon {
			return pts[i].Lon < pts[j].Lon
		}
		return pts[i].Lat < pts[j].Lat
	})

	// Lower hull.
	var lower []Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	// Upper hull.
	var upper []Point
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	// Drop the last point of each chain; it repeats the start of the other.
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return Polygon(pts)
	}
	return Polygon(hull)
}

// cross returns the z-component of (b-a) x (c-a). Positive means a left turn
// (counter-clockwise).
func cross(a, b, c Point) float64 {
	return (b.Lon-a.Lon)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lon-a.Lon)
}

func dedupe(points []Point) []Point {
	seen := make(map[Point]struct{}, len(points))
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Contains reports whether p lies inside the polygon (ray casting, boundary
// points count as inside for horizontal edges crossed). Degenerate polygons
// with fewer than 3 vertices contain nothing.
func (poly Polygon) Contains(p Point) bool {
	if len(poly) < 3 {
		return false
	}
	inside := false
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		pi, pj := poly[i], poly[j]
		if (pi.Lat > p.Lat) != (pj.Lat > p.Lat) {
			x := (pj.Lon-pi.Lon)*(p.Lat-pi.Lat)/(pj.Lat-pi.Lat) + pi.Lon
			if p.Lon < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// AreaKm2 returns the approximate polygon area in square kilometers: planar
// shoelace on a local equirectangular projection centered on the polygon's
// mean latitude.
func (poly Polygon) AreaKm2() float64 {
	if len(poly) < 3 {
		return 0
	}

	var meanLat float64
	for _, p := range poly {
		meanLat += p.Lat
	}
	meanLat /= float64(len(poly))

	kmPerDegLat := EarthRadiusKm * math.Pi / 180
	kmPerDegLon := kmPerDegLat * math.Cos(meanLat*math.Pi/180)

	var sum float64
	j := len(poly) - 1
	for i := 0; i < len(poly); i++ {
		xi := poly[i].Lon * kmPerDegLon
		yi := poly[i].Lat * kmPerDegLat
		xj := poly[j].Lon * kmPerDegLon
		yj := poly[j].Lat * kmPerDegLat
		sum += xj*yi - xi*yj
		j = i
	}
	return math.Abs(sum) / 2
}

// Buffer expands the polygon by displacing each vertex radially away from the
// centroid by km kilometers. Degenerate polygons (fewer than 3 vertices, or a
// collinear ring enclosing no area) become a square box of half-side km
// centered on the centroid.
func Buffer(poly Polygon, centroid Point, km float64) Polygon {
	if len(poly) < 3 || poly.AreaKm2() == 0 {
		return Box(centroid, km)
	}

	kmPerDegLat := EarthRadiusKm * math.Pi / 180
	kmPerDegLon := kmPerDegLat * math.Cos(centroid.Lat*math.Pi/180)

	out := make(Polygon, len(poly))
	for i, p := range poly {
		dx := (p.Lon - centroid.Lon) * kmPerDegLon
		dy := (p.Lat - centroid.Lat) * kmPerDegLat
		r := math.Hypot(dx, dy)
		if r == 0 {
			// Vertex on the centroid cannot be displaced radially; push north.
			out[i] = Point{Lat: p.Lat + km/kmPerDegLat, Lon: p.Lon}
			continue
		}
		scale := (r + km) / r
		out[i] = Point{
			Lat: centroid.Lat + dy*scale/kmPerDegLat,
			Lon: centroid.Lon + dx*scale/kmPerDegLon,
		}
	}
	return out
}

// Box returns a square polygon of half-side km centered on c,
// counter-clockwise.
func Box(c Point, km float64) Polygon {
	kmPerDegLat := EarthRadiusKm * math.Pi / 180
	kmPerDegLon := kmPerDegLat * math.Cos(c.Lat*math.Pi/180)
	dLat := km / kmPerDegLat
	dLon := km / kmPerDegLon
	return Polygon{
		{Lat: c.Lat - dLat, Lon: c.Lon - dLon},
		{Lat: c.Lat - dLat, Lon: c.Lon + dLon},
		{Lat: c.Lat + dLat, Lon: c.Lon + dLon},
		{Lat: c.Lat + dLat, Lon: c.Lon - dLon},
	}
}
