// Package energy computes tornado energy dissipation from path area and
// EF rating using empirical wind-speed distribution tables.
//
// A tornado rated EF j does not produce EF j winds over its whole damage
// path: most of the path sees weaker winds. The fraction of path area
// experiencing winds of each EF category, conditional on the highest rating,
// comes from damage-survey climatology. Energy dissipation is then
//
//	E = ρ · A · Σ_j w_j · v_j³   [W]
//
// with air density ρ = 1 kg/m³, path area A in m², w_j the area fraction in
// EF category j and v_j the category midpoint wind speed in m/s.
package energy

import "fmt"

// AirDensity is the near-surface air density used in the cube-law
// integration, kg/m³.
const AirDensity = 1.0

// midpointSpeeds holds the EF category midpoint wind speeds in m/s
// (EF0 through EF5).
var midpointSpeeds = [6]float64{29.1, 38.9, 49.2, 60.4, 74.0, 89.4}

// areaFractions[r][j] is the fraction of an EF r tornado's path area that
// experiences EF j winds. Each row sums to 1.
var areaFractions = [6][6]float64{
	{1.000, 0, 0, 0, 0, 0},
	{0.772, 0.228, 0, 0, 0, 0},
	{0.616, 0.269, 0.115, 0, 0, 0},
	{0.529, 0.271, 0.133, 0.067, 0, 0},
	{0.543, 0.238, 0.131, 0.056, 0.032, 0},
	{0.538, 0.223, 0.119, 0.070, 0.033, 0.017},
}

// defaultPathAreasM2 holds per-rating fallback path areas for catalog rows
// that report zero path length or width, derived from median surveyed path
// dimensions by rating.
var defaultPathAreasM2 = [6]float64{
	1.0e3 * 50,   // EF0: 1 km x 50 m
	3.0e3 * 100,  // EF1: 3 km x 100 m
	8.0e3 * 200,  // EF2: 8 km x 200 m
	15.0e3 * 400, // EF3: 15 km x 400 m
	30.0e3 * 600, // EF4: 30 km x 600 m
	50.0e3 * 800, // EF5: 50 km x 800 m
}

// Dissipation returns the energy dissipation in watts for a tornado with the
// given path area (m²) and EF rating. Ratings outside [0,5] are an error.
func Dissipation(areaM2 float64, rating int) (float64, error) {
	if rating < 0 || rating > 5 {
		return 0, fmt.Errorf("energy dissipation: rating %d outside EF0-EF5", rating)
	}
	if areaM2 < 0 {
		return 0, fmt.Errorf("energy dissipation: negative path area %g", areaM2)
	}

	var sum float64
	for j, w := range areaFractions[rating] {
		if w == 0 {
			continue
		}
		v := midpointSpeeds[j]
		sum += w * v * v * v
	}
	return AirDensity * areaM2 * sum, nil
}

// DefaultPathArea returns the fallback path area in m² for the given rating,
// used when the catalog row has a zero path dimension. Ratings outside [0,5]
// are an error.
func DefaultPathArea(rating int) (float64, error) {
	if rating < 0 || rating > 5 {
		return 0, fmt.Errorf("default path area: rating %d outside EF0-EF5", rating)
	}
	return defaultPathAreasM2[rating], nil
}
