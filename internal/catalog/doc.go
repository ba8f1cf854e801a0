// Package catalog reads and filters the SPC historical tornado catalog.
//
// # Data Source
//
// The NOAA Storm Prediction Center (SPC) publishes the "actual tornadoes"
// catalog as a single CSV covering 1950 to present, available at
// https://www.spc.noaa.gov/wcm/. One row per tornado segment, columns:
//
//	om    sequence number within the year
//	yr mo dy date  time  tz     date/time in the catalog's local standard time
//	st stf         two-letter state and FIPS code
//	mag            (E)F rating; -9 is the sentinel for unknown (post-2016 rows)
//	inj fat        injuries and fatalities
//	slat slon      touchdown coordinate
//	elat elon      lift-off coordinate (0 when unreported)
//	len            path length in statute miles
//	wid            maximum path width in yards
//
// # Time Conventions
//
// Catalog times carry tz=3 (CST, UTC-6) for essentially every row since 1950;
// the handful of rows with other codes are, per SPC's own documentation,
// recorded in CST anyway. All times are therefore interpreted as CST and
// converted to UTC before any derivation.
//
// The climatological unit of aggregation is the convective day: the 24 hours
// from 12:00 UTC to 11:59 UTC the next calendar day, labelled by the date of
// its starting 12Z. A tornado at 05:00 UTC on April 28 belongs to the
// April 27 convective day. Midnight-local clustering would split overnight
// outbreaks in half; the 12Z boundary keeps them whole.
//
// # Derived Fields
//
// Each report gets a path area (length x width, converted to m², falling back
// to a per-rating default when either dimension is zero) and an energy
// dissipation (see the energy package).
package catalog
