// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

// Package geo provides pure geospatial math. No I/O, no failure modes.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the Haversine
// formula.
const earthRadiusMeters = 6371000.0

// Distance calculates the great-circle distance in meters between two
// WGS84 coordinates using the Haversine formula. It is symmetric, returns
// exactly 0 for identical inputs, and is numerically stable near
// antipodal points (the Sqrt argument is clamped to [0, 1]).
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	// Rounding can push a marginally above 1 for antipodal points, which
	// would make Sqrt(1-a) NaN.
	if a > 1 {
		a = 1
	} else if a < 0 {
		a = 0
	}

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
