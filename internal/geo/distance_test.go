// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package geo

import (
	"math"
	"testing"
)

func TestDistanceIdenticalPoints(t *testing.T) {
	coords := [][2]float64{
		{0, 0},
		{13.7563, 100.5018},
		{-90, 0},
		{90, 180},
		{45.5, -122.6},
	}

	for _, c := range coords {
		if d := Distance(c[0], c[1], c[0], c[1]); d != 0 {
			t.Errorf("Distance(%v, %v, same) = %v, want exactly 0", c[0], c[1], d)
		}
	}
}

func TestDistanceSymmetry(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
	}{
		{"bangkok to singapore", 13.7563, 100.5018, 1.3521, 103.8198},
		{"nyc to london", 40.7128, -74.0060, 51.5074, -0.1278},
		{"across date line", 35.0, 179.9, 35.0, -179.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ab := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			ba := Distance(tt.lat2, tt.lon2, tt.lat1, tt.lon1)
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("asymmetric: a->b=%v, b->a=%v", ab, ba)
			}
		})
	}
}

// One ten-thousandth of a degree of latitude is roughly 11.1 m everywhere
// on Earth, which pins the Haversine Earth-radius constant.
func TestDistanceLatitudeDegree(t *testing.T) {
	d := Distance(0, 0, 0.0001, 0)
	expected := 11.1

	if math.Abs(d-expected)/expected > 0.01 {
		t.Errorf("Distance for 0.0001 deg latitude = %v m, want ~%v m (1%% tolerance)", d, expected)
	}
}

func TestDistanceKnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		expectedM              float64
		toleranceM             float64
	}{
		// Reference distances computed with R=6371km Haversine
		{"bangkok nearby", 13.7563, 100.5018, 13.75631, 100.50181, 1.3, 0.2},
		{"equator quarter circumference", 0, 0, 0, 90, 10007543, 10000},
		{"pole to pole", 90, 0, -90, 0, 20015086, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(d-tt.expectedM) > tt.toleranceM {
				t.Errorf("Distance = %v m, want %v m ± %v", d, tt.expectedM, tt.toleranceM)
			}
		})
	}
}

func TestDistanceAntipodalStability(t *testing.T) {
	d := Distance(0, 0, 0, 180)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		t.Fatalf("antipodal distance is not finite: %v", d)
	}
	// Half the Earth's circumference
	expected := math.Pi * earthRadiusMeters
	if math.Abs(d-expected) > 1 {
		t.Errorf("antipodal distance = %v, want %v", d, expected)
	}
}
