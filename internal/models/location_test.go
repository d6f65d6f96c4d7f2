// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package models

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestCoordinateAcceptsNumbersAndStrings(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{"number", `{"latitude": 13.7563, "longitude": 100.5018}`, 13.7563},
		{"string", `{"latitude": "13.7563", "longitude": "100.5018"}`, 13.7563},
		{"integer", `{"latitude": 13, "longitude": 100}`, 13},
		{"negative string", `{"latitude": "-45.5", "longitude": "0"}`, -45.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req IngestRequest
			if err := json.Unmarshal([]byte(tt.body), &req); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if req.Latitude == nil {
				t.Fatal("latitude not decoded")
			}
			if got := req.Latitude.Float64(); got != tt.want {
				t.Errorf("latitude = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoordinateRejectsNonNumeric(t *testing.T) {
	for _, body := range []string{
		`{"latitude": "north", "longitude": 0}`,
		`{"latitude": true, "longitude": 0}`,
		`{"latitude": [13.75], "longitude": 0}`,
	} {
		var req IngestRequest
		if err := json.Unmarshal([]byte(body), &req); err == nil {
			t.Errorf("expected decode error for %s", body)
		}
	}
}

func TestCoordinateAbsentStaysNil(t *testing.T) {
	var req IngestRequest
	if err := json.Unmarshal([]byte(`{"longitude": 100}`), &req); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if req.Latitude != nil {
		t.Errorf("absent latitude decoded to %v", req.Latitude.Float64())
	}
}

func TestUserRecordDevicesAndLastLocation(t *testing.T) {
	now := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	record := NewUserRecord("alice", now)

	if record.HasDevice("dev-1") {
		t.Error("fresh record should have no devices")
	}
	if record.LastLocation() != nil {
		t.Error("fresh record should have no last location")
	}

	record.Devices = append(record.Devices, "dev-1")
	record.Locations = append(record.Locations,
		LocationEvent{DeviceID: "dev-1", Latitude: 1},
		LocationEvent{DeviceID: "dev-1", Latitude: 2},
	)

	if !record.HasDevice("dev-1") || record.HasDevice("dev-2") {
		t.Error("HasDevice mismatch")
	}
	last := record.LastLocation()
	if last == nil || last.Latitude != 2 {
		t.Errorf("LastLocation = %+v, want the newest event", last)
	}
}

func TestFormattedTimeLayout(t *testing.T) {
	ts := time.Date(2026, 8, 29, 17, 5, 9, 0, time.UTC)
	if got := ts.Format(FormattedTimeLayout); got != "29/08/2026 17:05:09" {
		t.Errorf("formatted time = %q", got)
	}
}
