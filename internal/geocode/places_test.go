// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/waypointd/internal/config"
)

func testPlacesConfig(baseURL string) *config.PlacesConfig {
	return &config.PlacesConfig{
		Enabled:      true,
		BaseURL:      baseURL,
		APIKey:       "test-key",
		RadiusMeters: 1000,
		Type:         "restaurant",
		Language:     "th",
		Timeout:      2 * time.Second,
	}
}

const placesPayload = `{
	"status": "OK",
	"results": [
		{"name": "Som Tam Nua", "rating": 4.2, "user_ratings_total": 1200, "vicinity": "Siam Square",
		 "geometry": {"location": {"lat": 13.744, "lng": 100.534}}},
		{"name": "Jay Fai", "rating": 4.5, "user_ratings_total": 5000, "vicinity": "Mahachai Road",
		 "geometry": {"location": {"lat": 13.752, "lng": 100.504}}},
		{"name": "Thip Samai", "rating": 4.2, "user_ratings_total": 9000, "vicinity": "Mahachai Road",
		 "geometry": {"location": {"lat": 13.751, "lng": 100.504}}}
	]
}`

func TestNearbySortsByRating(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("key = %q", got)
		}
		if got := r.URL.Query().Get("radius"); got != "1000" {
			t.Errorf("radius = %q", got)
		}
		if _, err := w.Write([]byte(placesPayload)); err != nil {
			t.Fatal(err)
		}
	}))
	defer srv.Close()

	client := NewPlacesClient(testPlacesConfig(srv.URL))
	places, err := client.Nearby(context.Background(), 13.7563, 100.5018)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}

	if len(places) != 3 {
		t.Fatalf("expected 3 places, got %d", len(places))
	}
	// Highest rating first; equal ratings ordered by rating count.
	if places[0].Name != "Jay Fai" {
		t.Errorf("places[0] = %q, want Jay Fai", places[0].Name)
	}
	if places[1].Name != "Thip Samai" {
		t.Errorf("places[1] = %q, want Thip Samai (more ratings)", places[1].Name)
	}
	if places[2].Name != "Som Tam Nua" {
		t.Errorf("places[2] = %q, want Som Tam Nua", places[2].Name)
	}
}

func TestNearbyZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`)); err != nil {
			t.Fatal(err)
		}
	}))
	defer srv.Close()

	client := NewPlacesClient(testPlacesConfig(srv.URL))
	places, err := client.Nearby(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("Nearby failed: %v", err)
	}
	if len(places) != 0 {
		t.Errorf("expected empty result, got %d places", len(places))
	}
}

func TestNearbyProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte(`{"status": "REQUEST_DENIED"}`)); err != nil {
			t.Fatal(err)
		}
	}))
	defer srv.Close()

	client := NewPlacesClient(testPlacesConfig(srv.URL))
	if _, err := client.Nearby(context.Background(), 0, 0); err == nil {
		t.Fatal("expected error for REQUEST_DENIED")
	}
}
