// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints. Status is "success" or "error"; Error is populated only for
// error responses.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError carries a machine-readable error code and a human-readable
// message. Codes are stable; messages are not.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes returned by the API layer.
const (
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeStorage     = "STORAGE_ERROR"
	ErrCodeGeocoding   = "GEOCODING_ERROR"
	ErrCodeSearch      = "SEARCH_ERROR"
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeRateLimited = "RATE_LIMITED"
	ErrCodeInternal    = "INTERNAL_ERROR"
)

// Coordinate is a float64 that also accepts quoted numeric strings during
// JSON decoding. Browser geolocation clients are inconsistent about
// whether they send coordinates as numbers or strings, so the ingest
// endpoint tolerates both.
type Coordinate float64

// UnmarshalJSON implements json.Unmarshaler, accepting both 13.75 and
// "13.75" on the wire.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*c = Coordinate(v)
		return nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*c = Coordinate(f)
		return nil
	default:
		return fmt.Errorf("coordinate must be numeric, got %s", string(data))
	}
}

// Float64 returns the coordinate as a plain float64.
func (c Coordinate) Float64() float64 {
	return float64(c)
}

// IngestRequest is the POST /api/v1/locations request body. Latitude and
// longitude are required; a nil pointer after decoding means the field was
// absent. UserID is optional; a fresh one is generated when empty.
type IngestRequest struct {
	Latitude  *Coordinate `json:"latitude"`
	Longitude *Coordinate `json:"longitude"`
	Accuracy  *float64    `json:"accuracy,omitempty"`
	UserID    string      `json:"user_id,omitempty"`
}

// IngestResponse is the ingest endpoint's success payload. Duplicate
// submissions inside the suppression window also report success so that
// polling clients see no error.
type IngestResponse struct {
	UserID    string `json:"user_id"`
	DeviceID  string `json:"device_id"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Message   string `json:"message"`
}

// Place is a single nearby-search result from the external places
// provider, sorted by rating (highest first) before being returned.
type Place struct {
	Name             string  `json:"name"`
	Rating           float64 `json:"rating"`
	UserRatingsTotal int     `json:"user_ratings_total"`
	Vicinity         string  `json:"vicinity"`
	Latitude         float64 `json:"lat"`
	Longitude        float64 `json:"lng"`
}

// GeocodeResult is the ad-hoc reverse geocoding payload.
type GeocodeResult struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Address   *string `json:"address"`
}
