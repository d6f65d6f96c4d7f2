// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package api

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/waypointd/internal/geocode"
	"github.com/tomtom215/waypointd/internal/ingest"
	"github.com/tomtom215/waypointd/internal/logging"
	"github.com/tomtom215/waypointd/internal/models"
)

// maxIngestBodyBytes bounds the ingest request body.
const maxIngestBodyBytes = 64 << 10

// Ingestor runs the location submission pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, req *models.IngestRequest, userAgent, sourceIP string) (*ingest.Result, error)
}

// HistoryReader reads a user's recorded location log.
type HistoryReader interface {
	History(ctx context.Context, userID string) ([]models.LocationEvent, error)
}

// Reverser resolves a coordinate to an address.
type Reverser interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// PlaceSearcher finds points of interest around a coordinate.
type PlaceSearcher interface {
	Nearby(ctx context.Context, lat, lon float64) ([]models.Place, error)
}

// Handler holds the endpoint implementations. Places may be nil when the
// place-search provider is not configured.
type Handler struct {
	ingestor  Ingestor
	history   HistoryReader
	reverser  Reverser
	places    PlaceSearcher
	version   string
	startedAt time.Time
}

// NewHandler creates the endpoint handler set.
func NewHandler(ingestor Ingestor, history HistoryReader, reverser Reverser, places PlaceSearcher, version string) *Handler {
	return &Handler{
		ingestor:  ingestor,
		history:   history,
		reverser:  reverser,
		places:    places,
		version:   version,
		startedAt: time.Now(),
	}
}

// Ingest handles POST /api/v1/locations.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	body := http.MaxBytesReader(w, r.Body, maxIngestBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, models.ErrCodeValidation, "request body is not valid JSON")
		return
	}

	result, err := h.ingestor.Ingest(r.Context(), &req, r.UserAgent(), sourceIP(r))
	switch {
	case errors.Is(err, ingest.ErrValidation):
		writeError(w, http.StatusBadRequest, models.ErrCodeValidation, err.Error())
		return
	case errors.Is(err, ingest.ErrPersistence):
		logging.Error().Err(err).Msg("Ingestion persistence failure")
		writeError(w, http.StatusInternalServerError, models.ErrCodeStorage, "could not persist location")
		return
	case err != nil:
		logging.Error().Err(err).Msg("Ingestion failure")
		writeError(w, http.StatusInternalServerError, models.ErrCodeInternal, "internal error")
		return
	}

	resp := models.IngestResponse{
		UserID:   result.UserID,
		DeviceID: result.DeviceID,
		Message:  "Location recorded",
	}
	if result.Duplicate {
		resp.Duplicate = true
		resp.Message = "Duplicate location ignored"
	}
	writeSuccess(w, http.StatusOK, resp)
}

// History handles GET /api/v1/locations/{userID}.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		writeError(w, http.StatusBadRequest, models.ErrCodeValidation, "user ID is required")
		return
	}

	events, err := h.history.History(r.Context(), userID)
	if err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("Could not read history")
		writeError(w, http.StatusInternalServerError, models.ErrCodeStorage, "could not read location history")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"user_id":   userID,
		"count":     len(events),
		"locations": events,
	})
}

// Geocode handles GET /api/v1/geocode: an ad-hoc reverse lookup that
// bypasses the ingestion pipeline. A provider miss is a success with a
// null address; a provider failure is an error.
func (h *Handler) Geocode(w http.ResponseWriter, r *http.Request) {
	lat, lon, ok := queryCoordinates(w, r)
	if !ok {
		return
	}

	result := models.GeocodeResult{Latitude: lat, Longitude: lon}
	address, err := h.reverser.Reverse(r.Context(), lat, lon)
	switch {
	case errors.Is(err, geocode.ErrNoResult):
	case err != nil:
		logging.Warn().Err(err).Msg("Reverse geocoding failed")
		writeError(w, http.StatusBadGateway, models.ErrCodeGeocoding, "reverse geocoding unavailable")
		return
	default:
		result.Address = &address
	}
	writeSuccess(w, http.StatusOK, result)
}

// Nearby handles GET /api/v1/nearby.
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	if h.places == nil {
		writeError(w, http.StatusServiceUnavailable, models.ErrCodeSearch, "place search is not configured")
		return
	}

	lat, lon, ok := queryCoordinates(w, r)
	if !ok {
		return
	}

	places, err := h.places.Nearby(r.Context(), lat, lon)
	if err != nil {
		logging.Warn().Err(err).Msg("Place search failed")
		writeError(w, http.StatusBadGateway, models.ErrCodeSearch, "place search unavailable")
		return
	}

	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"count":  len(places),
		"places": places,
	})
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// queryCoordinates parses and validates the lat/lon query parameters,
// writing the error response itself when they are unusable.
func queryCoordinates(w http.ResponseWriter, r *http.Request) (lat, lon float64, ok bool) {
	// ParseFloat accepts "NaN" and "Inf"; NaN also slips past range
	// comparisons, so both are rejected explicitly.
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, models.ErrCodeValidation, "lat must be a number between -90 and 90")
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, models.ErrCodeValidation, "lon must be a number between -180 and 180")
		return 0, 0, false
	}
	return lat, lon, true
}

// sourceIP extracts the client address for device fingerprinting. The
// RealIP middleware has already resolved forwarding headers; this only
// strips the port when one is present.
func sourceIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
