// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

// Package api provides the HTTP surface: one ingest endpoint, history
// and enrichment reads, health, and Prometheus metrics. All endpoints
// use the standardized response envelope.
package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/waypointd/internal/logging"
	"github.com/tomtom215/waypointd/internal/models"
)

// writeJSON writes the envelope with the given status code.
func writeJSON(w http.ResponseWriter, status int, resp *models.APIResponse) {
	resp.Metadata.Timestamp = time.Now()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Could not encode response")
	}
}

// writeSuccess writes a success envelope around data.
func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, &models.APIResponse{
		Status: "success",
		Data:   data,
	})
}

// writeError writes an error envelope with a stable machine-readable
// code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, &models.APIResponse{
		Status: "error",
		Error: &models.APIError{
			Code:    code,
			Message: message,
		},
	})
}
