// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package geocode

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/waypointd/internal/logging"
	"github.com/tomtom215/waypointd/internal/metrics"
)

// Reverser resolves coordinates to an address. *Client satisfies this;
// tests substitute fakes.
type Reverser interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Enricher performs best-effort address enrichment for location events.
// Any failure (timeout, network error, provider error, empty result)
// yields a nil address and a log line. Failures are never propagated: an
// unreachable geocoding provider must not block or fail ingestion.
type Enricher struct {
	reverser Reverser
	timeout  time.Duration
	enabled  bool
}

// NewEnricher wraps a reverse geocoder with the enrichment policy.
func NewEnricher(reverser Reverser, timeout time.Duration, enabled bool) *Enricher {
	return &Enricher{
		reverser: reverser,
		timeout:  timeout,
		enabled:  enabled,
	}
}

// Enrich returns the address for the coordinates, or nil when enrichment
// is disabled or the lookup failed.
func (e *Enricher) Enrich(ctx context.Context, lat, lon float64) *string {
	if !e.enabled || e.reverser == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	address, err := e.reverser.Reverse(ctx, lat, lon)
	if err != nil {
		if errors.Is(err, ErrNoResult) {
			metrics.EnrichmentsTotal.WithLabelValues("empty").Inc()
			logging.Debug().Float64("lat", lat).Float64("lon", lon).Msg("No address for coordinates")
		} else {
			metrics.EnrichmentsTotal.WithLabelValues("failure").Inc()
			logging.Warn().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("Could not get address")
		}
		return nil
	}

	metrics.EnrichmentsTotal.WithLabelValues("success").Inc()
	return &address
}
