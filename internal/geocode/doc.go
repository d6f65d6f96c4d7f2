// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

// Package geocode wraps the external reverse-geocoding and place-search
// collaborators. Both are thin HTTP boundaries: bounded timeouts, circuit
// breaker protection, and no retries. Address enrichment built on top of
// the reverse geocoder is strictly best-effort and never propagates
// failures to the ingestion pipeline.
package geocode
