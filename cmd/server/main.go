// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

// Package main is the entry point for the Waypointd server.
//
// Waypointd ingests device-reported geolocation events, keeps a bounded
// per-user history with pre-truncation backup snapshots, enriches events
// with best-effort reverse-geocoded addresses, and notifies configured
// channels when a location is recorded.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: environment variables, config file, defaults (Koanf v2)
//  2. History store: BadgerDB-backed per-user records and backup snapshots
//  3. Geocoding: circuit-breaker protected reverse geocoder and optional
//     place search
//  4. Notifications: asynchronous dispatcher with SMTP delivery
//  5. Ingestion coordinator: the validate/dedupe/enrich/persist pipeline
//  6. HTTP server: REST API plus Prometheus metrics, run under a
//     supervision tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config.yaml, built-in defaults.
// See internal/config for the full key list.
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the HTTP
// server drains in-flight requests, the notification dispatcher drains
// queued deliveries, and the history store is closed last.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/waypointd/internal/api"
	"github.com/tomtom215/waypointd/internal/config"
	"github.com/tomtom215/waypointd/internal/geocode"
	"github.com/tomtom215/waypointd/internal/ingest"
	"github.com/tomtom215/waypointd/internal/logging"
	"github.com/tomtom215/waypointd/internal/notify"
	"github.com/tomtom215/waypointd/internal/store"
	"github.com/tomtom215/waypointd/internal/supervisor"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("version", version).Msg("Starting Waypointd")

	location := cfg.Location()

	historyStore, err := store.Open(&cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open history store")
	}
	defer func() {
		if err := historyStore.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing history store")
		}
	}()
	logging.Info().
		Str("path", cfg.Storage.Path).
		Int("history_limit", cfg.Storage.HistoryLimit).
		Msg("History store opened")

	// Reverse geocoding is best-effort: the enricher absorbs failures and
	// the circuit breaker sheds load when the provider misbehaves.
	geocoder := geocode.NewClient(&cfg.Geocode)
	enricher := geocode.NewEnricher(geocoder, cfg.Geocode.Timeout, cfg.Geocode.Enabled)

	var places *geocode.PlacesClient
	if cfg.Places.Enabled {
		places = geocode.NewPlacesClient(&cfg.Places)
		logging.Info().Msg("Place search enabled")
	}

	var channels []notify.Channel
	if cfg.Notify.Enabled {
		email, err := notify.NewEmailChannel(&cfg.Notify)
		if err != nil {
			logging.Warn().Err(err).Msg("Email channel not configured, notifications will be dropped")
		} else {
			channels = append(channels, email)
		}
	}
	dispatcher, err := notify.NewDispatcher(&cfg.Notify, channels...)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create notification dispatcher")
	}
	defer func() {
		if err := dispatcher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Notification dispatcher did not close cleanly")
		}
	}()

	coordinator := ingest.NewCoordinator(historyStore, enricher, dispatcher, &cfg.Ingest, location)

	handler := api.NewHandler(coordinator, historyStore, geocoder, placeSearcher(places), version)
	router := api.NewRouter(handler, &cfg.Security)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(dispatcher)
	tree.AddAPIService(supervisor.NewHTTPService(&cfg.Server, router))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited")
	}
	logging.Info().Msg("Waypointd stopped")
}

// placeSearcher avoids a typed-nil interface when place search is
// disabled.
func placeSearcher(places *geocode.PlacesClient) api.PlaceSearcher {
	if places == nil {
		return nil
	}
	return places
}
