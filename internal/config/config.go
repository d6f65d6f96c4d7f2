// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

// Package config provides layered configuration loading for Waypointd
// using Koanf v2: built-in defaults, an optional YAML file, and
// environment variables (highest priority).
//
// The loaded Config is constructed once in main and passed explicitly to
// each component; there is no implicit global configuration state.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Geocode  GeocodeConfig  `koanf:"geocode"`
	Places   PlacesConfig   `koanf:"places"`
	Notify   NotifyConfig   `koanf:"notify"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`

	// Timezone is the IANA zone applied to event timestamps at ingestion
	// time. Recorded timestamps keep this zone for their lifetime.
	Timezone string `koanf:"timezone" validate:"required"`
}

// StorageConfig holds history store settings.
type StorageConfig struct {
	// Path is the BadgerDB directory for per-user history records.
	Path string `koanf:"path" validate:"required"`

	// BackupDir receives write-once pre-truncation snapshot files.
	BackupDir string `koanf:"backup_dir" validate:"required"`

	// HistoryLimit bounds the per-user location log. When an append pushes
	// the log past this limit, a backup snapshot is written and only the
	// newest HistoryLimit events are retained.
	HistoryLimit int `koanf:"history_limit" validate:"min=1"`

	// InMemory runs BadgerDB without disk persistence. Test-only.
	InMemory bool `koanf:"in_memory"`
}

// IngestConfig holds duplicate-suppression thresholds.
type IngestConfig struct {
	// DuplicateWindow is the maximum elapsed time since the latest stored
	// event for the new event to be considered a potential duplicate.
	DuplicateWindow time.Duration `koanf:"duplicate_window" validate:"min=0"`

	// DuplicateRadiusMeters is the distance threshold below which an event
	// inside the window is suppressed as a repeat of the last one.
	DuplicateRadiusMeters float64 `koanf:"duplicate_radius_m" validate:"min=0"`
}

// GeocodeConfig holds reverse-geocoding (address enrichment) settings.
type GeocodeConfig struct {
	Enabled   bool          `koanf:"enabled"`
	BaseURL   string        `koanf:"base_url"`
	UserAgent string        `koanf:"user_agent"`
	Timeout   time.Duration `koanf:"timeout" validate:"min=1s"`
	Language  string        `koanf:"language"`
}

// PlacesConfig holds nearby place search provider settings.
type PlacesConfig struct {
	Enabled      bool          `koanf:"enabled"`
	BaseURL      string        `koanf:"base_url"`
	APIKey       string        `koanf:"api_key"`
	RadiusMeters int           `koanf:"radius_m" validate:"min=1"`
	Type         string        `koanf:"type"`
	Language     string        `koanf:"language"`
	Timeout      time.Duration `koanf:"timeout" validate:"min=1s"`
}

// NotifyConfig holds outbound email notification settings. Delivery is
// best-effort: incomplete credentials cause sends to be logged and
// dropped, never to fail an ingestion.
type NotifyConfig struct {
	Enabled      bool          `koanf:"enabled"`
	SMTPHost     string        `koanf:"smtp_host"`
	SMTPPort     int           `koanf:"smtp_port" validate:"min=1,max=65535"`
	SMTPUsername string        `koanf:"smtp_username"`
	SMTPPassword string        `koanf:"smtp_password"`
	SMTPStartTLS bool          `koanf:"smtp_starttls"`
	SMTPFrom     string        `koanf:"smtp_from"`
	SMTPFromName string        `koanf:"smtp_from_name"`
	Recipients   []string      `koanf:"recipients"`
	SendTimeout  time.Duration `koanf:"send_timeout" validate:"min=1s"`

	// CloseTimeout bounds how long shutdown waits for in-flight
	// notification deliveries to drain.
	CloseTimeout time.Duration `koanf:"close_timeout" validate:"min=1s"`
}

// SecurityConfig holds the HTTP surface protections.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"min=1s"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     8943,
			Timeout:  30 * time.Second,
			Timezone: "Asia/Bangkok",
		},
		Storage: StorageConfig{
			Path:         "/data/waypointd/history",
			BackupDir:    "/data/waypointd/backups",
			HistoryLimit: 100,
			InMemory:     false,
		},
		Ingest: IngestConfig{
			DuplicateWindow:       5 * time.Minute,
			DuplicateRadiusMeters: 10,
		},
		Geocode: GeocodeConfig{
			Enabled:   true,
			BaseURL:   "https://nominatim.openstreetmap.org",
			UserAgent: "waypointd",
			Timeout:   5 * time.Second,
			Language:  "th",
		},
		Places: PlacesConfig{
			Enabled:      false, // Requires an API key - opt-in only
			BaseURL:      "https://maps.googleapis.com/maps/api/place",
			APIKey:       "",
			RadiusMeters: 1000,
			Type:         "restaurant",
			Language:     "th",
			Timeout:      10 * time.Second,
		},
		Notify: NotifyConfig{
			Enabled:      false, // Requires SMTP credentials - opt-in only
			SMTPHost:     "",
			SMTPPort:     587,
			SMTPUsername: "",
			SMTPPassword: "",
			SMTPStartTLS: true,
			SMTPFrom:     "",
			SMTPFromName: "Waypointd",
			Recipients:   []string{},
			SendTimeout:  30 * time.Second,
			CloseTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for consistency. Struct tags cover
// range checks; cross-field and environment-dependent checks are done by
// hand.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("invalid server.timezone %q: %w", c.Server.Timezone, err)
	}

	if c.Places.Enabled && c.Places.APIKey == "" {
		return fmt.Errorf("places.api_key is required when places search is enabled")
	}

	return nil
}

// Location resolves the configured timezone. Validate must have passed.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
