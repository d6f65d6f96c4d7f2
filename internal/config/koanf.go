// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/waypointd/config.yaml",
	"/etc/waypointd/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load loads configuration with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if present)
//  3. Environment variables: override any setting
//
// Precedence: ENV > file > defaults. The result is validated before being
// returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines config paths parsed as comma-separated slices
// when sourced from environment variables.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"notify.recipients",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars arrive as strings, but the config expects
// slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML file)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so random environment noise cannot
// pollute the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":       "server.host",
		"http_port":       "server.port",
		"http_timeout":    "server.timeout",
		"server_timezone": "server.timezone",

		// Storage
		"storage_path":      "storage.path",
		"backup_dir":        "storage.backup_dir",
		"history_limit":     "storage.history_limit",
		"storage_in_memory": "storage.in_memory",

		// Ingest / duplicate suppression
		"duplicate_window":   "ingest.duplicate_window",
		"duplicate_radius_m": "ingest.duplicate_radius_m",

		// Reverse geocoding
		"geocode_enabled":    "geocode.enabled",
		"geocode_base_url":   "geocode.base_url",
		"geocode_user_agent": "geocode.user_agent",
		"geocode_timeout":    "geocode.timeout",
		"geocode_language":   "geocode.language",

		// Places search
		"places_enabled":      "places.enabled",
		"places_base_url":     "places.base_url",
		"places_api_key":      "places.api_key",
		"google_maps_api_key": "places.api_key", // Legacy name from the original deployment
		"places_radius_m":     "places.radius_m",
		"places_type":         "places.type",
		"places_language":     "places.language",
		"places_timeout":      "places.timeout",

		// Notification
		"notify_enabled":       "notify.enabled",
		"smtp_host":            "notify.smtp_host",
		"smtp_port":            "notify.smtp_port",
		"smtp_username":        "notify.smtp_username",
		"smtp_password":        "notify.smtp_password",
		"smtp_starttls":        "notify.smtp_starttls",
		"smtp_from":            "notify.smtp_from",
		"smtp_from_name":       "notify.smtp_from_name",
		"notify_recipients":    "notify.recipients",
		"notify_send_timeout":  "notify.send_timeout",
		"notify_close_timeout": "notify.close_timeout",

		// Security
		"cors_origins":        "security.cors_origins",
		"rate_limit_requests": "security.rate_limit_reqs",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}
