// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

// Package models defines the core data types shared across Waypointd:
// location events, per-user history records, and the standardized API
// response envelope.
package models
