// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package ingest

import "errors"

// Sentinel errors exposed to the API layer. Everything else the pipeline
// can go wrong on (enrichment, notification) is absorbed and logged, never
// returned to the caller.
var (
	// ErrValidation marks a rejected submission. Nothing is read or
	// written for the user before validation passes.
	ErrValidation = errors.New("invalid location submission")

	// ErrPersistence marks a failed load or save of the user record.
	ErrPersistence = errors.New("could not persist location")
)
