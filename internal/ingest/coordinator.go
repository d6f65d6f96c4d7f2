// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

// Package ingest coordinates the location submission pipeline: validate,
// suppress duplicates, enrich with a best-effort address, persist, then
// notify asynchronously. Submissions for the same user are serialized so
// concurrent requests cannot overwrite each other's appends.
package ingest

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/waypointd/internal/config"
	"github.com/tomtom215/waypointd/internal/device"
	"github.com/tomtom215/waypointd/internal/geo"
	"github.com/tomtom215/waypointd/internal/logging"
	"github.com/tomtom215/waypointd/internal/metrics"
	"github.com/tomtom215/waypointd/internal/models"
	"github.com/tomtom215/waypointd/internal/notify"
	"github.com/tomtom215/waypointd/internal/store"
)

// maxUserIDLength bounds caller-supplied user IDs.
const maxUserIDLength = 128

// Enricher resolves a coordinate to a human-readable address, or nil when
// it cannot.
type Enricher interface {
	Enrich(ctx context.Context, lat, lon float64) *string
}

// Notifier accepts fire-and-forget notifications.
type Notifier interface {
	Dispatch(n *notify.Notification)
}

// Result is the outcome of a successful ingestion. Duplicate submissions
// are successes: the caller sees which user and device the submission
// resolved to, with Duplicate set and nothing recorded.
type Result struct {
	UserID    string
	DeviceID  string
	Duplicate bool
	Event     *models.LocationEvent
}

// Coordinator runs the ingestion pipeline.
type Coordinator struct {
	store     *store.Store
	enricher  Enricher
	notifier  Notifier
	window    time.Duration
	radius    float64
	location  *time.Location
	userLocks sync.Map // userID -> *sync.Mutex
	now       func() time.Time
}

// NewCoordinator wires the pipeline. loc is the timezone recorded
// timestamps are rendered in.
func NewCoordinator(s *store.Store, enricher Enricher, notifier Notifier, cfg *config.IngestConfig, loc *time.Location) *Coordinator {
	return &Coordinator{
		store:    s,
		enricher: enricher,
		notifier: notifier,
		window:   cfg.DuplicateWindow,
		radius:   cfg.DuplicateRadiusMeters,
		location: loc,
		now:      time.Now,
	}
}

// Ingest processes one location submission. userAgent and sourceIP come
// from the transport and feed the device fingerprint. Returns
// ErrValidation for rejected input and ErrPersistence when the record
// cannot be loaded or saved; all other pipeline failures degrade silently.
func (c *Coordinator) Ingest(ctx context.Context, req *models.IngestRequest, userAgent, sourceIP string) (*Result, error) {
	start := time.Now()

	if err := validate(req); err != nil {
		metrics.IngestsTotal.WithLabelValues(metrics.OutcomeValidationError).Inc()
		return nil, err
	}
	lat := req.Latitude.Float64()
	lon := req.Longitude.Float64()

	userID := req.UserID
	if userID == "" {
		userID = uuid.NewString()
	}
	deviceID := device.Fingerprint(userAgent, sourceIP)

	// Serialize the read-modify-write per user. Distinct users proceed
	// concurrently.
	mu := c.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	now := c.now().In(c.location)

	record, err := c.store.Load(ctx, userID, now)
	if err != nil {
		metrics.IngestsTotal.WithLabelValues(metrics.OutcomePersistenceError).Inc()
		return nil, fmt.Errorf("%w: %s", ErrPersistence, err)
	}

	if c.isDuplicate(record, lat, lon, now) {
		metrics.IngestsTotal.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		metrics.IngestDuration.Observe(time.Since(start).Seconds())
		logging.Debug().
			Str("user_id", userID).
			Str("device_id", deviceID).
			Msg("Duplicate location suppressed")
		return &Result{UserID: userID, DeviceID: deviceID, Duplicate: true}, nil
	}

	// Best effort: a nil address never fails the ingestion.
	address := c.enricher.Enrich(ctx, lat, lon)

	event := models.LocationEvent{
		Timestamp:     now,
		FormattedTime: now.Format(models.FormattedTimeLayout),
		DeviceID:      deviceID,
		Latitude:      lat,
		Longitude:     lon,
		Accuracy:      req.Accuracy,
		Address:       address,
	}

	newDevice := !record.HasDevice(deviceID)
	if err := c.store.Append(record, event, now); err != nil {
		metrics.IngestsTotal.WithLabelValues(metrics.OutcomePersistenceError).Inc()
		return nil, fmt.Errorf("%w: %s", ErrPersistence, err)
	}
	if err := c.store.Save(ctx, record); err != nil {
		metrics.IngestsTotal.WithLabelValues(metrics.OutcomePersistenceError).Inc()
		return nil, fmt.Errorf("%w: %s", ErrPersistence, err)
	}

	c.notifier.Dispatch(&notify.Notification{
		UserID:        userID,
		DeviceID:      deviceID,
		FormattedTime: event.FormattedTime,
		Latitude:      lat,
		Longitude:     lon,
		Accuracy:      req.Accuracy,
		Address:       address,
		NewDevice:     newDevice,
	})

	metrics.IngestsTotal.WithLabelValues(metrics.OutcomeRecorded).Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	logging.Info().
		Str("user_id", userID).
		Str("device_id", deviceID).
		Float64("lat", lat).
		Float64("lon", lon).
		Bool("new_device", newDevice).
		Msg("Location recorded")

	return &Result{UserID: userID, DeviceID: deviceID, Event: &event}, nil
}

// isDuplicate reports whether the submission repeats the user's single
// most recent event: closer than the radius threshold and newer than the
// time window. Older history is never consulted.
func (c *Coordinator) isDuplicate(record *models.UserRecord, lat, lon float64, now time.Time) bool {
	last := record.LastLocation()
	if last == nil {
		return false
	}
	elapsed := now.Sub(last.Timestamp)
	if elapsed < 0 || elapsed >= c.window {
		return false
	}
	return geo.Distance(lat, lon, last.Latitude, last.Longitude) < c.radius
}

// lockFor returns the mutex serializing submissions for one user. Locks
// are never reclaimed; the user population is small and bounded.
func (c *Coordinator) lockFor(userID string) *sync.Mutex {
	v, _ := c.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// validate rejects malformed submissions before any state is touched.
// NaN compares false against every bound, so non-finite values need their
// own check; without it they survive to the store and only fail at JSON
// marshal time.
func validate(req *models.IngestRequest) error {
	if req.Latitude == nil {
		return fmt.Errorf("%w: latitude is required", ErrValidation)
	}
	if req.Longitude == nil {
		return fmt.Errorf("%w: longitude is required", ErrValidation)
	}
	if lat := req.Latitude.Float64(); math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("%w: latitude must be between -90 and 90", ErrValidation)
	}
	if lon := req.Longitude.Float64(); math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: longitude must be between -180 and 180", ErrValidation)
	}
	if req.Accuracy != nil && (math.IsNaN(*req.Accuracy) || math.IsInf(*req.Accuracy, 0)) {
		return fmt.Errorf("%w: accuracy must be a finite number", ErrValidation)
	}
	if len(req.UserID) > maxUserIDLength {
		return fmt.Errorf("%w: user_id must not exceed %d characters", ErrValidation, maxUserIDLength)
	}
	return nil
}
