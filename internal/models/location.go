// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package models

import (
	"time"
)

// FormattedTimeLayout is the human-readable timestamp format attached to
// every recorded event (day-first, matching the deployed frontend).
const FormattedTimeLayout = "02/01/2006 15:04:05"

// LocationEvent is a single device-reported position recorded in a user's
// history. Timestamp and DeviceID are set by the ingestion coordinator and
// are immutable once recorded. Address is best-effort enrichment and may
// be nil when the reverse-geocoding lookup failed.
type LocationEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	FormattedTime string    `json:"formatted_time"`
	DeviceID      string    `json:"device_id"`
	Latitude      float64   `json:"lat"`
	Longitude     float64   `json:"lon"`
	Accuracy      *float64  `json:"accuracy,omitempty"`
	Address       *string   `json:"address"`
}

// UserRecord is the durable per-user state: the set of devices seen for
// this user and a chronological, size-bounded location history.
//
// Devices grows monotonically; there is no removal path. FirstVisit is set
// once at creation and LastVisit is updated on every successful append.
type UserRecord struct {
	UserID     string          `json:"user_id"`
	Devices    []string        `json:"devices"`
	Locations  []LocationEvent `json:"locations"`
	FirstVisit time.Time       `json:"first_visit"`
	LastVisit  time.Time       `json:"last_visit"`
}

// NewUserRecord synthesizes an empty record for a previously unseen user.
func NewUserRecord(userID string, now time.Time) *UserRecord {
	return &UserRecord{
		UserID:     userID,
		Devices:    []string{},
		Locations:  []LocationEvent{},
		FirstVisit: now,
		LastVisit:  now,
	}
}

// HasDevice reports whether the given device ID is already known.
func (r *UserRecord) HasDevice(deviceID string) bool {
	for _, d := range r.Devices {
		if d == deviceID {
			return true
		}
	}
	return false
}

// LastLocation returns the most recently recorded event, or nil when the
// history is empty. The duplicate-suppression window compares only against
// this single event, not the full history.
func (r *UserRecord) LastLocation() *LocationEvent {
	if len(r.Locations) == 0 {
		return nil
	}
	return &r.Locations[len(r.Locations)-1]
}
