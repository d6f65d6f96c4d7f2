// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/waypointd/internal/logging"
	"github.com/tomtom215/waypointd/internal/metrics"
	"github.com/tomtom215/waypointd/internal/models"
)

// backupTimestampLayout names snapshot files by truncation time.
const backupTimestampLayout = "20060102_150405"

// Append adds event to the record in memory: registers the event's device
// if unseen, appends to the location log, and advances lastVisit. When the
// log exceeds the history limit, a backup snapshot of the full record is
// written before the oldest events are discarded. A failed backup write
// aborts the append; events are never discarded without a snapshot on
// disk.
func (s *Store) Append(record *models.UserRecord, event models.LocationEvent, now time.Time) error {
	if !record.HasDevice(event.DeviceID) {
		record.Devices = append(record.Devices, event.DeviceID)
	}
	record.Locations = append(record.Locations, event)
	record.LastVisit = now

	if len(record.Locations) > s.historyLimit {
		if err := s.writeBackup(record, now); err != nil {
			return fmt.Errorf("backup before truncation: %w", err)
		}
		record.Locations = record.Locations[len(record.Locations)-s.historyLimit:]
	}
	return nil
}

// writeBackup snapshots the full untruncated record to a write-once file
// in the backup directory. Existing snapshots are never overwritten; a
// same-second collision gets a numeric suffix.
func (s *Store) writeBackup(record *models.UserRecord, now time.Time) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", record.UserID, err)
	}

	base := fmt.Sprintf("location_history_%s_%s", record.UserID, now.Format(backupTimestampLayout))
	name := base + ".json"
	for i := 1; ; i++ {
		path := filepath.Join(s.backupDir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
		if os.IsExist(err) {
			name = fmt.Sprintf("%s_%d.json", base, i)
			continue
		}
		if err != nil {
			return fmt.Errorf("create snapshot file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			return fmt.Errorf("write snapshot file: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close snapshot file: %w", err)
		}

		metrics.BackupSnapshotsTotal.Inc()
		logging.Info().
			Str("user_id", record.UserID).
			Str("file", path).
			Int("events", len(record.Locations)).
			Msg("Backup snapshot written before truncation")
		return nil
	}
}
