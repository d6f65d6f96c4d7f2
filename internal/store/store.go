// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

// Package store implements the durable per-user location history: one
// record per user ID in BadgerDB, a size-bounded location log, and
// write-once backup snapshot files taken before any truncation discards
// events.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/waypointd/internal/config"
	"github.com/tomtom215/waypointd/internal/logging"
	"github.com/tomtom215/waypointd/internal/metrics"
	"github.com/tomtom215/waypointd/internal/models"
)

// userKeyPrefix namespaces user records in BadgerDB.
const userKeyPrefix = "user:"

// ErrCorruptRecord indicates a stored record exists but cannot be
// decoded. History reads surface this; ingestion loads treat it as
// absent instead (accepted data-loss risk, logged).
var ErrCorruptRecord = errors.New("stored record is unreadable")

// Store owns the on-disk representation of user records. Callers must not
// retain records across calls; every ingestion re-reads and rewrites the
// whole record.
type Store struct {
	db           *badger.DB
	backupDir    string
	historyLimit int
}

// Open opens the BadgerDB history store and ensures the backup directory
// exists.
func Open(cfg *config.StorageConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithLogger(nil).
		WithInMemory(cfg.InMemory)
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	if err := os.MkdirAll(cfg.BackupDir, 0o750); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	return &Store{
		db:           db,
		backupDir:    cfg.BackupDir,
		historyLimit: cfg.HistoryLimit,
	}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the record for userID, or synthesizes a fresh one (empty
// devices and locations, firstVisit = now) when none exists. A stored but
// unreadable record is also treated as absent: the corrupt bytes are
// logged and will be overwritten by the next save.
func (s *Store) Load(ctx context.Context, userID string, now time.Time) (*models.UserRecord, error) {
	defer metrics.ObserveStoreOperation("load", time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var record *models.UserRecord
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get record: %w", err)
		}

		return item.Value(func(val []byte) error {
			var r models.UserRecord
			if err := json.Unmarshal(val, &r); err != nil {
				metrics.MalformedRecordsTotal.Inc()
				logging.Warn().Err(err).Str("user_id", userID).Msg("Could not read stored record, starting fresh")
				return nil
			}
			record = &r
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load record for %s: %w", userID, err)
	}

	if record == nil {
		record = models.NewUserRecord(userID, now)
	}
	return record, nil
}

// Save persists the record. The write is atomic from the reader's
// perspective: a concurrent load observes either the previous or the new
// record, never a partial one. A save failure is an ingestion failure;
// the in-memory mutation is not retried.
func (s *Store) Save(ctx context.Context, record *models.UserRecord) error {
	defer metrics.ObserveStoreOperation("save", time.Now())

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record for %s: %w", record.UserID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(userKeyPrefix+record.UserID), data)
	})
	if err != nil {
		return fmt.Errorf("save record for %s: %w", record.UserID, err)
	}
	return nil
}

// History returns the ordered location log for userID. A missing record
// yields an empty slice; an unreadable one yields ErrCorruptRecord.
func (s *Store) History(ctx context.Context, userID string) ([]models.LocationEvent, error) {
	defer metrics.ObserveStoreOperation("history", time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var events []models.LocationEvent
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			events = []models.LocationEvent{}
			return nil
		}
		if err != nil {
			return fmt.Errorf("get record: %w", err)
		}

		return item.Value(func(val []byte) error {
			var r models.UserRecord
			if err := json.Unmarshal(val, &r); err != nil {
				return fmt.Errorf("%w: %s", ErrCorruptRecord, err)
			}
			events = r.Locations
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	if events == nil {
		events = []models.LocationEvent{}
	}
	return events, nil
}
