// Waypointd - Location Event Ingestion and History
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/waypointd

package ingest

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/waypointd/internal/config"
	"github.com/tomtom215/waypointd/internal/models"
	"github.com/tomtom215/waypointd/internal/notify"
	"github.com/tomtom215/waypointd/internal/store"
)

// fakeEnricher returns a fixed address, or nil when empty.
type fakeEnricher struct {
	address string
	calls   int
}

func (f *fakeEnricher) Enrich(_ context.Context, _, _ float64) *string {
	f.calls++
	if f.address == "" {
		return nil
	}
	addr := f.address
	return &addr
}

// fakeNotifier records dispatched notifications.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (f *fakeNotifier) Dispatch(n *notify.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, *n)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type testPipeline struct {
	coordinator *Coordinator
	store       *store.Store
	enricher    *fakeEnricher
	notifier    *fakeNotifier
}

func newTestPipeline(t *testing.T, cfg *config.IngestConfig) *testPipeline {
	t.Helper()

	s, err := store.Open(&config.StorageConfig{
		Path:         t.TempDir(),
		BackupDir:    t.TempDir(),
		HistoryLimit: 100,
		InMemory:     true,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if cfg == nil {
		cfg = &config.IngestConfig{
			DuplicateWindow:       5 * time.Minute,
			DuplicateRadiusMeters: 10,
		}
	}
	enricher := &fakeEnricher{address: "Sukhumvit Road, Bangkok"}
	notifier := &fakeNotifier{}
	return &testPipeline{
		coordinator: NewCoordinator(s, enricher, notifier, cfg, time.UTC),
		store:       s,
		enricher:    enricher,
		notifier:    notifier,
	}
}

func coord(v float64) *models.Coordinate {
	c := models.Coordinate(v)
	return &c
}

func TestIngestRecordsEvent(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()

	result, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
		Latitude:  coord(13.7563),
		Longitude: coord(100.5018),
		UserID:    "alice",
	}, "Mozilla/5.0", "203.0.113.7")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.UserID != "alice" {
		t.Errorf("UserID = %q", result.UserID)
	}
	if result.Duplicate {
		t.Error("first submission flagged duplicate")
	}
	if result.Event == nil || result.Event.Address == nil {
		t.Fatal("expected enriched event")
	}
	if *result.Event.Address != "Sukhumvit Road, Bangkok" {
		t.Errorf("Address = %q", *result.Event.Address)
	}

	history, err := p.store.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 recorded event, got %d", len(history))
	}
	if p.notifier.count() != 1 {
		t.Errorf("expected 1 notification, got %d", p.notifier.count())
	}
	if !p.notifier.sent[0].NewDevice {
		t.Error("first device not flagged as new")
	}
}

func TestIngestGeneratesUserID(t *testing.T) {
	p := newTestPipeline(t, nil)

	result, err := p.coordinator.Ingest(context.Background(), &models.IngestRequest{
		Latitude:  coord(0),
		Longitude: coord(0),
	}, "ua", "ip")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.UserID == "" {
		t.Error("expected generated user ID")
	}
}

func TestIngestValidation(t *testing.T) {
	longID := make([]byte, maxUserIDLength+1)
	for i := range longID {
		longID[i] = 'a'
	}
	nan := math.NaN()
	inf := math.Inf(1)

	tests := []struct {
		name string
		req  models.IngestRequest
	}{
		{"missing latitude", models.IngestRequest{Longitude: coord(100)}},
		{"missing longitude", models.IngestRequest{Latitude: coord(13)}},
		{"latitude too high", models.IngestRequest{Latitude: coord(90.1), Longitude: coord(100)}},
		{"latitude too low", models.IngestRequest{Latitude: coord(-90.1), Longitude: coord(100)}},
		{"longitude too high", models.IngestRequest{Latitude: coord(13), Longitude: coord(180.1)}},
		{"longitude too low", models.IngestRequest{Latitude: coord(13), Longitude: coord(-180.1)}},
		{"NaN latitude", models.IngestRequest{Latitude: coord(math.NaN()), Longitude: coord(100)}},
		{"NaN longitude", models.IngestRequest{Latitude: coord(13), Longitude: coord(math.NaN())}},
		{"infinite latitude", models.IngestRequest{Latitude: coord(math.Inf(1)), Longitude: coord(100)}},
		{"infinite longitude", models.IngestRequest{Latitude: coord(13), Longitude: coord(math.Inf(-1))}},
		{"NaN accuracy", models.IngestRequest{Latitude: coord(13), Longitude: coord(100), Accuracy: &nan}},
		{"infinite accuracy", models.IngestRequest{Latitude: coord(13), Longitude: coord(100), Accuracy: &inf}},
		{"oversized user id", models.IngestRequest{Latitude: coord(13), Longitude: coord(100), UserID: string(longID)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(t, nil)
			tt.req.UserID = firstNonEmpty(tt.req.UserID, "victim")

			_, err := p.coordinator.Ingest(context.Background(), &tt.req, "ua", "ip")
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}

			// Rejected submissions leave no trace.
			history, err := p.store.History(context.Background(), tt.req.UserID)
			if err != nil {
				t.Fatalf("History failed: %v", err)
			}
			if len(history) != 0 {
				t.Errorf("validation failure mutated history: %d events", len(history))
			}
			if p.enricher.calls != 0 {
				t.Error("enricher called for rejected submission")
			}
			if p.notifier.count() != 0 {
				t.Error("notification sent for rejected submission")
			}
		})
	}
}

func TestAccuracyRecordedAsSubmitted(t *testing.T) {
	// Accuracy is caller-supplied and passes through untouched; only
	// non-finite values are rejected. Some clients report negative values
	// when the fix quality is unknown.
	p := newTestPipeline(t, nil)
	ctx := context.Background()
	accuracy := -1.0

	result, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
		Latitude:  coord(13.7563),
		Longitude: coord(100.5018),
		Accuracy:  &accuracy,
		UserID:    "alice",
	}, "ua", "ip")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.Event.Accuracy == nil || *result.Event.Accuracy != -1.0 {
		t.Errorf("Accuracy = %v, want -1.0 recorded as submitted", result.Event.Accuracy)
	}

	history, err := p.store.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 || history[0].Accuracy == nil || *history[0].Accuracy != -1.0 {
		t.Errorf("stored accuracy mismatch: %+v", history)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func TestDuplicateSuppressed(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	p.coordinator.now = func() time.Time { return base }

	if _, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
		Latitude: coord(13.7563), Longitude: coord(100.5018), UserID: "alice",
	}, "ua", "ip"); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}

	// One minute later, about 1.1 meters north: inside both thresholds.
	p.coordinator.now = func() time.Time { return base.Add(time.Minute) }
	result, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
		Latitude: coord(13.75631), Longitude: coord(100.5018), UserID: "alice",
	}, "ua", "ip")
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if !result.Duplicate {
		t.Fatal("expected duplicate suppression")
	}

	history, err := p.store.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("duplicate mutated history: %d events", len(history))
	}
	if p.enricher.calls != 1 {
		t.Errorf("enricher called %d times, duplicates must skip enrichment", p.enricher.calls)
	}
	if p.notifier.count() != 1 {
		t.Errorf("duplicate triggered a notification")
	}
}

func TestDuplicateWindowExpires(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	p.coordinator.now = func() time.Time { return base }

	if _, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
		Latitude: coord(13.7563), Longitude: coord(100.5018), UserID: "alice",
	}, "ua", "ip"); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}

	// Same spot, but 400 seconds later: outside the window, recorded.
	p.coordinator.now = func() time.Time { return base.Add(400 * time.Second) }
	result, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
		Latitude: coord(13.7563), Longitude: coord(100.5018), UserID: "alice",
	}, "ua", "ip")
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if result.Duplicate {
		t.Fatal("submission outside window flagged duplicate")
	}

	history, err := p.store.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("expected 2 events, got %d", len(history))
	}
}

func TestDuplicateRadiusExceeded(t *testing.T) {
	p := newTestPipeline(t, nil)
	ctx := context.Background()
	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	p.coordinator.now = func() time.Time { return base }

	if _, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
		Latitude: coord(13.7563), Longitude: coord(100.5018), UserID: "alice",
	}, "ua", "ip"); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}

	// One minute later but about 111 meters away: a real move.
	p.coordinator.now = func() time.Time { return base.Add(time.Minute) }
	result, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
		Latitude: coord(13.7573), Longitude: coord(100.5018), UserID: "alice",
	}, "ua", "ip")
	if err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}
	if result.Duplicate {
		t.Fatal("distant submission flagged duplicate")
	}
}

func TestEnrichmentFailureStillRecords(t *testing.T) {
	p := newTestPipeline(t, nil)
	p.enricher.address = ""
	ctx := context.Background()

	result, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
		Latitude: coord(13.7563), Longitude: coord(100.5018), UserID: "alice",
	}, "ua", "ip")
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.Event.Address != nil {
		t.Errorf("expected nil address, got %q", *result.Event.Address)
	}

	history, err := p.store.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected 1 event, got %d", len(history))
	}
	if history[0].Address != nil {
		t.Error("stored event has address despite enrichment failure")
	}
}

func TestConcurrentIngestsSameUserAllRecorded(t *testing.T) {
	// Zero window disables duplicate suppression so every submission must
	// survive the read-modify-write.
	p := newTestPipeline(t, &config.IngestConfig{DuplicateWindow: 0, DuplicateRadiusMeters: 10})
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
				Latitude:  coord(float64(i) * 0.01),
				Longitude: coord(100),
				UserID:    "alice",
			}, "ua", "ip")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Ingest failed: %v", err)
		}
	}

	history, err := p.store.History(ctx, "alice")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != n {
		t.Errorf("lost updates: %d of %d events recorded", len(history), n)
	}
}

func TestSecondDeviceNotFlaggedNew(t *testing.T) {
	p := newTestPipeline(t, &config.IngestConfig{DuplicateWindow: 0, DuplicateRadiusMeters: 10})
	ctx := context.Background()

	if _, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
		Latitude: coord(13), Longitude: coord(100), UserID: "alice",
	}, "ua-one", "ip"); err != nil {
		t.Fatalf("first Ingest failed: %v", err)
	}
	if _, err := p.coordinator.Ingest(ctx, &models.IngestRequest{
		Latitude: coord(14), Longitude: coord(100), UserID: "alice",
	}, "ua-one", "ip"); err != nil {
		t.Fatalf("second Ingest failed: %v", err)
	}

	if p.notifier.sent[0].NewDevice != true {
		t.Error("first sighting should be a new device")
	}
	if p.notifier.sent[1].NewDevice != false {
		t.Error("repeat sighting flagged as new device")
	}
}
