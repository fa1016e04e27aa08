package sync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/repcoach/internal/cache"
	"github.com/claude/repcoach/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeBackend struct {
	batches [][]models.LoggedSet
	err     error
}

func (f *fakeBackend) PostLogs(ctx context.Context, sets []models.LoggedSet) error {
	f.batches = append(f.batches, sets)
	return f.err
}

func openCache(t *testing.T) *cache.StateDB {
	t.Helper()
	db, err := cache.Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.SetOfflineMode(true); err != nil {
		t.Fatal(err)
	}
	return db
}

func bufferLogs(t *testing.T, db *cache.StateDB, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := db.AddLog(models.LoggedSet{
			ID:           string(rune('a' + i)),
			ExerciseName: "Barbell Squats",
			SetNumber:    i + 1,
		}); err != nil {
			t.Fatal(err)
		}
	}
}

// TestSynchronizeOffline verifies no network attempt is made and the cache
// is untouched while offline.
func TestSynchronizeOffline(t *testing.T) {
	db := openCache(t)
	bufferLogs(t, db, 2)
	backend := &fakeBackend{}

	s := NewSyncer(db, backend, func() bool { return false }, testLogger())
	err := s.Synchronize(context.Background())
	if !errors.Is(err, ErrOffline) {
		t.Errorf("err = %v, want ErrOffline", err)
	}
	if len(backend.batches) != 0 {
		t.Errorf("requests = %d, want 0", len(backend.batches))
	}
	logs, _ := db.Logs()
	if len(logs) != 2 {
		t.Errorf("cache logs = %d, want 2 (untouched)", len(logs))
	}
}

// TestSynchronizeBatchesAllLogs verifies N buffered logs leave in one batch
// and the queue empties on success.
func TestSynchronizeBatchesAllLogs(t *testing.T) {
	db := openCache(t)
	bufferLogs(t, db, 3)
	backend := &fakeBackend{}

	s := NewSyncer(db, backend, func() bool { return true }, testLogger())
	if err := s.Synchronize(context.Background()); err != nil {
		t.Fatalf("synchronize: %v", err)
	}

	if len(backend.batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(backend.batches))
	}
	if len(backend.batches[0]) != 3 {
		t.Errorf("batch size = %d, want 3", len(backend.batches[0]))
	}
	logs, _ := db.Logs()
	if len(logs) != 0 {
		t.Errorf("cache logs = %d, want 0 after sync", len(logs))
	}
	unsynced, _ := db.HasUnsynced()
	if unsynced {
		t.Error("unsynced flag still set after successful sync")
	}
}

// TestSynchronizeFailureLeavesCache verifies a failed submission leaves the
// queue and the unsynced flag for a later retry.
func TestSynchronizeFailureLeavesCache(t *testing.T) {
	db := openCache(t)
	bufferLogs(t, db, 2)
	backend := &fakeBackend{err: errors.New("boom")}

	s := NewSyncer(db, backend, func() bool { return true }, testLogger())
	if err := s.Synchronize(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	logs, _ := db.Logs()
	if len(logs) != 2 {
		t.Errorf("cache logs = %d, want 2 (untouched)", len(logs))
	}
	unsynced, _ := db.HasUnsynced()
	if !unsynced {
		t.Error("unsynced flag dropped despite failure")
	}
}

// TestSynchronizeEmptyQueue verifies an empty queue syncs as a no-op.
func TestSynchronizeEmptyQueue(t *testing.T) {
	db := openCache(t)
	backend := &fakeBackend{}

	s := NewSyncer(db, backend, func() bool { return true }, testLogger())
	if err := s.Synchronize(context.Background()); err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if len(backend.batches) != 0 {
		t.Errorf("requests = %d, want 0 for empty queue", len(backend.batches))
	}
}

// TestAutoSyncOnReconnect is the end-to-end offline scenario: a set logged
// while offline is drained automatically when connectivity returns.
func TestAutoSyncOnReconnect(t *testing.T) {
	db := openCache(t)
	if err := db.AddLog(models.LoggedSet{
		ID:           "s1",
		ExerciseName: "Barbell Squats",
		SetNumber:    1,
		ActualReps:   10,
		ActualWeight: 100,
		RPE:          7,
	}); err != nil {
		t.Fatal(err)
	}
	unsynced, _ := db.HasUnsynced()
	if !unsynced {
		t.Fatal("expected unsynced data before reconnect")
	}

	backend := &fakeBackend{}
	m := NewMonitor(nil, time.Hour, testLogger())
	s := NewSyncer(db, backend, m.Online, testLogger())
	s.AttachAutoSync(m)

	m.SetOnline(true)

	if len(backend.batches) != 1 || len(backend.batches[0]) != 1 {
		t.Fatalf("batches = %+v, want one batch of one log", backend.batches)
	}
	if got := backend.batches[0][0]; got.ExerciseName != "Barbell Squats" || got.ActualReps != 10 {
		t.Errorf("synced log = %+v", got)
	}
	logs, _ := db.Logs()
	if len(logs) != 0 {
		t.Errorf("cache logs = %d, want 0", len(logs))
	}
	unsynced, _ = db.HasUnsynced()
	if unsynced {
		t.Error("unsynced flag still set after auto-sync")
	}
}

// TestAutoSyncRespectsSetting verifies a reconnect with auto-sync disabled
// leaves the queue alone.
func TestAutoSyncRespectsSetting(t *testing.T) {
	db := openCache(t)
	if err := db.SetAutoSync(false); err != nil {
		t.Fatal(err)
	}
	bufferLogs(t, db, 1)

	backend := &fakeBackend{}
	m := NewMonitor(nil, time.Hour, testLogger())
	s := NewSyncer(db, backend, m.Online, testLogger())
	s.AttachAutoSync(m)

	m.SetOnline(true)

	if len(backend.batches) != 0 {
		t.Errorf("requests = %d, want 0 with auto-sync disabled", len(backend.batches))
	}
	logs, _ := db.Logs()
	if len(logs) != 1 {
		t.Errorf("cache logs = %d, want 1", len(logs))
	}
}

// TestMonitorEdgeTriggered verifies handlers fire only on the
// offline-to-online transition.
func TestMonitorEdgeTriggered(t *testing.T) {
	m := NewMonitor(nil, time.Hour, testLogger())
	var fired int
	m.OnOnline(func() { fired++ })

	m.SetOnline(true)
	m.SetOnline(true) // still online: no edge
	m.SetOnline(false)
	m.SetOnline(true)

	if fired != 2 {
		t.Errorf("handler fired %d times, want 2", fired)
	}
	if !m.Online() {
		t.Error("monitor should report online")
	}
}

// TestMonitorProbeLoop verifies the probe loop drives state and Close stops
// it.
func TestMonitorProbeLoop(t *testing.T) {
	probeErr := errors.New("unreachable")
	var reachable atomic.Bool
	m := NewMonitor(func(ctx context.Context) error {
		if reachable.Load() {
			return nil
		}
		return probeErr
	}, 5*time.Millisecond, testLogger())

	m.Start()
	defer m.Close()

	time.Sleep(20 * time.Millisecond)
	if m.Online() {
		t.Error("monitor online despite failing probe")
	}

	reachable.Store(true)
	deadline := time.After(2 * time.Second)
	for !m.Online() {
		select {
		case <-deadline:
			t.Fatal("monitor never came online")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
