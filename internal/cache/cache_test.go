package cache

import (
	"io"
	"log/slog"
	"testing"

	"github.com/claude/repcoach/internal/models"
)

func openTestDB(t *testing.T) *StateDB {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(t.TempDir(), log)
	if err != nil {
		t.Fatalf("open state db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestAddLogRespectsOfflineMode verifies nothing is written while offline
// mode is disabled, and exactly one record per call once enabled.
func TestAddLogRespectsOfflineMode(t *testing.T) {
	db := openTestDB(t)

	set := models.LoggedSet{ID: "a", ExerciseName: "Barbell Squats", SetNumber: 1, ActualReps: 10}
	if err := db.AddLog(set); err != nil {
		t.Fatalf("add log: %v", err)
	}
	logs, err := db.Logs()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Fatalf("logs = %d, want 0 with offline mode disabled", len(logs))
	}

	if err := db.SetOfflineMode(true); err != nil {
		t.Fatal(err)
	}
	if err := db.AddLog(set); err != nil {
		t.Fatal(err)
	}
	set2 := set
	set2.ID = "b"
	if err := db.AddLog(set2); err != nil {
		t.Fatal(err)
	}

	logs, err = db.Logs()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("logs = %d, want 2", len(logs))
	}
	if logs[0].ExerciseName != "Barbell Squats" || logs[0].ActualReps != 10 {
		t.Errorf("log round-trip mismatch: %+v", logs[0])
	}
}

// TestAddLogGeneratesID verifies a missing id is filled from the timestamp.
func TestAddLogGeneratesID(t *testing.T) {
	db := openTestDB(t)
	if err := db.SetOfflineMode(true); err != nil {
		t.Fatal(err)
	}
	if err := db.AddLog(models.LoggedSet{ExerciseName: "Deadlift"}); err != nil {
		t.Fatal(err)
	}
	logs, err := db.Logs()
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].ID == "" {
		t.Errorf("expected one log with generated id, got %+v", logs)
	}
}

// TestHasUnsynced verifies the flag tracks the queue contents.
func TestHasUnsynced(t *testing.T) {
	db := openTestDB(t)
	if err := db.SetOfflineMode(true); err != nil {
		t.Fatal(err)
	}

	unsynced, err := db.HasUnsynced()
	if err != nil {
		t.Fatal(err)
	}
	if unsynced {
		t.Error("empty cache reports unsynced data")
	}

	if err := db.AddLog(models.LoggedSet{ID: "x"}); err != nil {
		t.Fatal(err)
	}
	unsynced, err = db.HasUnsynced()
	if err != nil {
		t.Fatal(err)
	}
	if !unsynced {
		t.Error("cache with a buffered log reports no unsynced data")
	}

	if err := db.ClearLogs(); err != nil {
		t.Fatal(err)
	}
	unsynced, err = db.HasUnsynced()
	if err != nil {
		t.Fatal(err)
	}
	if unsynced {
		t.Error("cleared cache still reports unsynced data")
	}
}

// TestPlansUpsert verifies plan caching upserts by id.
func TestPlansUpsert(t *testing.T) {
	db := openTestDB(t)
	if err := db.SetOfflineMode(true); err != nil {
		t.Fatal(err)
	}

	plan := models.WorkoutPlan{WorkoutDays: []models.WorkoutDay{{DayName: "Day A"}}}
	if err := db.AddPlan("today", plan); err != nil {
		t.Fatal(err)
	}
	plan.WorkoutDays[0].DayName = "Day B"
	if err := db.AddPlan("today", plan); err != nil {
		t.Fatal(err)
	}

	plans, err := db.Plans()
	if err != nil {
		t.Fatal(err)
	}
	if len(plans) != 1 {
		t.Fatalf("plans = %d, want 1", len(plans))
	}
	if plans["today"].WorkoutDays[0].DayName != "Day B" {
		t.Errorf("upsert did not replace payload: %+v", plans["today"])
	}
}

// TestClear verifies both collections empty and the unsynced flag resets.
func TestClear(t *testing.T) {
	db := openTestDB(t)
	if err := db.SetOfflineMode(true); err != nil {
		t.Fatal(err)
	}
	if err := db.AddPlan("p", models.WorkoutPlan{}); err != nil {
		t.Fatal(err)
	}
	if err := db.AddLog(models.LoggedSet{ID: "l"}); err != nil {
		t.Fatal(err)
	}

	if err := db.Clear(); err != nil {
		t.Fatal(err)
	}

	plans, _ := db.Plans()
	logs, _ := db.Logs()
	unsynced, _ := db.HasUnsynced()
	if len(plans) != 0 || len(logs) != 0 || unsynced {
		t.Errorf("clear left plans=%d logs=%d unsynced=%v", len(plans), len(logs), unsynced)
	}
}

// TestSettingsPersist verifies toggles survive reopening the database.
func TestSettingsPersist(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()

	db, err := Open(dir, log)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SetOfflineMode(true); err != nil {
		t.Fatal(err)
	}
	if err := db.SetAutoSync(false); err != nil {
		t.Fatal(err)
	}
	db.Close()

	db, err = Open(dir, log)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	offline, err := db.OfflineMode()
	if err != nil {
		t.Fatal(err)
	}
	if !offline {
		t.Error("offline mode toggle lost across reopen")
	}
	auto, err := db.AutoSync()
	if err != nil {
		t.Fatal(err)
	}
	if auto {
		t.Error("auto-sync toggle lost across reopen")
	}
}

// TestAutoSyncDefaultsOn verifies the out-of-the-box auto-sync setting.
func TestAutoSyncDefaultsOn(t *testing.T) {
	db := openTestDB(t)
	auto, err := db.AutoSync()
	if err != nil {
		t.Fatal(err)
	}
	if !auto {
		t.Error("auto-sync should default to enabled")
	}
}

// TestSnapshotStore verifies the session snapshot round-trip and delete.
func TestSnapshotStore(t *testing.T) {
	db := openTestDB(t)

	data, err := db.LoadSnapshot("workout-storage")
	if err != nil {
		t.Fatal(err)
	}
	if data != nil {
		t.Errorf("missing snapshot should load as nil, got %q", data)
	}

	if err := db.SaveSnapshot("workout-storage", []byte(`{"plan":null}`)); err != nil {
		t.Fatal(err)
	}
	data, err = db.LoadSnapshot("workout-storage")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"plan":null}` {
		t.Errorf("snapshot = %q", data)
	}

	if err := db.DeleteSnapshot("workout-storage"); err != nil {
		t.Fatal(err)
	}
	data, err = db.LoadSnapshot("workout-storage")
	if err != nil {
		t.Fatal(err)
	}
	if data != nil {
		t.Error("snapshot survived delete")
	}
}
