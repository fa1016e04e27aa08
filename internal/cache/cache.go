// Package cache is the durable local store for offline-first operation: a
// SQLite-backed queue of workout plans and logged sets written while offline
// mode is enabled, drained to the backend by the sync engine. It also holds
// the user's sync settings and the session snapshot, so one state.db file
// carries everything the client persists.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/claude/repcoach/internal/models"
)

// Setting keys persisted in the settings table.
const (
	settingOfflineMode = "offline_mode"
	settingAutoSync    = "auto_sync"
)

// StateDB is the local state database. A single *sql.DB serializes access,
// and every record operation is individually atomic, so cache writes and a
// concurrent sync cannot corrupt each other.
type StateDB struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens (or creates) the SQLite state database at dir/state.db.
func Open(dir string, log *slog.Logger) (*StateDB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "state.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS plans (
			id      TEXT PRIMARY KEY,
			payload TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS logs (
			id         TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			name       TEXT PRIMARY KEY,
			data       TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating state schema: %w", err)
		}
	}

	return &StateDB{db: db, log: log}, nil
}

// Close closes the state database.
func (s *StateDB) Close() error {
	return s.db.Close()
}

func (s *StateDB) setting(key string, def bool) (bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value == "true", nil
}

func (s *StateDB) setSetting(key string, enabled bool) error {
	value := "false"
	if enabled {
		value = "true"
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("writing setting %s: %w", key, err)
	}
	return nil
}

// OfflineMode reports whether local durable buffering is enabled. Off by
// default; the user opts in.
func (s *StateDB) OfflineMode() (bool, error) {
	return s.setting(settingOfflineMode, false)
}

// SetOfflineMode toggles local durable buffering.
func (s *StateDB) SetOfflineMode(enabled bool) error {
	return s.setSetting(settingOfflineMode, enabled)
}

// AutoSync reports whether a connectivity recovery triggers a sync. On by
// default.
func (s *StateDB) AutoSync() (bool, error) {
	return s.setting(settingAutoSync, true)
}

// SetAutoSync toggles sync-on-reconnect.
func (s *StateDB) SetAutoSync(enabled bool) error {
	return s.setSetting(settingAutoSync, enabled)
}

// AddPlan caches a plan under the caller-supplied id. A no-op unless offline
// mode is enabled. Re-caching the same id replaces the payload.
func (s *StateDB) AddPlan(id string, plan models.WorkoutPlan) error {
	enabled, err := s.OfflineMode()
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT OR REPLACE INTO plans (id, payload) VALUES (?, ?)`, id, payload); err != nil {
		return fmt.Errorf("caching plan: %w", err)
	}
	s.log.Info("plan cached", "id", id)
	return nil
}

// AddLog buffers a logged set for later sync. A no-op unless offline mode is
// enabled. A set without an id gets a timestamp-derived one.
func (s *StateDB) AddLog(set models.LoggedSet) error {
	enabled, err := s.OfflineMode()
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}

	if set.ID == "" {
		set.ID = time.Now().UTC().Format(time.RFC3339Nano)
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encoding log: %w", err)
	}
	if _, err := s.db.Exec(
		`INSERT OR REPLACE INTO logs (id, payload) VALUES (?, ?)`, set.ID, payload); err != nil {
		return fmt.Errorf("caching log: %w", err)
	}
	s.log.Info("log cached", "id", set.ID, "exercise", set.ExerciseName)
	return nil
}

// Plans returns all cached plans, keyed by id.
func (s *StateDB) Plans() (map[string]models.WorkoutPlan, error) {
	rows, err := s.db.Query(`SELECT id, payload FROM plans`)
	if err != nil {
		return nil, fmt.Errorf("reading cached plans: %w", err)
	}
	defer rows.Close()

	plans := map[string]models.WorkoutPlan{}
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scanning cached plan: %w", err)
		}
		var plan models.WorkoutPlan
		if err := json.Unmarshal(payload, &plan); err != nil {
			return nil, fmt.Errorf("decoding cached plan %s: %w", id, err)
		}
		plans[id] = plan
	}
	return plans, rows.Err()
}

// Logs returns all buffered logged sets in insertion order.
func (s *StateDB) Logs() ([]models.LoggedSet, error) {
	rows, err := s.db.Query(`SELECT payload FROM logs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("reading cached logs: %w", err)
	}
	defer rows.Close()

	var logs []models.LoggedSet
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning cached log: %w", err)
		}
		var set models.LoggedSet
		if err := json.Unmarshal(payload, &set); err != nil {
			return nil, fmt.Errorf("decoding cached log: %w", err)
		}
		logs = append(logs, set)
	}
	return logs, rows.Err()
}

// ClearLogs empties the log queue after a confirmed sync.
func (s *StateDB) ClearLogs() error {
	if _, err := s.db.Exec(`DELETE FROM logs`); err != nil {
		return fmt.Errorf("clearing cached logs: %w", err)
	}
	return nil
}

// Clear empties both collections. Used by the explicit "clear local cache"
// action; irreversible.
func (s *StateDB) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM plans`); err != nil {
		return fmt.Errorf("clearing cached plans: %w", err)
	}
	if err := s.ClearLogs(); err != nil {
		return err
	}
	s.log.Info("local cache cleared")
	return nil
}

// HasUnsynced reports whether buffered logs are awaiting sync. Derived from
// the queue itself rather than a separate flag, so it can never disagree
// with the cache contents.
func (s *StateDB) HasUnsynced() (bool, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM logs`).Scan(&count); err != nil {
		return false, fmt.Errorf("counting cached logs: %w", err)
	}
	return count > 0, nil
}

// SaveSnapshot stores a session snapshot under name. Implements
// session.SnapshotStore.
func (s *StateDB) SaveSnapshot(name string, data []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO snapshots (name, data, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		name, data)
	if err != nil {
		return fmt.Errorf("saving snapshot %s: %w", name, err)
	}
	return nil
}

// LoadSnapshot returns the snapshot stored under name, or (nil, nil) when
// absent.
func (s *StateDB) LoadSnapshot(name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM snapshots WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", name, err)
	}
	return data, nil
}

// DeleteSnapshot removes the snapshot stored under name.
func (s *StateDB) DeleteSnapshot(name string) error {
	if _, err := s.db.Exec(`DELETE FROM snapshots WHERE name = ?`, name); err != nil {
		return fmt.Errorf("deleting snapshot %s: %w", name, err)
	}
	return nil
}
