// Package session implements the workout-session state container: the active
// plan, the (exercise, set) cursor, in-progress input values, logged sets and
// the rest timer. A Session is an explicit object handed to callers rather
// than a global; every mutation is applied under a single lock and snapshotted
// to durable storage so a restart resumes exactly where the user left off.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repcoach/internal/models"
)

// SnapshotName keys the durable session snapshot in the snapshot store.
const SnapshotName = "workout-storage"

// DefaultRestSeconds is used when StartRest is called without a duration and
// no default was configured.
const DefaultRestSeconds = 60

// SnapshotStore persists session snapshots. Implemented by cache.StateDB.
type SnapshotStore interface {
	SaveSnapshot(name string, data []byte) error
	// LoadSnapshot returns (nil, nil) when no snapshot exists.
	LoadSnapshot(name string) ([]byte, error)
	DeleteSnapshot(name string) error
}

// Snapshot is the durable portion of the session state. Behavior (timers,
// store handles) is never persisted; only these fields round-trip.
//
// CurrentWeight, CurrentReps and CurrentRPE are pointers so that "not yet
// initialized from the exercise targets" is distinct from a user-entered
// zero.
type Snapshot struct {
	Plan                 *models.WorkoutPlan `json:"plan"`
	CurrentExerciseIndex int                 `json:"current_exercise_index"`
	CurrentSetIndex      int                 `json:"current_set_index"`
	CurrentWeight        *float64            `json:"current_weight"`
	CurrentReps          *int                `json:"current_reps"`
	CurrentRPE           *int                `json:"current_rpe"`
	LoggedSets           []models.LoggedSet  `json:"logged_sets"`
	Resting              bool                `json:"resting"`
	RestRemaining        int                 `json:"rest_remaining"`
	Completed            bool                `json:"completed"`
}

// NextPreview describes the upcoming target for the "next up" display.
type NextPreview struct {
	ExerciseName string `json:"exercise_name"`
	SetNumber    int    `json:"set_number"` // 1-based
	Reps         string `json:"reps"`
}

// Session is the progression store for one active workout. Safe for use from
// multiple goroutines (the rest timer ticks concurrently with UI actions).
type Session struct {
	mu          sync.Mutex
	log         *slog.Logger
	store       SnapshotStore
	defaultRest int

	state Snapshot
	timer *restTimer

	// newTicker is swappable so tests can drive the countdown manually.
	newTicker tickerFunc
}

// New creates a Session. store may be nil to disable persistence. If a
// snapshot exists under SnapshotName it is restored; a corrupt or unreadable
// snapshot is logged and discarded rather than failing construction, since
// losing a resumable session is recoverable.
func New(store SnapshotStore, defaultRestSeconds int, log *slog.Logger) *Session {
	if defaultRestSeconds <= 0 {
		defaultRestSeconds = DefaultRestSeconds
	}
	s := &Session{
		log:         log,
		store:       store,
		defaultRest: defaultRestSeconds,
		newTicker:   defaultTicker,
	}
	if store != nil {
		if err := s.restore(); err != nil {
			log.Warn("session snapshot restore failed", "error", err)
		}
	}
	return s
}

func (s *Session) restore() error {
	data, err := s.store.LoadSnapshot(SnapshotName)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if data == nil {
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	// A restored session never resumes mid-countdown; the user re-starts rest.
	snap.Resting = false
	snap.RestRemaining = 0
	s.state = snap
	return nil
}

// saveLocked snapshots the current state. Callers must hold s.mu. Persistence
// failures are non-fatal: the in-memory session stays authoritative.
func (s *Session) saveLocked() {
	if s.store == nil {
		return
	}
	data, err := json.Marshal(s.state)
	if err != nil {
		s.log.Warn("session snapshot encode failed", "error", err)
		return
	}
	if err := s.store.SaveSnapshot(SnapshotName, data); err != nil {
		s.log.Warn("session snapshot save failed", "error", err)
	}
}

// State returns a copy of the current session state.
func (s *Session) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.state
	snap.LoggedSets = append([]models.LoggedSet(nil), s.state.LoggedSets...)
	return snap
}

// SetPlan replaces the active plan, resets the cursor to (0, 0) and clears
// logged sets and input values.
func (s *Session) SetPlan(plan models.WorkoutPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.state = Snapshot{Plan: &plan}
	s.saveLocked()
}

// SetExerciseIndex moves the cursor to the given exercise. The store does not
// clamp; callers keep indices within the plan's bounds.
func (s *Session) SetExerciseIndex(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i != s.state.CurrentExerciseIndex {
		s.clearInputsLocked()
	}
	s.state.CurrentExerciseIndex = i
	s.saveLocked()
}

// SetSetIndex moves the cursor to the given set within the current exercise.
func (s *Session) SetSetIndex(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentSetIndex = i
	s.saveLocked()
}

// Cursor returns the current (exercise index, set index) position.
func (s *Session) Cursor() models.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Target{
		ExerciseIndex: s.state.CurrentExerciseIndex,
		SetIndex:      s.state.CurrentSetIndex,
	}
}

// AddLoggedSet appends a completed set. It never rejects and never
// deduplicates: logging the same set twice produces two entries, so callers
// must guard against duplicate submission. A missing ID is filled with a
// fresh UUID (the sync idempotency key) and a zero CompletedAt with now.
func (s *Session) AddLoggedSet(set models.LoggedSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	if set.CompletedAt.IsZero() {
		set.CompletedAt = time.Now().UTC()
	}
	s.state.LoggedSets = append(s.state.LoggedSets, set)
	s.saveLocked()
}

// LoggedSets returns the sets logged so far, in log order.
func (s *Session) LoggedSets() []models.LoggedSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LoggedSet(nil), s.state.LoggedSets...)
}

// activeDayLocked returns the workout day the session runs against. Plans are
// played one day at a time; the first day is the active one.
func (s *Session) activeDayLocked() (models.WorkoutDay, bool) {
	if s.state.Plan == nil || len(s.state.Plan.WorkoutDays) == 0 {
		return models.WorkoutDay{}, false
	}
	return s.state.Plan.WorkoutDays[0], true
}

func (s *Session) currentExerciseLocked() (models.Exercise, bool) {
	day, ok := s.activeDayLocked()
	if !ok {
		return models.Exercise{}, false
	}
	i := s.state.CurrentExerciseIndex
	if i < 0 || i >= len(day.Exercises) {
		return models.Exercise{}, false
	}
	return day.Exercises[i], true
}

// SetWeight records the in-progress weight input.
func (s *Session) SetWeight(kg float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentWeight = &kg
	s.saveLocked()
}

// SetReps records the in-progress reps input.
func (s *Session) SetReps(reps int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentReps = &reps
	s.saveLocked()
}

// SetRPE records the in-progress RPE input.
func (s *Session) SetRPE(rpe int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentRPE = &rpe
	s.saveLocked()
}

// Weight returns the in-progress weight, falling back to the current
// exercise's target the first time it is read.
func (s *Session) Weight() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentWeight != nil {
		return *s.state.CurrentWeight
	}
	if ex, ok := s.currentExerciseLocked(); ok {
		return ex.TargetWeight
	}
	return 0
}

// RPE returns the in-progress RPE, falling back to the exercise target.
func (s *Session) RPE() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentRPE != nil {
		return *s.state.CurrentRPE
	}
	if ex, ok := s.currentExerciseLocked(); ok {
		return ex.RPE
	}
	return 0
}

// Reps returns the in-progress rep count, or 0 when neither the user nor the
// plan provides a plain number (range targets like "8-12" stay in the preview
// only).
func (s *Session) Reps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.CurrentReps != nil {
		return *s.state.CurrentReps
	}
	return 0
}

func (s *Session) clearInputsLocked() {
	s.state.CurrentWeight = nil
	s.state.CurrentReps = nil
	s.state.CurrentRPE = nil
}

// PeekNext returns the target that Advance would move to, for the "next up"
// display during rest. ok is false at the end of the day.
func (s *Session) PeekNext() (NextPreview, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peekNextLocked()
}

func (s *Session) peekNextLocked() (NextPreview, bool) {
	day, ok := s.activeDayLocked()
	if !ok {
		return NextPreview{}, false
	}
	target, ok := models.NextTarget(day, s.state.CurrentExerciseIndex, s.state.CurrentSetIndex)
	if !ok {
		return NextPreview{}, false
	}
	ex := day.Exercises[target.ExerciseIndex]
	return NextPreview{
		ExerciseName: ex.Name,
		SetNumber:    target.SetIndex + 1,
		Reps:         ex.Reps,
	}, true
}

// Advance moves the cursor to the next set or exercise and ends any active
// rest. At the last set of the last exercise it marks the session complete
// instead. Returns false when there was nothing to advance to.
func (s *Session) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advanceLocked()
}

func (s *Session) advanceLocked() bool {
	s.stopTimerLocked()
	s.state.Resting = false
	s.state.RestRemaining = 0

	day, ok := s.activeDayLocked()
	if !ok {
		s.saveLocked()
		return false
	}
	target, ok := models.NextTarget(day, s.state.CurrentExerciseIndex, s.state.CurrentSetIndex)
	if !ok {
		s.state.Completed = true
		s.saveLocked()
		return false
	}
	if target.ExerciseIndex != s.state.CurrentExerciseIndex {
		s.clearInputsLocked()
	}
	s.state.CurrentExerciseIndex = target.ExerciseIndex
	s.state.CurrentSetIndex = target.SetIndex
	s.saveLocked()
	return true
}

// Completed reports whether the session has advanced past its last set.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Completed
}

// Reset clears plan, cursor, inputs, logged sets and rest state back to
// initial values, for an abandoned or finished session.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.state = Snapshot{}
	s.saveLocked()
}

// ClearSnapshot removes the durable snapshot and resets the in-memory state.
func (s *Session) ClearSnapshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTimerLocked()
	s.state = Snapshot{}
	if s.store == nil {
		return nil
	}
	if err := s.store.DeleteSnapshot(SnapshotName); err != nil {
		return fmt.Errorf("deleting session snapshot: %w", err)
	}
	return nil
}
