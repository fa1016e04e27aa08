package models

import "time"

// Exercise is the read-only reference data for one exercise in a workout day.
// Reps is a display string because plans use both plain counts ("8") and
// ranges ("8-12").
type Exercise struct {
	Name         string  `json:"name"`
	Sets         int     `json:"sets"`
	Reps         string  `json:"reps"`
	RPE          int     `json:"rpe"`
	TargetWeight float64 `json:"target_weight"`
	Image        string  `json:"image,omitempty"`
}

// WorkoutDay is a named, ordered list of exercises.
type WorkoutDay struct {
	DayName   string     `json:"day_name"`
	Exercises []Exercise `json:"exercises"`
}

// WorkoutPlan is the full plan as delivered by the backend. It is immutable
// once loaded into a session; a new plan fetch replaces it wholesale.
type WorkoutPlan struct {
	WorkoutDays []WorkoutDay `json:"workout_days"`
}

// LoggedSet records one completed set. Append-only: once created it is never
// mutated, only synced or cleared. ID doubles as the idempotency key for
// batch sync, so re-submitting the same batch is safe for the backend to
// deduplicate.
type LoggedSet struct {
	ID           string    `json:"id"`
	ExerciseName string    `json:"exercise_name"`
	SetNumber    int       `json:"set_number"`
	ActualReps   int       `json:"actual_reps"`
	ActualWeight float64   `json:"actual_weight"`
	RPE          int       `json:"rpe"`
	CompletedAt  time.Time `json:"completed_at"`
}

// Target identifies a position in a workout day: exercise index and set
// index, both zero-based.
type Target struct {
	ExerciseIndex int `json:"exercise_index"`
	SetIndex      int `json:"set_index"`
}

// NextTarget computes the position that follows (exerciseIdx, setIdx) in day.
// Rule: while sets remain in the current exercise, advance the set index;
// on the last set, move to the first set of the next exercise; on the last
// set of the last exercise there is no next target and ok is false (the
// session is complete). Both the advance action and the "next up" preview
// must go through this function.
func NextTarget(day WorkoutDay, exerciseIdx, setIdx int) (Target, bool) {
	if exerciseIdx < 0 || exerciseIdx >= len(day.Exercises) {
		return Target{}, false
	}
	ex := day.Exercises[exerciseIdx]
	if setIdx+1 < ex.Sets {
		return Target{ExerciseIndex: exerciseIdx, SetIndex: setIdx + 1}, true
	}
	if exerciseIdx+1 < len(day.Exercises) {
		return Target{ExerciseIndex: exerciseIdx + 1, SetIndex: 0}, true
	}
	return Target{}, false
}
