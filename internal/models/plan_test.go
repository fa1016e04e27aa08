package models

import "testing"

func testDay() WorkoutDay {
	return WorkoutDay{
		DayName: "Push Day",
		Exercises: []Exercise{
			{Name: "Barbell Squats", Sets: 3, Reps: "5", RPE: 8, TargetWeight: 100},
			{Name: "Bench Press", Sets: 4, Reps: "8-12", RPE: 7, TargetWeight: 60},
		},
	}
}

// TestNextTargetMidExercise verifies that sets advance within the current
// exercise while sets remain.
func TestNextTargetMidExercise(t *testing.T) {
	// cursor at set index 1 (2nd set of 3)
	target, ok := NextTarget(testDay(), 0, 1)
	if !ok {
		t.Fatal("expected a next target")
	}
	if target.ExerciseIndex != 0 || target.SetIndex != 2 {
		t.Errorf("target = (%d,%d), want (0,2)", target.ExerciseIndex, target.SetIndex)
	}
}

// TestNextTargetRollsToNextExercise verifies the last set of an exercise
// rolls over to the first set of the following exercise.
func TestNextTargetRollsToNextExercise(t *testing.T) {
	target, ok := NextTarget(testDay(), 0, 2)
	if !ok {
		t.Fatal("expected a next target")
	}
	if target.ExerciseIndex != 1 || target.SetIndex != 0 {
		t.Errorf("target = (%d,%d), want (1,0)", target.ExerciseIndex, target.SetIndex)
	}
}

// TestNextTargetSessionComplete verifies the last set of the last exercise
// has no next target.
func TestNextTargetSessionComplete(t *testing.T) {
	if _, ok := NextTarget(testDay(), 1, 3); ok {
		t.Error("expected no next target at end of day")
	}
}

func TestNextTargetOutOfRange(t *testing.T) {
	if _, ok := NextTarget(testDay(), 5, 0); ok {
		t.Error("expected no target for out-of-range exercise index")
	}
	if _, ok := NextTarget(WorkoutDay{}, 0, 0); ok {
		t.Error("expected no target for empty day")
	}
}
