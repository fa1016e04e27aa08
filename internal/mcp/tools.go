package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/repcoach/internal/models"
)

// --- Tool definitions ---

var toolGetSessionState = mcp.NewTool("get_session_state",
	mcp.WithDescription("Read the active workout session: current exercise and set, input values (weight/reps/RPE), logged set count, rest timer state, and whether the session is complete."),
)

var toolGetNextTarget = mcp.NewTool("get_next_target",
	mcp.WithDescription("Preview the set the session will advance to next. Returns the exercise name, 1-based set number and target reps, or done=true at the end of the workout."),
)

var toolLogSet = mcp.NewTool("log_set",
	mcp.WithDescription("Log a completed set at the current cursor position and advance to the next set. The log is queued in the offline cache when offline mode is on."),
	mcp.WithNumber("reps", mcp.Required(), mcp.Description("Reps actually performed")),
	mcp.WithNumber("weight", mcp.Required(), mcp.Description("Weight used, in the user's configured units")),
	mcp.WithNumber("rpe", mcp.Description("Rate of perceived exertion (1-10). Defaults to the exercise target.")),
	mcp.WithBoolean("advance", mcp.Description("Advance the cursor after logging. Defaults to true.")),
)

var toolStartRest = mcp.NewTool("start_rest",
	mcp.WithDescription("Start the rest countdown. When it reaches zero the session advances to the next set automatically."),
	mcp.WithNumber("seconds", mcp.Description("Rest duration in seconds. Defaults to the configured rest time.")),
)

var toolGetCachedLogs = mcp.NewTool("get_cached_logs",
	mcp.WithDescription("List the workout logs queued in the offline cache, oldest first."),
)

var toolGetSyncStatus = mcp.NewTool("get_sync_status",
	mcp.WithDescription("Report offline mode, auto-sync setting, and whether unsynced logs are waiting in the cache."),
)

// --- Tool handlers ---

func (h *handlers) getSessionState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := h.sess.State()
	resting, remaining := h.sess.Resting()

	out := map[string]any{
		"exercise_index": state.CurrentExerciseIndex,
		"set_index":      state.CurrentSetIndex,
		"weight":         h.sess.Weight(),
		"reps":           h.sess.Reps(),
		"rpe":            h.sess.RPE(),
		"logged_sets":    len(state.LoggedSets),
		"resting":        resting,
		"rest_remaining": remaining,
		"completed":      state.Completed,
	}
	if state.Plan != nil && len(state.Plan.WorkoutDays) > 0 {
		day := state.Plan.WorkoutDays[0]
		out["day_name"] = day.DayName
		if i := state.CurrentExerciseIndex; i >= 0 && i < len(day.Exercises) {
			out["exercise_name"] = day.Exercises[i].Name
		}
	}

	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getNextTarget(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	preview, ok := h.sess.PeekNext()
	if !ok {
		result, err := mcp.NewToolResultJSON(map[string]any{"done": true})
		if err != nil {
			return mcp.NewToolResultError("serialization failed"), nil
		}
		return result, nil
	}

	result, err := mcp.NewToolResultJSON(preview)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) logSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reps, err := req.RequireInt("reps")
	if err != nil {
		return mcp.NewToolResultError("reps parameter is required"), nil
	}
	weight, err := req.RequireFloat("weight")
	if err != nil {
		return mcp.NewToolResultError("weight parameter is required"), nil
	}
	rpe := req.GetInt("rpe", h.sess.RPE())

	state := h.sess.State()
	set := models.LoggedSet{
		SetNumber:    state.CurrentSetIndex + 1,
		ActualReps:   reps,
		ActualWeight: weight,
		RPE:          rpe,
	}
	if state.Plan != nil && len(state.Plan.WorkoutDays) > 0 {
		day := state.Plan.WorkoutDays[0]
		if i := state.CurrentExerciseIndex; i >= 0 && i < len(day.Exercises) {
			set.ExerciseName = day.Exercises[i].Name
		}
	}
	if set.ExerciseName == "" {
		return mcp.NewToolResultError("no active exercise to log against"), nil
	}

	h.sess.AddLoggedSet(set)
	logged := h.sess.LoggedSets()
	set = logged[len(logged)-1]

	if err := h.store.AddLog(set); err != nil {
		h.log.Error("mcp log_set: cache enqueue", "error", err)
		return mcp.NewToolResultError("caching log failed: " + err.Error()), nil
	}

	if req.GetBool("advance", true) {
		h.sess.Advance()
	}

	result, err := mcp.NewToolResultJSON(set)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) startRest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seconds := req.GetInt("seconds", 0)
	if seconds < 0 {
		return mcp.NewToolResultError("seconds must not be negative"), nil
	}

	h.sess.StartRest(seconds)
	resting, remaining := h.sess.Resting()

	result, err := mcp.NewToolResultJSON(map[string]any{
		"resting":        resting,
		"rest_remaining": remaining,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getCachedLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logs, err := h.store.Logs()
	if err != nil {
		h.log.Error("mcp get_cached_logs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(logs)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSyncStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	offline, err := h.store.OfflineMode()
	if err != nil {
		h.log.Error("mcp get_sync_status", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	autoSync, err := h.store.AutoSync()
	if err != nil {
		h.log.Error("mcp get_sync_status", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	unsynced, err := h.store.HasUnsynced()
	if err != nil {
		h.log.Error("mcp get_sync_status", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(map[string]any{
		"offline_mode": offline,
		"auto_sync":    autoSync,
		"has_unsynced": unsynced,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
