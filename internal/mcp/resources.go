package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

func (h *handlers) sessionResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	state := h.sess.State()
	resting, remaining := h.sess.Resting()

	doc := map[string]any{
		"plan":           state.Plan,
		"exercise_index": state.CurrentExerciseIndex,
		"set_index":      state.CurrentSetIndex,
		"logged_sets":    state.LoggedSets,
		"resting":        resting,
		"rest_remaining": remaining,
		"completed":      state.Completed,
	}
	if preview, ok := h.sess.PeekNext(); ok {
		doc["next_up"] = preview
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
