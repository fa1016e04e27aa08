package api

import "time"

// Profile is the user profile as served by GET /api/v1/users/me. Goals and
// Preferences are free-form JSON objects owned by the backend.
type Profile struct {
	ID          string         `json:"id"`
	Email       string         `json:"email"`
	Name        string         `json:"name,omitempty"`
	Goals       map[string]any `json:"goals,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
	Equipment   []string       `json:"equipment,omitempty"`
	Injuries    string         `json:"injuries,omitempty"`
	Units       string         `json:"units,omitempty"` // "metric" or "imperial"
}

// Onboarding is the payload for POST /api/v1/onboarding.
type Onboarding struct {
	Goals       map[string]any `json:"goals,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
	Equipment   []string       `json:"equipment,omitempty"`
	Injuries    string         `json:"injuries,omitempty"`
	Units       string         `json:"units,omitempty"`
}

// MusicFeedback is one playback event for POST /api/v1/music/feedback.
type MusicFeedback struct {
	SessionID    string         `json:"session_id"`
	TrackID      string         `json:"track_id"`
	FeedbackType string         `json:"feedback_type"` // skip_next, skip_previous, completion
	Timestamp    time.Time      `json:"timestamp"`
	Context      map[string]any `json:"context,omitempty"`
}
