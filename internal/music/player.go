// Package music integrates workout playback: an OAuth connect flow for the
// music provider, an opaque Player capability for transport control, and a
// Controller that mirrors playback state and reports listening feedback
// (skips, completions) to the backend.
package music

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/claude/repcoach/internal/api"
)

// PlaybackState is the controller's view of the player.
type PlaybackState struct {
	Playing    bool   `json:"is_playing"`
	TrackID    string `json:"track_id"`
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	AlbumArt   string `json:"album_art"`
	PositionMs int    `json:"position"`
	DurationMs int    `json:"duration"`
	Volume     int    `json:"volume"`
}

// Player is the opaque playback capability. The controller only drives
// transport; buffering, devices and codecs belong to the provider SDK.
type Player interface {
	Connect(ctx context.Context) error
	TogglePlay(ctx context.Context) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
	State(ctx context.Context) (*PlaybackState, error)
}

// FeedbackSink receives playback events, normally api.Client.
type FeedbackSink interface {
	PostMusicFeedback(ctx context.Context, fb *api.MusicFeedback) error
}

// Controller wraps a Player, keeps the last observed playback state, and
// posts feedback events tagged with a per-controller session id. Feedback
// failures are logged and never interrupt playback control.
type Controller struct {
	player    Player
	feedback  FeedbackSink
	log       *slog.Logger
	sessionID string

	mu          sync.Mutex
	ready       bool
	state       *PlaybackState
	lastTrackID string
	onState     []func(PlaybackState)
	onError     []func(error)
}

// NewController creates a Controller around player. feedback may be nil to
// disable event reporting.
func NewController(player Player, feedback FeedbackSink, log *slog.Logger) *Controller {
	return &Controller{
		player:    player,
		feedback:  feedback,
		log:       log,
		sessionID: uuid.NewString(),
	}
}

// OnStateChange registers a listener for playback state updates.
func (c *Controller) OnStateChange(fn func(PlaybackState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = append(c.onState, fn)
}

// OnError registers a listener for player errors.
func (c *Controller) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = append(c.onError, fn)
}

// Connect establishes the player connection and marks the controller ready.
func (c *Controller) Connect(ctx context.Context) error {
	if err := c.player.Connect(ctx); err != nil {
		c.emitError(err)
		return err
	}
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
	c.log.Info("music player connected", "session_id", c.sessionID)
	return nil
}

// Ready reports whether Connect has succeeded.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// State returns the last observed playback state, or nil before the first
// update.
func (c *Controller) State() *PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return nil
	}
	s := *c.state
	return &s
}

// TogglePlay pauses or resumes playback.
func (c *Controller) TogglePlay(ctx context.Context) error {
	if err := c.player.TogglePlay(ctx); err != nil {
		c.emitError(err)
		return err
	}
	return nil
}

// SkipNext advances to the next track and reports a skip_next event for the
// track that was playing.
func (c *Controller) SkipNext(ctx context.Context) error {
	trackID := c.currentTrackID()
	if err := c.player.NextTrack(ctx); err != nil {
		c.emitError(err)
		return err
	}
	c.postFeedback(ctx, "skip_next", trackID, nil)
	return nil
}

// SkipPrevious returns to the previous track and reports a skip_previous
// event.
func (c *Controller) SkipPrevious(ctx context.Context) error {
	trackID := c.currentTrackID()
	if err := c.player.PreviousTrack(ctx); err != nil {
		c.emitError(err)
		return err
	}
	c.postFeedback(ctx, "skip_previous", trackID, nil)
	return nil
}

// SetVolume sets the playback volume as a 0-100 percentage.
func (c *Controller) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if err := c.player.SetVolume(ctx, percent); err != nil {
		c.emitError(err)
		return err
	}
	c.mu.Lock()
	if c.state != nil {
		c.state.Volume = percent
	}
	c.mu.Unlock()
	return nil
}

// HandleStateChange ingests a playback state update from the player. A track
// change observed at position zero while playing means the previous track
// finished, which is reported as a completion event.
func (c *Controller) HandleStateChange(ctx context.Context, state PlaybackState) {
	c.mu.Lock()
	prevTrack := c.lastTrackID
	prevDuration := 0
	if c.state != nil {
		prevDuration = c.state.DurationMs
	}
	c.lastTrackID = state.TrackID
	s := state
	c.state = &s
	listeners := append(([]func(PlaybackState))(nil), c.onState...)
	c.mu.Unlock()

	if prevTrack != "" && prevTrack != state.TrackID && state.PositionMs == 0 && state.Playing {
		c.postFeedback(ctx, "completion", prevTrack, map[string]any{"duration_ms": prevDuration})
	}

	for _, fn := range listeners {
		fn(state)
	}
}

// Run polls the player for state changes until ctx is cancelled. The context
// is the cancellation handle: no update can land after Run returns, so a
// torn-down owner never sees a late write.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state, err := c.player.State(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.emitError(err)
				continue
			}
			if state != nil {
				c.HandleStateChange(ctx, *state)
			}
		}
	}
}

func (c *Controller) currentTrackID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == nil {
		return ""
	}
	return c.state.TrackID
}

func (c *Controller) postFeedback(ctx context.Context, kind, trackID string, extra map[string]any) {
	if c.feedback == nil {
		return
	}
	if trackID == "" {
		c.log.Warn("skipping music feedback without track id", "type", kind)
		return
	}
	fb := &api.MusicFeedback{
		SessionID:    c.sessionID,
		TrackID:      trackID,
		FeedbackType: kind,
		Timestamp:    time.Now().UTC(),
		Context:      extra,
	}
	if err := c.feedback.PostMusicFeedback(ctx, fb); err != nil {
		c.log.Warn("music feedback failed", "type", kind, "track", trackID, "error", err)
	}
}

func (c *Controller) emitError(err error) {
	c.mu.Lock()
	listeners := append(([]func(error))(nil), c.onError...)
	c.mu.Unlock()
	c.log.Error("music player error", "error", err)
	for _, fn := range listeners {
		fn(err)
	}
}
