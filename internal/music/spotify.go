package music

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

// WebPlayer implements Player on the Spotify Web API. Playback happens on
// whatever device the user has active; this adapter only drives transport.
type WebPlayer struct {
	client *spotify.Client
}

// NewWebPlayer wraps an authenticated Spotify client.
func NewWebPlayer(client *spotify.Client) *WebPlayer {
	return &WebPlayer{client: client}
}

// Connect verifies the client credentials by fetching the current user.
func (p *WebPlayer) Connect(ctx context.Context) error {
	if _, err := p.client.CurrentUser(ctx); err != nil {
		return fmt.Errorf("connecting spotify player: %w", err)
	}
	return nil
}

// TogglePlay pauses when playing and resumes when paused.
func (p *WebPlayer) TogglePlay(ctx context.Context) error {
	state, err := p.client.PlayerState(ctx)
	if err != nil {
		return fmt.Errorf("reading player state: %w", err)
	}
	if state.Playing {
		if err := p.client.Pause(ctx); err != nil {
			return fmt.Errorf("pausing playback: %w", err)
		}
		return nil
	}
	if err := p.client.Play(ctx); err != nil {
		return fmt.Errorf("resuming playback: %w", err)
	}
	return nil
}

// NextTrack skips forward.
func (p *WebPlayer) NextTrack(ctx context.Context) error {
	if err := p.client.Next(ctx); err != nil {
		return fmt.Errorf("skipping to next track: %w", err)
	}
	return nil
}

// PreviousTrack skips backward.
func (p *WebPlayer) PreviousTrack(ctx context.Context) error {
	if err := p.client.Previous(ctx); err != nil {
		return fmt.Errorf("skipping to previous track: %w", err)
	}
	return nil
}

// SetVolume sets the active device volume as a 0-100 percentage.
func (p *WebPlayer) SetVolume(ctx context.Context, percent int) error {
	if err := p.client.Volume(ctx, percent); err != nil {
		return fmt.Errorf("setting volume: %w", err)
	}
	return nil
}

// State maps the provider's player state onto PlaybackState. Returns nil
// when nothing is playing on any device.
func (p *WebPlayer) State(ctx context.Context) (*PlaybackState, error) {
	state, err := p.client.PlayerState(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading player state: %w", err)
	}
	if state == nil || state.Item == nil {
		return nil, nil
	}

	track := state.Item
	out := &PlaybackState{
		Playing:    state.Playing,
		TrackID:    string(track.ID),
		TrackName:  track.Name,
		PositionMs: int(state.Progress),
		DurationMs: int(track.Duration),
		Volume:     int(state.Device.Volume),
	}
	if len(track.Artists) > 0 {
		out.ArtistName = track.Artists[0].Name
	}
	if len(track.Album.Images) > 0 {
		out.AlbumArt = track.Album.Images[0].URL
	}
	return out, nil
}
