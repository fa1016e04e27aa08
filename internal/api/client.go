// Package api is the HTTP client for the RepCoach backend. All request
// bodies are JSON and every request carries the user's bearer token. A
// shared rate limiter keeps bursts of UI-triggered calls polite.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/claude/repcoach/internal/models"
)

// StatusError is a non-2xx backend response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// IsAuthError reports whether err is a 401/403 from the backend: a missing
// or expired session rather than a transient failure.
func IsAuthError(err error) bool {
	se, ok := err.(*StatusError)
	if !ok {
		return false
	}
	return se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden
}

// Client sends requests to the RepCoach backend over HTTP.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryWait  time.Duration
}

// NewClient creates a backend client. token is the bearer token attached to
// every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:   rate.NewLimiter(rate.Limit(10), 20),
		retryWait: time.Second,
	}
}

// do performs one JSON request. out may be nil when the response body is not
// needed.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &StatusError{Status: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// PostLogs submits a batch of logged sets in a single request. Retries up to
// 3 times with exponential backoff on transient failures; the whole batch is
// covered by one idempotency key so a retry or a later re-sync of the same
// logs is safe for the backend to deduplicate.
func (c *Client) PostLogs(ctx context.Context, sets []models.LoggedSet) error {
	headers := map[string]string{"Idempotency-Key": uuid.NewString()}

	var lastErr error
	for attempt := range 3 {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(1<<uint(attempt-1)) * c.retryWait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := c.do(ctx, http.MethodPost, "/api/v1/logs", headers, sets, nil)
		if err == nil {
			return nil
		}
		// Auth failures will not resolve on retry.
		if IsAuthError(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("after 3 attempts: %w", lastErr)
}

// Profile fetches the current user's profile.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, nil, &p); err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	return &p, nil
}

// UpdateProfile replaces the current user's profile fields.
func (c *Client) UpdateProfile(ctx context.Context, p *Profile) error {
	if err := c.do(ctx, http.MethodPut, "/api/v1/users/me", nil, p, nil); err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

// SubmitOnboarding posts the onboarding answers collected by the wizard.
func (c *Client) SubmitOnboarding(ctx context.Context, o *Onboarding) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/onboarding", nil, o, nil); err != nil {
		return fmt.Errorf("submitting onboarding: %w", err)
	}
	return nil
}

// PostMusicFeedback records a playback event (skip, completion) for the
// music recommendation loop.
func (c *Client) PostMusicFeedback(ctx context.Context, fb *MusicFeedback) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/music/feedback", nil, fb, nil); err != nil {
		return fmt.Errorf("posting music feedback: %w", err)
	}
	return nil
}

// Ping probes backend reachability. Used by the connectivity monitor.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/v1/health", nil, nil, nil)
}
