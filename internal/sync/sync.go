// Package sync drains the offline cache to the backend. One Syncer submits
// the whole buffered log queue as a single batch (at-least-once delivery;
// per-log ids let the backend deduplicate re-submissions), and one Monitor
// watches backend reachability so a reconnect can trigger a sync
// automatically.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/claude/repcoach/internal/cache"
	"github.com/claude/repcoach/internal/models"
)

// ErrOffline is returned when a sync is requested while the backend is
// unreachable. No partial attempt is made.
var ErrOffline = errors.New("cannot sync while offline")

// Backend is the slice of the API client the syncer needs.
type Backend interface {
	PostLogs(ctx context.Context, sets []models.LoggedSet) error
}

// Syncer flushes buffered logs to the backend.
type Syncer struct {
	cache   *cache.StateDB
	backend Backend
	online  func() bool
	log     *slog.Logger
}

// NewSyncer creates a Syncer. online reports current connectivity, normally
// Monitor.Online.
func NewSyncer(db *cache.StateDB, backend Backend, online func() bool, log *slog.Logger) *Syncer {
	return &Syncer{
		cache:   db,
		backend: backend,
		online:  online,
		log:     log,
	}
}

// Synchronize submits all buffered logs in one batch. While offline it
// aborts with ErrOffline and touches nothing. An empty queue is a successful
// no-op. On a failed submission the cache is left untouched so a later retry
// resubmits the same batch; on success the log queue is cleared, which also
// drops the unsynced flag.
func (s *Syncer) Synchronize(ctx context.Context) error {
	if !s.online() {
		s.log.Warn("cannot sync while offline")
		return ErrOffline
	}

	logs, err := s.cache.Logs()
	if err != nil {
		return fmt.Errorf("reading cached logs: %w", err)
	}
	if len(logs) == 0 {
		s.log.Info("no data to sync")
		return nil
	}

	if err := s.backend.PostLogs(ctx, logs); err != nil {
		s.log.Error("sync failed, cache left untouched", "logs", len(logs), "error", err)
		return fmt.Errorf("submitting %d logs: %w", len(logs), err)
	}

	if err := s.cache.ClearLogs(); err != nil {
		return fmt.Errorf("clearing synced logs: %w", err)
	}
	s.log.Info("data synchronized", "logs", len(logs))
	return nil
}

// AttachAutoSync registers a reconnect handler on m: when connectivity
// returns and the auto-sync setting is enabled, the cache is synchronized.
// This is the only automatic trigger; there is no periodic retry.
func (s *Syncer) AttachAutoSync(m *Monitor) {
	m.OnOnline(func() {
		auto, err := s.cache.AutoSync()
		if err != nil {
			s.log.Warn("auto-sync setting unavailable", "error", err)
			return
		}
		if !auto {
			return
		}
		if err := s.Synchronize(context.Background()); err != nil && !errors.Is(err, ErrOffline) {
			s.log.Warn("auto-sync failed", "error", err)
		}
	})
}
