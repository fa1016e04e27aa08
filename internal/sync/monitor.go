package sync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Monitor tracks backend reachability, the client-side stand-in for the
// browser's online/offline events. It is edge-triggered: registered handlers
// run on the offline-to-online transition only. The state can be driven by
// the built-in probe loop (Start) or injected directly via SetOnline.
type Monitor struct {
	probe    func(ctx context.Context) error
	interval time.Duration
	log      *slog.Logger

	mu       sync.Mutex
	online   bool
	handlers []func()

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewMonitor creates a Monitor. probe returns nil when the backend is
// reachable, normally api.Client.Ping. The monitor starts in the offline
// state, so the first successful probe counts as a reconnect.
func NewMonitor(probe func(ctx context.Context) error, interval time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		probe:    probe,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// OnOnline registers fn to run on every offline-to-online transition.
func (m *Monitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}

// Online reports the last observed connectivity state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// SetOnline records a connectivity observation. Handlers fire synchronously
// on the offline-to-online edge, before SetOnline returns.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	wasOnline := m.online
	m.online = online
	var handlers []func()
	if online && !wasOnline {
		handlers = append(handlers, m.handlers...)
	}
	m.mu.Unlock()

	if online != wasOnline {
		m.log.Info("connectivity changed", "online", online)
	}
	for _, fn := range handlers {
		fn()
	}
}

// Start launches the probe loop. The first probe runs immediately so a
// client that boots with connectivity syncs without waiting a full interval.
func (m *Monitor) Start() {
	go func() {
		defer close(m.done)
		m.check()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.check()
			}
		}
	}()
}

func (m *Monitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.SetOnline(m.probe(ctx) == nil)
}

// Close stops the probe loop. Safe to call when Start was never invoked, and
// safe to call twice.
func (m *Monitor) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}
