package session

import "time"

// tickerFunc returns a tick channel and a cancel function. Production uses
// time.Ticker; tests substitute a hand-fed channel.
type tickerFunc func(d time.Duration) (<-chan time.Time, func())

func defaultTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// restTimer is the cancellation handle for one countdown. It is owned by the
// session, never by a UI component, so stopping it is deterministic: session
// actions close stop and the goroutine exits. done is closed by the goroutine
// on exit so tests can observe cleanup.
type restTimer struct {
	stop chan struct{}
	done chan struct{}
}

// StartRest enters the resting state with the given duration in seconds and
// starts the one-second countdown. A non-positive duration uses the
// configured default. An already-running countdown is cancelled first, so at
// most one timer goroutine exists per session.
func (s *Session) StartRest(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds <= 0 {
		seconds = s.defaultRest
	}
	s.stopTimerLocked()
	s.state.Resting = true
	s.state.RestRemaining = seconds
	s.saveLocked()

	t := &restTimer{stop: make(chan struct{}), done: make(chan struct{})}
	s.timer = t
	go s.runRest(t)
}

func (s *Session) runRest(t *restTimer) {
	defer close(t.done)
	c, cancel := s.newTicker(time.Second)
	defer cancel()
	for {
		select {
		case <-t.stop:
			return
		case <-c:
			if !s.tickRest(t) {
				return
			}
		}
	}
}

// tickRest decrements the countdown by one second. When it reaches zero the
// session leaves the resting state and the advancement rule fires, exactly
// once: the owner check and the resting guard make any further tick a no-op.
// Returns false when the countdown is over and the timer goroutine should
// exit.
func (s *Session) tickRest(t *restTimer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A tick already in flight when the timer was replaced or cancelled must
	// not touch the new countdown.
	if t != nil && s.timer != t {
		return false
	}
	if !s.state.Resting {
		return false
	}
	if s.state.RestRemaining > 0 {
		s.state.RestRemaining--
	}
	if s.state.RestRemaining > 0 {
		s.saveLocked()
		return true
	}
	// Rest expired: equivalent to the user finishing their rest and moving on.
	s.advanceLocked()
	return false
}

// EndRest skips the remainder of the rest. Like a natural expiry it invokes
// the advancement rule. A no-op while idle.
func (s *Session) EndRest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Resting {
		return
	}
	s.advanceLocked()
}

// AddRestTime extends an active countdown by the given number of seconds
// (the "+30s" / "+60s" controls). While idle it is a no-op: extending a rest
// that is not running does not start one.
func (s *Session) AddRestTime(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.Resting {
		return
	}
	s.state.RestRemaining += seconds
	s.saveLocked()
}

// SetRestRemaining overwrites the countdown value directly.
func (s *Session) SetRestRemaining(seconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	s.state.RestRemaining = seconds
	s.saveLocked()
}

// Resting reports whether a rest countdown is active, and its remaining
// seconds.
func (s *Session) Resting() (bool, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Resting, s.state.RestRemaining
}

// stopTimerLocked cancels the running countdown goroutine, if any. Callers
// must hold s.mu. Safe to call repeatedly.
func (s *Session) stopTimerLocked() {
	if s.timer == nil {
		return
	}
	close(s.timer.stop)
	s.timer = nil
}
