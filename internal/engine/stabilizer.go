package engine

import (
	"sync"
	"time"

	"presence_monitor"
)

// ----------- Stabilizer defaults -----------
const (
	// DefaultDebounceFrames is how many consecutive snapshots must agree
	// before a raw boolean flips the canonical one.
	DefaultDebounceFrames = 2

	// DefaultMaxDelta caps the elapsed time credited between two snapshots,
	// absorbing producer pauses and debugger stalls.
	DefaultMaxDelta = 5 * time.Second
)

// StabilizerConfig tunes the debounce behaviour.
type StabilizerConfig struct {
	DebounceFrames int
	MaxDelta       time.Duration
}

func (c StabilizerConfig) withDefaults() StabilizerConfig {
	if c.DebounceFrames < 1 {
		c.DebounceFrames = DefaultDebounceFrames
	}
	if c.MaxDelta <= 0 {
		c.MaxDelta = DefaultMaxDelta
	}
	return c
}

// StateStabilizer converts noisy per-frame snapshots into a stable canonical
// state. One producer calls Update; any number of readers call State. The
// single canonical state lives behind the mutex and only copies leave it.
type StateStabilizer struct {
	mu  sync.Mutex
	cfg StabilizerConfig

	state presence_monitor.CanonicalState

	seeded        bool
	lastMonotonic time.Duration

	// Consecutive snapshots contradicting the confirmed value. A streak
	// reaching DebounceFrames flips the canonical boolean.
	presenceStreak int
	deviceStreak   int

	now func() time.Time
}

// NewStateStabilizer returns a stabilizer with the given debounce settings.
func NewStateStabilizer(cfg StabilizerConfig) *StateStabilizer {
	return &StateStabilizer{
		cfg: cfg.withDefaults(),
		now: time.Now,
	}
}

// Update folds one snapshot into the canonical state and returns a copy.
// A malformed snapshot is rejected with ErrInvalidSnapshot and the state is
// left untouched. Elapsed time always accumulates against the previously
// confirmed state, never the incoming noisy one, so frames spent inside the
// debounce window are not dropped silently.
func (s *StateStabilizer) Update(snap presence_monitor.DetectionSnapshot) (presence_monitor.CanonicalState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.Monotonic <= 0 || (s.seeded && snap.Monotonic < s.lastMonotonic) {
		return s.state, ErrInvalidSnapshot
	}

	if !s.seeded {
		// First observation seeds the canonical state directly; there is
		// no previous confirmed value to debounce against.
		s.seeded = true
		s.lastMonotonic = snap.Monotonic
		s.state.PersonPresent = snap.PersonPresent
		s.state.DeviceInUse = snap.DeviceInUse
		s.state.LastTransitionAt = s.now().UTC()
		return s.state, nil
	}

	dt := snap.Monotonic - s.lastMonotonic
	if dt > s.cfg.MaxDelta {
		dt = s.cfg.MaxDelta
	}
	s.lastMonotonic = snap.Monotonic

	// Accumulate against the confirmed state before considering a flip.
	if !s.state.PersonPresent {
		s.state.AbsenceSeconds += dt.Seconds()
	}
	if s.state.DeviceInUse {
		s.state.DeviceUseSeconds += dt.Seconds()
	}

	if flipped := s.debouncePresence(snap.PersonPresent); flipped {
		if s.state.PersonPresent {
			// Presence confirmed again: the absence episode is over.
			s.state.AbsenceSeconds = 0
		}
		s.state.LastTransitionAt = s.now().UTC()
	}
	if flipped := s.debounceDevice(snap.DeviceInUse); flipped {
		if !s.state.DeviceInUse {
			// Device confirmed idle: the usage episode is over.
			s.state.DeviceUseSeconds = 0
		}
		s.state.LastTransitionAt = s.now().UTC()
	}

	return s.state, nil
}

// State returns a copy of the canonical state.
func (s *StateStabilizer) State() presence_monitor.CanonicalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// debouncePresence advances the presence streak and reports whether the
// canonical value flipped on this snapshot.
func (s *StateStabilizer) debouncePresence(raw bool) bool {
	if raw == s.state.PersonPresent {
		s.presenceStreak = 0
		return false
	}
	s.presenceStreak++
	if s.presenceStreak < s.cfg.DebounceFrames {
		return false
	}
	s.state.PersonPresent = raw
	s.presenceStreak = 0
	return true
}

func (s *StateStabilizer) debounceDevice(raw bool) bool {
	if raw == s.state.DeviceInUse {
		s.deviceStreak = 0
		return false
	}
	s.deviceStreak++
	if s.deviceStreak < s.cfg.DebounceFrames {
		return false
	}
	s.state.DeviceInUse = raw
	s.deviceStreak = 0
	return true
}
