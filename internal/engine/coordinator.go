package engine

import (
	"sync"
	"time"

	"presence_monitor"
)

// Cooldown defaults per alert kind, in effect unless overridden in config.
const (
	DefaultAbsenceCooldown   = 5 * time.Minute
	DefaultDeviceUseCooldown = 10 * time.Minute
	DefaultScheduleCooldown  = time.Minute
)

type cooldownEntry struct {
	lastFiredAt time.Time
	minInterval time.Duration
}

// AlertCoordinator owns the per-kind cooldown timers. TryFire is the single
// linearization point for a fire decision: the check and the lastFiredAt
// update happen in one critical section, so under concurrent crossing reports
// for the same kind exactly one caller wins.
type AlertCoordinator struct {
	mu        sync.Mutex
	entries   map[presence_monitor.AlertKind]*cooldownEntry
	intervals map[presence_monitor.AlertKind]time.Duration
	fallback  time.Duration
}

// NewAlertCoordinator builds a coordinator with per-kind minimum intervals.
// Kinds not present in intervals (e.g. per-entry schedule kinds) use fallback.
func NewAlertCoordinator(intervals map[presence_monitor.AlertKind]time.Duration, fallback time.Duration) *AlertCoordinator {
	if fallback <= 0 {
		fallback = DefaultScheduleCooldown
	}
	return &AlertCoordinator{
		entries:   make(map[presence_monitor.AlertKind]*cooldownEntry),
		intervals: intervals,
		fallback:  fallback,
	}
}

// TryFire reports whether a dispatch for kind should proceed now. On success
// the cooldown entry is stamped before returning.
func (c *AlertCoordinator) TryFire(kind presence_monitor.AlertKind, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[kind]
	if !ok {
		e = &cooldownEntry{minInterval: c.intervalFor(kind)}
		c.entries[kind] = e
	}
	if !e.lastFiredAt.IsZero() && now.Sub(e.lastFiredAt) < e.minInterval {
		return false
	}
	e.lastFiredAt = now
	return true
}

// LastFiredAt returns when kind last fired, zero if never.
func (c *AlertCoordinator) LastFiredAt(kind presence_monitor.AlertKind) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[kind]; ok {
		return e.lastFiredAt
	}
	return time.Time{}
}

func (c *AlertCoordinator) intervalFor(kind presence_monitor.AlertKind) time.Duration {
	if d, ok := c.intervals[kind]; ok && d > 0 {
		return d
	}
	return c.fallback
}
