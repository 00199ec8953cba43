package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"presence_monitor"
	"presence_monitor/internal/logger"
)

const (
	// DefaultTick is one minute: schedule times have minute granularity.
	DefaultTick = time.Minute

	// DefaultRefreshEvery bounds how stale the in-memory entry copy may get
	// before it is re-read from the store.
	DefaultRefreshEvery = 5 * time.Minute
)

const (
	layoutTimeOfDay = "15:04"
	layoutDate      = "2006-01-02"
)

// Store is the persistence collaborator the checker reads entries from and
// stamps fire dates into.
type Store interface {
	List(ctx context.Context) ([]presence_monitor.ScheduleEntry, error)
	MarkFired(ctx context.Context, id, day string) error
}

// Announcer is the alert pipeline a due entry is handed to. The monitor
// service implements it on top of the shared dispatcher.
type Announcer interface {
	Announce(ctx context.Context, kind presence_monitor.AlertKind, eventType, message string)
}

// Checker fires each schedule entry once per day at its time-of-day. Per
// entry the machine is Idle -> (clock reaches TimeOfDay, LastFiredDate !=
// today) -> Fired -> (midnight rollover) -> Idle; LastFiredDate is the whole
// machine state.
type Checker struct {
	store    Store
	announce Announcer
	log      *logger.Logger

	refreshEvery time.Duration
	now          func() time.Time

	mu          sync.Mutex
	entries     []presence_monitor.ScheduleEntry
	lastRefresh time.Time
	stale       atomic.Bool
}

// NewChecker builds a checker over the given store and alert pipeline.
func NewChecker(store Store, announce Announcer, log *logger.Logger, refreshEvery time.Duration) *Checker {
	if refreshEvery <= 0 {
		refreshEvery = DefaultRefreshEvery
	}
	c := &Checker{
		store:        store,
		announce:     announce,
		log:          log,
		refreshEvery: refreshEvery,
		now:          time.Now,
	}
	c.stale.Store(true)
	return c
}

// Invalidate forces a store re-read on the next tick. Called after add/delete.
func (c *Checker) Invalidate() {
	c.stale.Store(true)
}

// Run ticks at the given interval until ctx is canceled. An in-flight tick
// finishes; no new tick starts after cancellation.
func (c *Checker) Run(ctx context.Context, tick time.Duration) {
	if tick <= 0 {
		tick = DefaultTick
	}
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Tick(ctx)
		}
	}
}

// Tick runs one evaluation pass against the current wall clock.
func (c *Checker) Tick(ctx context.Context) {
	now := c.now()
	minute := now.Format(layoutTimeOfDay)
	today := now.Format(layoutDate)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.refreshLocked(ctx, now)

	for i := range c.entries {
		e := &c.entries[i]
		if e.TimeOfDay != minute || e.LastFiredDate == today {
			continue
		}
		c.announceEntry(ctx, e, today)
	}
}

// announceEntry fires one due entry and stamps it as fired for today, in memory
// and in the store. Caller holds c.mu.
func (c *Checker) announceEntry(ctx context.Context, e *presence_monitor.ScheduleEntry, today string) {
	c.announce.Announce(ctx, presence_monitor.ScheduleAlertKind(e.ID), "SCHEDULE", e.Content)
	e.LastFiredDate = today
	if err := c.store.MarkFired(ctx, e.ID, today); err != nil && c.log != nil {
		c.log.Errorw("schedule_mark_fired_failed", "id", e.ID, "err", err)
	}
}

// refreshLocked re-reads entries when invalidated or older than refreshEvery.
// On store failure the previous copy stays in use.
func (c *Checker) refreshLocked(ctx context.Context, now time.Time) {
	if !c.stale.Load() && now.Sub(c.lastRefresh) < c.refreshEvery {
		return
	}
	entries, err := c.store.List(ctx)
	if err != nil {
		if c.log != nil {
			c.log.Errorw("schedule_refresh_failed", "err", err)
		}
		return
	}
	c.entries = entries
	c.lastRefresh = now
	c.stale.Store(false)
}
