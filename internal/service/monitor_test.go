package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"presence_monitor"
	"presence_monitor/internal/engine"
	"presence_monitor/internal/metrics"
	"presence_monitor/internal/notify"
	"presence_monitor/internal/repository"
)

// stubEventRepo records appended events in memory.
type stubEventRepo struct {
	mu     sync.Mutex
	events []presence_monitor.MonitorEvent
}

func (r *stubEventRepo) Append(_ context.Context, e presence_monitor.MonitorEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *stubEventRepo) List(context.Context, time.Time, time.Time, string) ([]presence_monitor.MonitorEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]presence_monitor.MonitorEvent, len(r.events))
	copy(out, r.events)
	return out, nil
}

func (r *stubEventRepo) byType(typ string) []presence_monitor.MonitorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []presence_monitor.MonitorEvent
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// countingChannel records every delivered message.
type countingChannel struct {
	id notify.ChannelID

	mu       sync.Mutex
	messages []string
}

func (c *countingChannel) ID() notify.ChannelID { return c.id }

func (c *countingChannel) Send(_ context.Context, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message)
	return nil
}

func (c *countingChannel) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func newTestMonitor(t *testing.T, cfg EngineConfig, ch notify.Channel) (*MonitorService, *stubEventRepo) {
	t.Helper()

	events := &stubEventRepo{}
	svc, err := NewMonitorService(Deps{
		Repos:    &repository.Repository{Events: events},
		Channels: []notify.Channel{ch},
		Metrics:  metrics.New(),
		Engine:   cfg,
	})
	if err != nil {
		t.Fatalf("NewMonitorService: %v", err)
	}
	return svc, events
}

// waitFor polls cond until it holds or the deadline expires.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached within deadline")
}

func TestMonitorService_AbsenceAlertEndToEnd(t *testing.T) {
	t.Parallel()

	ch := &countingChannel{id: "console"}
	svc, events := newTestMonitor(t, EngineConfig{
		Stabilizer: engine.StabilizerConfig{DebounceFrames: 2},
		Thresholds: engine.ThresholdConfig{AbsenceLimitSeconds: 5, DeviceUseLimitSeconds: 60},
		Cooldowns: map[presence_monitor.AlertKind]time.Duration{
			presence_monitor.KindAbsence: 5 * time.Minute,
		},
		DispatchTimeout: time.Second,
	}, ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	// 120 absent frames at 10 Hz: the confirmed absence passes the 5s limit
	// partway through and keeps growing afterwards.
	for i := 1; i <= 120; i++ {
		_, err := svc.ProcessSnapshot(presence_monitor.DetectionSnapshot{
			PersonPresent: false,
			Monotonic:     time.Duration(i) * 100 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("ProcessSnapshot frame %d: %v", i, err)
		}
	}

	waitFor(t, func() bool { return ch.count() >= 1 })
	if got := ch.count(); got != 1 {
		t.Fatalf("want exactly one dispatch across the whole episode, got %d", got)
	}

	st := svc.Status()
	if st.PersonPresent {
		t.Fatalf("status must report absent")
	}
	if !st.AbsenceAlert {
		t.Fatalf("status must report the absence level flag")
	}
	if st.AbsenceSeconds <= 5 {
		t.Fatalf("absence must keep accumulating after the alert, got %v", st.AbsenceSeconds)
	}

	waitFor(t, func() bool { return len(events.byType("ALERT")) >= 1 })
	if got := events.byType("ALERT"); len(got) != 1 {
		t.Fatalf("want one ALERT event, got %d", len(got))
	}
}

func TestMonitorService_RejectedSnapshotLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	ch := &countingChannel{id: "console"}
	svc, _ := newTestMonitor(t, EngineConfig{
		Thresholds: engine.ThresholdConfig{AbsenceLimitSeconds: 5, DeviceUseLimitSeconds: 60},
	}, ch)

	if _, err := svc.ProcessSnapshot(presence_monitor.DetectionSnapshot{
		PersonPresent: true,
		Monotonic:     time.Second,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := svc.Status()

	_, err := svc.ProcessSnapshot(presence_monitor.DetectionSnapshot{
		PersonPresent: false,
		Monotonic:     500 * time.Millisecond,
	})
	if !errors.Is(err, engine.ErrInvalidSnapshot) {
		t.Fatalf("want ErrInvalidSnapshot, got %v", err)
	}
	if after := svc.Status(); after != before {
		t.Fatalf("rejected snapshot changed status: %+v vs %+v", after, before)
	}
}

func TestMonitorService_AnnounceHonorsCooldown(t *testing.T) {
	t.Parallel()

	ch := &countingChannel{id: "console"}
	svc, events := newTestMonitor(t, EngineConfig{
		Thresholds:      engine.ThresholdConfig{AbsenceLimitSeconds: 5, DeviceUseLimitSeconds: 60},
		DefaultCooldown: time.Minute,
		DispatchTimeout: time.Second,
	}, ch)

	kind := presence_monitor.ScheduleAlertKind("med")
	svc.Announce(context.Background(), kind, "SCHEDULE", "take medication")
	svc.Announce(context.Background(), kind, "SCHEDULE", "take medication")

	if got := ch.count(); got != 1 {
		t.Fatalf("second announce inside cooldown must be suppressed, got %d dispatches", got)
	}
	if got := events.byType("SCHEDULE"); len(got) != 1 {
		t.Fatalf("want one SCHEDULE event, got %d", len(got))
	}
	if got := ch.messages[0]; got != "take medication" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestMonitorService_SetThresholdsAppendsEvents(t *testing.T) {
	t.Parallel()

	ch := &countingChannel{id: "console"}
	svc, events := newTestMonitor(t, EngineConfig{
		Thresholds: engine.ThresholdConfig{AbsenceLimitSeconds: 5, DeviceUseLimitSeconds: 60},
	}, ch)

	if err := svc.SetThresholds(engine.ThresholdConfig{AbsenceLimitSeconds: 10, DeviceUseLimitSeconds: 120}); err != nil {
		t.Fatalf("SetThresholds: %v", err)
	}
	if svc.Degraded() {
		t.Fatalf("valid config must not degrade the monitor")
	}
	if got := events.byType("CONFIG"); len(got) != 1 {
		t.Fatalf("want one CONFIG event, got %d", len(got))
	}

	err := svc.SetThresholds(engine.ThresholdConfig{AbsenceLimitSeconds: -1, DeviceUseLimitSeconds: 120})
	if !errors.Is(err, engine.ErrInvalidConfig) {
		t.Fatalf("want ErrInvalidConfig, got %v", err)
	}
	if !svc.Degraded() {
		t.Fatalf("rejected config must degrade the monitor")
	}
	if got := svc.Thresholds(); got.AbsenceLimitSeconds != 10 {
		t.Fatalf("rejected config must keep last-known-good, got %+v", got)
	}
	if got := events.byType("ERROR"); len(got) != 1 {
		t.Fatalf("want one ERROR event, got %d", len(got))
	}
}

func TestMonitorService_QueueOverflowDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	ch := &countingChannel{id: "console"}
	svc, _ := newTestMonitor(t, EngineConfig{
		Thresholds: engine.ThresholdConfig{AbsenceLimitSeconds: 5, DeviceUseLimitSeconds: 60},
		QueueSize:  1,
	}, ch)

	// No Run worker draining: enqueue past capacity must return immediately.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			svc.enqueue(alertJob{kind: presence_monitor.KindAbsence, eventType: "ALERT", message: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("enqueue blocked on a full queue")
	}
}
