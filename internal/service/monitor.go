package service

import (
	"context"
	"fmt"
	"time"

	"presence_monitor"
	"presence_monitor/internal/engine"
	"presence_monitor/internal/logger"
	"presence_monitor/internal/metrics"
	"presence_monitor/internal/notify"
	"presence_monitor/internal/repository"
)

const defaultQueueSize = 16

// alertJob is one fire decision queued for asynchronous delivery so the
// producer never waits on network I/O.
type alertJob struct {
	kind      presence_monitor.AlertKind
	eventType string
	message   string
}

// MonitorService owns the engine pipeline: stabilizer -> evaluator ->
// coordinator -> dispatcher, plus the level-view status read path.
type MonitorService struct {
	stabilizer  *engine.StateStabilizer
	evaluator   *engine.ThresholdEvaluator
	coordinator *engine.AlertCoordinator
	dispatcher  *notify.Dispatcher
	channels    []notify.Channel
	events      repository.EventRepo
	metrics     *metrics.Metrics
	log         *logger.Logger

	queue chan alertJob
	now   func() time.Time
}

// NewMonitorService builds the pipeline from validated engine config.
func NewMonitorService(d Deps) (*MonitorService, error) {
	evaluator, err := engine.NewThresholdEvaluator(d.Engine.Thresholds)
	if err != nil {
		return nil, err
	}
	queueSize := d.Engine.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &MonitorService{
		stabilizer:  engine.NewStateStabilizer(d.Engine.Stabilizer),
		evaluator:   evaluator,
		coordinator: engine.NewAlertCoordinator(d.Engine.Cooldowns, d.Engine.DefaultCooldown),
		dispatcher:  notify.NewDispatcher(d.Engine.DispatchTimeout, d.Log),
		channels:    d.Channels,
		events:      d.Repos.Events,
		metrics:     d.Metrics,
		log:         d.Log,
		queue:       make(chan alertJob, queueSize),
		now:         time.Now,
	}, nil
}

// ProcessSnapshot is the producer write path: fold one snapshot in, evaluate
// thresholds edge-triggered, and enqueue any fire decisions. It never blocks
// on delivery and never lets an engine error escape to the frame loop as a
// panic; a malformed snapshot comes back as a rejected-update error with the
// state untouched.
func (s *MonitorService) ProcessSnapshot(snap presence_monitor.DetectionSnapshot) (presence_monitor.CanonicalState, error) {
	st, err := s.stabilizer.Update(snap)
	if err != nil {
		s.metrics.SnapshotsRejected.Inc()
		if s.log != nil {
			s.log.Warnw("snapshot_rejected", "err", err, "monotonic", snap.Monotonic)
		}
		return st, err
	}

	for _, kind := range s.evaluator.Check(st) {
		if !s.coordinator.TryFire(kind, s.now()) {
			s.metrics.AlertsSuppressed.WithLabelValues(string(kind)).Inc()
			continue
		}
		s.enqueue(alertJob{
			kind:      kind,
			eventType: "ALERT",
			message:   alertMessage(kind, st),
		})
	}
	return st, nil
}

// Run drains the dispatch queue until ctx is canceled. An in-flight delivery
// finishes (bounded by the per-channel timeout); nothing new starts after
// cancellation.
func (s *MonitorService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.queue:
			s.deliver(context.Background(), job)
		}
	}
}

// Announce runs the fire pipeline synchronously for callers outside the
// frame loop (the schedule checker). Cooldown still applies per kind.
func (s *MonitorService) Announce(ctx context.Context, kind presence_monitor.AlertKind, eventType, message string) {
	if !s.coordinator.TryFire(kind, s.now()) {
		s.metrics.AlertsSuppressed.WithLabelValues(string(kind)).Inc()
		return
	}
	if eventType == "SCHEDULE" {
		s.metrics.ScheduleFires.Inc()
	}
	s.deliver(ctx, alertJob{kind: kind, eventType: eventType, message: message})
}

// Status returns the level view for display: current booleans, durations,
// and over-threshold flags that ignore cooldown suppression.
func (s *MonitorService) Status() presence_monitor.StatusSummary {
	st := s.stabilizer.State()
	absence, deviceUse := s.evaluator.Exceeds(st)
	return presence_monitor.StatusSummary{
		PersonPresent:    st.PersonPresent,
		DeviceInUse:      st.DeviceInUse,
		AbsenceSeconds:   st.AbsenceSeconds,
		DeviceUseSeconds: st.DeviceUseSeconds,
		AbsenceAlert:     absence,
		DeviceUseAlert:   deviceUse,
	}
}

// Thresholds returns the current limits snapshot.
func (s *MonitorService) Thresholds() engine.ThresholdConfig {
	return s.evaluator.Config()
}

// SetThresholds atomically swaps the limits; a rejected config keeps the
// last-known-good one and leaves the monitor flagged degraded.
func (s *MonitorService) SetThresholds(cfg engine.ThresholdConfig) error {
	if err := s.evaluator.SetConfig(cfg); err != nil {
		_ = s.events.Append(context.Background(), presence_monitor.MonitorEvent{
			Type:        "ERROR",
			Description: "Threshold config rejected",
			Metadata:    map[string]any{"err": err.Error()},
		})
		return err
	}
	_ = s.events.Append(context.Background(), presence_monitor.MonitorEvent{
		Type:        "CONFIG",
		Description: "Thresholds updated",
		Metadata: map[string]any{
			"absence_limit_seconds":    cfg.AbsenceLimitSeconds,
			"device_use_limit_seconds": cfg.DeviceUseLimitSeconds,
		},
	})
	return nil
}

// Degraded reports whether the engine is running on a fallback config.
func (s *MonitorService) Degraded() bool {
	return s.evaluator.Degraded()
}

// enqueue hands a job to the dispatch worker without ever blocking the
// producer; a full queue drops the job and counts it.
func (s *MonitorService) enqueue(job alertJob) {
	select {
	case s.queue <- job:
	default:
		s.metrics.DispatchDropped.Inc()
		if s.log != nil {
			s.log.Errorw("dispatch_queue_full", "kind", job.kind)
		}
	}
}

// deliver fans the job out across all channels and records the outcome.
// Partial delivery is acceptable; failures stay per-channel.
func (s *MonitorService) deliver(ctx context.Context, job alertJob) {
	results := s.dispatcher.Send(ctx, job.message, s.channels)

	delivered := make([]string, 0, len(results))
	failed := make([]string, 0)
	for id, res := range results {
		if res.Delivered {
			delivered = append(delivered, string(id))
			continue
		}
		failed = append(failed, string(id))
		s.metrics.ChannelFailures.WithLabelValues(string(id)).Inc()
	}

	s.metrics.AlertsFired.WithLabelValues(string(job.kind)).Inc()
	if s.log != nil {
		s.log.Infow("alert_dispatched", "kind", job.kind, "delivered", delivered, "failed", failed)
	}

	if err := s.events.Append(ctx, presence_monitor.MonitorEvent{
		Type:        job.eventType,
		Description: job.message,
		Metadata: map[string]any{
			"kind":      string(job.kind),
			"delivered": delivered,
			"failed":    failed,
		},
	}); err != nil && s.log != nil {
		s.log.Errorw("event_append_failed", "err", err)
	}
}

// alertMessage renders the human-readable notification text for a kind.
func alertMessage(kind presence_monitor.AlertKind, st presence_monitor.CanonicalState) string {
	switch kind {
	case presence_monitor.KindAbsence:
		return fmt.Sprintf("No one detected for %s", formatSeconds(st.AbsenceSeconds))
	case presence_monitor.KindDeviceUse:
		return fmt.Sprintf("Device in use for %s", formatSeconds(st.DeviceUseSeconds))
	default:
		return string(kind)
	}
}

func formatSeconds(s float64) string {
	return (time.Duration(s * float64(time.Second))).Truncate(time.Second).String()
}
