package engine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"presence_monitor"
)

// ThresholdConfig holds the duration limits that trip alerts. It is treated
// as an atomically-swapped snapshot: readers never see a half-updated pair.
type ThresholdConfig struct {
	AbsenceLimitSeconds   float64 `json:"absence_limit_seconds" mapstructure:"absence_limit_seconds"`
	DeviceUseLimitSeconds float64 `json:"device_use_limit_seconds" mapstructure:"device_use_limit_seconds"`
}

// Validate rejects non-positive limits.
func (c ThresholdConfig) Validate() error {
	if c.AbsenceLimitSeconds <= 0 {
		return fmt.Errorf("%w: absence_limit_seconds must be > 0, got %v", ErrInvalidConfig, c.AbsenceLimitSeconds)
	}
	if c.DeviceUseLimitSeconds <= 0 {
		return fmt.Errorf("%w: device_use_limit_seconds must be > 0, got %v", ErrInvalidConfig, c.DeviceUseLimitSeconds)
	}
	return nil
}

// ThresholdEvaluator decides, edge-triggered, when a duration has just
// crossed its limit. Each kind stays armed for the rest of its excess episode
// and re-arms only when the underlying duration returns to zero, so alert
// cardinality is one per episode no matter how often Check is polled.
type ThresholdEvaluator struct {
	cfg      atomic.Pointer[ThresholdConfig]
	degraded atomic.Bool

	mu    sync.Mutex
	armed map[presence_monitor.AlertKind]bool
}

// NewThresholdEvaluator returns an evaluator with a validated initial config.
func NewThresholdEvaluator(cfg ThresholdConfig) (*ThresholdEvaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &ThresholdEvaluator{
		armed: make(map[presence_monitor.AlertKind]bool, 2),
	}
	e.cfg.Store(&cfg)
	return e, nil
}

// Config returns the current threshold snapshot.
func (e *ThresholdEvaluator) Config() ThresholdConfig {
	return *e.cfg.Load()
}

// SetConfig atomically swaps the limits. An invalid replacement keeps the
// last-known-good config in place and flags the evaluator degraded; updates
// take effect on the next Check, with no mid-flight tearing.
func (e *ThresholdEvaluator) SetConfig(cfg ThresholdConfig) error {
	if err := cfg.Validate(); err != nil {
		e.degraded.Store(true)
		return err
	}
	e.cfg.Store(&cfg)
	e.degraded.Store(false)
	return nil
}

// Degraded reports whether the last config replacement was rejected.
func (e *ThresholdEvaluator) Degraded() bool {
	return e.degraded.Load()
}

// Check returns the kinds whose limits were crossed on this call and not yet
// reported for the current excess episode.
func (e *ThresholdEvaluator) Check(st presence_monitor.CanonicalState) []presence_monitor.AlertKind {
	cfg := e.cfg.Load()

	e.mu.Lock()
	defer e.mu.Unlock()

	var crossed []presence_monitor.AlertKind
	if k := e.evaluate(presence_monitor.KindAbsence, st.AbsenceSeconds, cfg.AbsenceLimitSeconds); k {
		crossed = append(crossed, presence_monitor.KindAbsence)
	}
	if k := e.evaluate(presence_monitor.KindDeviceUse, st.DeviceUseSeconds, cfg.DeviceUseLimitSeconds); k {
		crossed = append(crossed, presence_monitor.KindDeviceUse)
	}
	return crossed
}

// evaluate advances one kind's armed latch. Caller holds e.mu.
func (e *ThresholdEvaluator) evaluate(kind presence_monitor.AlertKind, seconds, limit float64) bool {
	if seconds == 0 {
		// Episode over: re-arm for the next one.
		e.armed[kind] = false
		return false
	}
	if seconds <= limit || e.armed[kind] {
		return false
	}
	e.armed[kind] = true
	return true
}

// Exceeds reports the level view of both limits against a state, for the
// status summary. Unlike Check it has no memory and never mutates the latch.
func (e *ThresholdEvaluator) Exceeds(st presence_monitor.CanonicalState) (absence, deviceUse bool) {
	cfg := e.cfg.Load()
	return st.AbsenceSeconds > cfg.AbsenceLimitSeconds,
		st.DeviceUseSeconds > cfg.DeviceUseLimitSeconds
}
