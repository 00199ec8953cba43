package service

import (
	"context"
	"math/rand"
	"time"

	"presence_monitor"
	"presence_monitor/internal/logger"
)

// ----------- Simulation constants -----------
const (
	presentPhase   = 45 * time.Second // person at the desk
	absentPhase    = 90 * time.Second // person away
	deviceOnPhase  = 30 * time.Second // device picked up (while present)
	deviceOffPhase = 60 * time.Second
	flickerChance  = 0.05 // per-frame chance a raw signal is inverted
)

// SimulatorService feeds synthetic noisy snapshots into the monitor so the
// whole pipeline runs without a capture device. The flicker noise is exactly
// what the stabilizer's debounce exists to absorb.
type SimulatorService struct {
	monitor Monitor
	log     *logger.Logger
	rng     *rand.Rand
}

// NewSimulatorService returns a simulator with its own RNG.
func NewSimulatorService(monitor Monitor, log *logger.Logger) *SimulatorService {
	return &SimulatorService{
		monitor: monitor,
		log:     log,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run ticks at the given interval until ctx is canceled.
func (s *SimulatorService) Run(ctx context.Context, tick time.Duration) {
	start := time.Now()
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			elapsed := now.Sub(start)
			snap := s.snapshotAt(elapsed)
			if _, err := s.monitor.ProcessSnapshot(snap); err != nil && s.log != nil {
				s.log.Warnw("simulator_snapshot_rejected", "err", err)
			}
		}
	}
}

// snapshotAt derives the raw signals for a point on the phase timeline and
// sprinkles flicker noise on top.
func (s *SimulatorService) snapshotAt(elapsed time.Duration) presence_monitor.DetectionSnapshot {
	present := elapsed%(presentPhase+absentPhase) < presentPhase
	device := present && elapsed%(deviceOnPhase+deviceOffPhase) < deviceOnPhase

	if s.rng.Float64() < flickerChance {
		present = !present
	}
	if s.rng.Float64() < flickerChance {
		device = !device
	}

	return presence_monitor.DetectionSnapshot{
		PersonPresent: present,
		DeviceInUse:   device,
		Monotonic:     elapsed,
	}
}
