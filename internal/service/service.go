package service

import (
	"context"
	"time"

	"presence_monitor"
	"presence_monitor/internal/engine"
	"presence_monitor/internal/logger"
	"presence_monitor/internal/metrics"
	"presence_monitor/internal/notify"
	"presence_monitor/internal/repository"
	"presence_monitor/internal/schedule"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Monitor is the stabilization-and-alerting engine facade: the producer write
// path, the status read path, and the threshold settings surface.
type Monitor interface {
	ProcessSnapshot(snap presence_monitor.DetectionSnapshot) (presence_monitor.CanonicalState, error)
	Status() presence_monitor.StatusSummary
	Thresholds() engine.ThresholdConfig
	SetThresholds(cfg engine.ThresholdConfig) error
	Degraded() bool
	Announce(ctx context.Context, kind presence_monitor.AlertKind, eventType, message string)
	Run(ctx context.Context)
}

// Schedules exposes reminder management with engine-side validation.
type Schedules interface {
	List(ctx context.Context) ([]presence_monitor.ScheduleEntry, error)
	Add(ctx context.Context, timeOfDay, content string) (presence_monitor.ScheduleEntry, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]presence_monitor.MonitorEvent, error)
}

// Simulator runs the background loop that feeds synthetic detection
// snapshots into the monitor when no capture device is attached.
// Stop via context cancellation in main() for graceful shutdown.
type Simulator interface {
	Run(ctx context.Context, tick time.Duration)
}

// EngineConfig gathers the tunables main() reads from viper.
type EngineConfig struct {
	Stabilizer      engine.StabilizerConfig
	Thresholds      engine.ThresholdConfig
	Cooldowns       map[presence_monitor.AlertKind]time.Duration
	DefaultCooldown time.Duration
	DispatchTimeout time.Duration
	QueueSize       int
	ScheduleRefresh time.Duration
}

// Deps are the collaborators the service layer is wired from. Lifecycle is
// owned by the process entry point; nothing here reaches for a global.
type Deps struct {
	Repos    *repository.Repository
	Channels []notify.Channel
	Metrics  *metrics.Metrics
	Log      *logger.Logger
	Engine   EngineConfig
}

// Service aggregates all sub-services.
type Service struct {
	Monitor
	Schedules
	EventLog
	Simulator
	Authorization

	// Checker is exported so main can drive its Run loop alongside the
	// monitor's dispatch worker.
	Checker *schedule.Checker
}

// NewService wires repositories and the engine into concrete services.
func NewService(d Deps) (*Service, error) {
	monitor, err := NewMonitorService(d)
	if err != nil {
		return nil, err
	}

	checker := schedule.NewChecker(d.Repos.Schedules, monitor, d.Log, d.Engine.ScheduleRefresh)

	return &Service{
		Monitor:       monitor,
		Schedules:     NewScheduleService(d.Repos.Schedules, checker.Invalidate),
		EventLog:      NewEventLogService(d.Repos.Events),
		Simulator:     NewSimulatorService(monitor, d.Log),
		Authorization: NewAuthService(d.Repos.Auth),
		Checker:       checker,
	}, nil
}
