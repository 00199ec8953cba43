package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the engine's observability counters. A failed delivery is
// never fatal, so counters are how "alert not delivered" stays visible.
type Metrics struct {
	registry *prometheus.Registry

	AlertsFired       *prometheus.CounterVec
	AlertsSuppressed  *prometheus.CounterVec
	ChannelFailures   *prometheus.CounterVec
	SnapshotsRejected prometheus.Counter
	ScheduleFires     prometheus.Counter
	DispatchDropped   prometheus.Counter
}

// New builds a self-contained registry with all engine counters registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		AlertsFired: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "presence_monitor",
			Name:      "alerts_fired_total",
			Help:      "Alerts that passed cooldown and were dispatched.",
		}, []string{"kind"}),
		AlertsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "presence_monitor",
			Name:      "alerts_suppressed_total",
			Help:      "Threshold crossings suppressed by cooldown.",
		}, []string{"kind"}),
		ChannelFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "presence_monitor",
			Name:      "channel_failures_total",
			Help:      "Per-channel delivery failures, including timeouts.",
		}, []string{"channel"}),
		SnapshotsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "presence_monitor",
			Name:      "snapshots_rejected_total",
			Help:      "Malformed detection snapshots rejected by the stabilizer.",
		}),
		ScheduleFires: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "presence_monitor",
			Name:      "schedule_fires_total",
			Help:      "Schedule entries fired.",
		}),
		DispatchDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "presence_monitor",
			Name:      "dispatch_dropped_total",
			Help:      "Alert dispatches dropped because the async queue was full.",
		}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
