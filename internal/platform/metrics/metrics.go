package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the control plane's Prometheus metrics.
type Metrics struct {
	Transitions      *prometheus.CounterVec
	TransitionErrors *prometheus.CounterVec
	SweepExpired     prometheus.Counter
	SweepFailures    prometheus.Counter
	SweepDuration    prometheus.Histogram
	SweepSkipped     prometheus.Counter
	KillSwitchBlocks prometheus.Counter
	RequestLatency   *prometheus.HistogramVec
}

// New registers all metrics on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ringside_transitions_total",
			Help: "Committed state transitions, by entity and transition",
		}, []string{"entity", "transition"}),
		TransitionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ringside_transition_errors_total",
			Help: "Rejected or failed transitions, by transition and error kind",
		}, []string{"transition", "kind"}),
		SweepExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "ringside_sweep_expired_total",
			Help: "Proposals expired by the scheduled sweep",
		}),
		SweepFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ringside_sweep_failures_total",
			Help: "Proposals the sweep failed to expire",
		}),
		SweepSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "ringside_sweep_skipped_total",
			Help: "Proposals that changed state before the sweep reached them",
		}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ringside_sweep_duration_seconds",
			Help:    "Wall time of one expiry sweep",
			Buckets: prometheus.DefBuckets,
		}),
		KillSwitchBlocks: factory.NewCounter(prometheus.CounterOpts{
			Name: "ringside_kill_switch_blocks_total",
			Help: "Proposal creations refused by the kill switch",
		}),
		RequestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ringside_http_request_duration_seconds",
			Help:    "Callable latency by route pattern, method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method", "status"}),
	}
}

func (m *Metrics) IncTransition(entity, transition string) {
	m.Transitions.WithLabelValues(entity, transition).Inc()
}

func (m *Metrics) IncTransitionError(transition, kind string) {
	m.TransitionErrors.WithLabelValues(transition, kind).Inc()
}

func (m *Metrics) ObserveSweep(expired, skipped, failed int, seconds float64) {
	m.SweepExpired.Add(float64(expired))
	m.SweepSkipped.Add(float64(skipped))
	m.SweepFailures.Add(float64(failed))
	m.SweepDuration.Observe(seconds)
}

func (m *Metrics) IncKillSwitchBlock() {
	m.KillSwitchBlocks.Inc()
}

func (m *Metrics) ObserveRequest(route, method string, status int, seconds float64) {
	m.RequestLatency.WithLabelValues(route, method, strconv.Itoa(status)).Observe(seconds)
}
