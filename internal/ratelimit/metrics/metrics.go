package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejected      *prometheus.CounterVec
	StoreErrors   prometheus.Counter
	BreakerOpened prometheus.Counter
	Degraded      prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ringside_ratelimit_rejected_total",
			Help: "Requests refused with 429, by endpoint class",
		}, []string{"class"}),
		StoreErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "ringside_ratelimit_store_errors_total",
			Help: "Primary bucket store errors",
		}),
		BreakerOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "ringside_ratelimit_breaker_opened_total",
			Help: "Times the limiter switched to the in-memory fallback",
		}),
		Degraded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ringside_ratelimit_degraded",
			Help: "1 while the limiter is serving from the in-memory fallback",
		}),
	}
}

func (m *Metrics) IncRejected(class string) {
	m.Rejected.WithLabelValues(class).Inc()
}

func (m *Metrics) IncStoreErrors() {
	m.StoreErrors.Inc()
}

func (m *Metrics) SetDegraded(degraded bool, opened bool) {
	if opened {
		m.BreakerOpened.Inc()
	}
	if degraded {
		m.Degraded.Set(1)
		return
	}
	m.Degraded.Set(0)
}
