package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit trail health. A non-zero write failure rate means the
// trail is missing entries for mutations that did happen.
type Metrics struct {
	EntriesWritten *prometheus.CounterVec
	WriteFailures  *prometheus.CounterVec
	RelayPublished prometheus.Counter
	RelayFailures  prometheus.Counter
}

// NewMetrics registers audit metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EntriesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ringside_audit_entries_written_total",
			Help: "Audit entries appended, by action",
		}, []string{"action"}),
		WriteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ringside_audit_write_failures_total",
			Help: "Audit entries lost after a committed mutation, by action",
		}, []string{"action"}),
		RelayPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "ringside_audit_relay_published_total",
			Help: "Audit entries relayed from the outbox to the message bus",
		}),
		RelayFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "ringside_audit_relay_failures_total",
			Help: "Outbox relay batches that failed to publish",
		}),
	}
}

func (m *Metrics) IncEntriesWritten(action Action) {
	m.EntriesWritten.WithLabelValues(string(action)).Inc()
}

func (m *Metrics) IncWriteFailures(action Action) {
	m.WriteFailures.WithLabelValues(string(action)).Inc()
}

func (m *Metrics) AddRelayPublished(n int) {
	m.RelayPublished.Add(float64(n))
}

func (m *Metrics) IncRelayFailures() {
	m.RelayFailures.Inc()
}
