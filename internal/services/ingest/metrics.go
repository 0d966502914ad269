package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts submissions seen by the collector.
type Metrics struct {
	accepted prometheus.Counter
	rejected *prometheus.CounterVec
}

// NewMetrics registers the collector counters on reg. A nil reg yields
// counters that are tracked but never exported.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "formmetrics",
			Name:      "records_accepted_total",
			Help:      "Number of submission records stored by the collector",
		}),
		rejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formmetrics",
			Name:      "records_rejected_total",
			Help:      "Number of submissions the collector refused",
		}, []string{"reason"}),
	}
}

func (m *Metrics) incAccepted() {
	if m != nil {
		m.accepted.Inc()
	}
}

func (m *Metrics) incRejected(reason string) {
	if m != nil {
		m.rejected.WithLabelValues(reason).Inc()
	}
}
