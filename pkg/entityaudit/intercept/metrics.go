package intercept

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons recorded on the dropped counter.
const (
	ReasonIntrospection = "introspection"
	ReasonPublish       = "publish"
)

// Metrics holds Prometheus metrics for audit event synthesis.
type Metrics struct {
	Published *prometheus.CounterVec
	Dropped   *prometheus.CounterVec
}

// NewMetrics registers the interceptor metrics with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auditkit_audit_events_published_total",
			Help: "Total number of audit events handed to the publisher",
		}, []string{"action"}),
		Dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "auditkit_audit_events_dropped_total",
			Help: "Total number of audit events dropped, by reason",
		}, []string{"reason"}),
	}
}

// IncPublished increments the published counter.
func (m *Metrics) IncPublished(action string) {
	if m == nil {
		return
	}
	m.Published.WithLabelValues(action).Inc()
}

// IncDropped increments the dropped counter for reason.
func (m *Metrics) IncDropped(reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(reason).Inc()
}
