// Package guard routes audit events to a primary publisher while it is
// healthy and to a fallback while a circuit breaker is open.
package guard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	audit "auditkit/pkg/platform/audit"
	"auditkit/pkg/platform/circuit"
)

// Metrics holds Prometheus metrics for the guarded publisher.
type Metrics struct {
	BreakerState prometheus.Gauge
	Fallbacks    prometheus.Counter
}

// NewMetrics registers the guard metrics for the named primary with reg.
func NewMetrics(reg prometheus.Registerer, primary string) *Metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"primary": primary}
	return &Metrics{
		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "auditkit_audit_sink_breaker_state",
			Help:        "Circuit breaker state of the primary audit sink (0=closed, 1=open)",
			ConstLabels: labels,
		}),
		Fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name:        "auditkit_audit_sink_fallback_total",
			Help:        "Total number of audit events routed to the fallback sink",
			ConstLabels: labels,
		}),
	}
}

func (m *Metrics) setState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}

func (m *Metrics) incFallback() {
	if m == nil {
		return
	}
	m.Fallbacks.Inc()
}

// Publisher tries the primary and falls back on failure. While the breaker is
// open the primary is only probed once per probe interval.
type Publisher struct {
	primary  audit.Publisher
	fallback audit.Publisher
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func New(primary, fallback audit.Publisher, breaker *circuit.Breaker, opts ...Option) *Publisher {
	p := &Publisher{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.metrics.setState(breaker.IsOpen())
	return p
}

func (p *Publisher) Publish(ctx context.Context, event audit.Event) error {
	if !p.breaker.ShouldProbe() {
		return p.useFallback(ctx, event, nil)
	}

	err := p.primary.Publish(ctx, event)
	if err == nil {
		if _, change := p.breaker.RecordSuccess(); change.Closed {
			p.metrics.setState(false)
			p.logger.InfoContext(ctx, "audit sink recovered", "sink", p.breaker.Name())
		}
		return nil
	}

	if _, change := p.breaker.RecordFailure(); change.Opened {
		p.metrics.setState(true)
		p.logger.WarnContext(ctx, "audit sink circuit opened", "sink", p.breaker.Name(), "error", err)
	}
	return p.useFallback(ctx, event, err)
}

func (p *Publisher) useFallback(ctx context.Context, event audit.Event, primaryErr error) error {
	p.metrics.incFallback()
	if err := p.fallback.Publish(ctx, event); err != nil {
		if primaryErr != nil {
			return fmt.Errorf("primary %s: %w; fallback: %w", p.breaker.Name(), primaryErr, err)
		}
		return fmt.Errorf("fallback for %s: %w", p.breaker.Name(), err)
	}
	return nil
}
