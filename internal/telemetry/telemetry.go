// Package telemetry provides Prometheus metrics and tracing for the affiliate engine.
// All Provider methods are safe on a nil receiver so tests can pass nil.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName identifies spans emitted by the engine.
const TracerName = "github.com/jonesrussell/north-cloud/affiliate-engine"

const namespace = "affiliate"

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	// Oracle metrics
	OracleCalls    *prometheus.CounterVec
	OracleDuration *prometheus.HistogramVec
	BreakerState   *prometheus.GaugeVec

	// Resolver metrics
	Fallbacks *prometheus.CounterVec

	// Link lifecycle metrics
	LinksGenerated  *prometheus.CounterVec
	LinkTransitions *prometheus.CounterVec
	BatchDuration   prometheus.Histogram

	// Ad copy metrics
	AdCopies *prometheus.CounterVec
}

// Provider wraps the tracer, metrics and the registry they live in.
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	registry *prometheus.Registry
}

// NewProvider registers metrics on a private registry, alongside the Go and
// process collectors.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Provider{
		Tracer:   otel.Tracer(TracerName),
		Metrics:  initMetrics(promauto.With(reg)),
		registry: reg,
	}
}

// Registry exposes the registry so other collectors (HTTP metrics) can join it.
func (p *Provider) Registry() *prometheus.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

// Handler serves the private registry for /metrics.
func (p *Provider) Handler() http.Handler {
	if p == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func initMetrics(f promauto.Factory) *Metrics {
	m := &Metrics{}
	initOracleMetrics(f, m)
	initLinkMetrics(f, m)

	m.Fallbacks = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resolver_fallbacks_total",
		Help:      "Resolutions served from the static table",
	}, []string{"operation", "reason"})

	m.AdCopies = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ad_copies_generated_total",
		Help:      "Ad copies persisted",
	}, []string{"ad_type", "source"})

	return m
}

func initOracleMetrics(f promauto.Factory, m *Metrics) {
	m.OracleCalls = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "oracle_calls_total",
		Help:      "Oracle invocations by outcome (ok, timeout, unavailable, cancelled)",
	}, []string{"provider", "outcome"})

	m.OracleDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "oracle_call_duration_seconds",
		Help:      "Oracle latency including retries",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 10, 15},
	}, []string{"provider"})

	m.BreakerState = f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "oracle_breaker_state",
		Help:      "Circuit breaker state (0 closed, 1 open, 2 half-open)",
	}, []string{"provider"})
}

func initLinkMetrics(f promauto.Factory, m *Metrics) {
	m.LinksGenerated = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "links_generated_total",
		Help:      "Link generation attempts by outcome",
	}, []string{"platform", "outcome"})

	m.LinkTransitions = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "link_transitions_total",
		Help:      "Refresh status transitions, including rejected ones",
	}, []string{"from", "to", "applied"})

	m.BatchDuration = f.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "link_batch_duration_seconds",
		Help:      "Wall time of generate-all batches",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
}

// RecordOracleCall records one guarded oracle invocation.
func (p *Provider) RecordOracleCall(provider, outcome string, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.OracleCalls.WithLabelValues(provider, outcome).Inc()
	p.Metrics.OracleDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// SetBreakerState publishes the breaker state for provider.
func (p *Provider) SetBreakerState(provider string, state int) {
	if p == nil {
		return
	}
	p.Metrics.BreakerState.WithLabelValues(provider).Set(float64(state))
}

// RecordFallback counts a static-table resolution.
func (p *Provider) RecordFallback(operation, reason string) {
	if p == nil {
		return
	}
	p.Metrics.Fallbacks.WithLabelValues(operation, reason).Inc()
}

// RecordLinkGenerated counts a generation attempt.
func (p *Provider) RecordLinkGenerated(platform, outcome string) {
	if p == nil {
		return
	}
	p.Metrics.LinksGenerated.WithLabelValues(platform, outcome).Inc()
}

// RecordTransition counts a refresh decision.
func (p *Provider) RecordTransition(from, to string, applied bool) {
	if p == nil {
		return
	}
	label := "false"
	if applied {
		label = "true"
	}
	p.Metrics.LinkTransitions.WithLabelValues(from, to, label).Inc()
}

// RecordBatch observes a batch wall time.
func (p *Provider) RecordBatch(duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.BatchDuration.Observe(duration.Seconds())
}

// RecordAdCopy counts a persisted ad copy.
func (p *Provider) RecordAdCopy(adType, source string) {
	if p == nil {
		return
	}
	p.Metrics.AdCopies.WithLabelValues(adType, source).Inc()
}

// StartSpan starts a span. A nil Provider uses the global tracer.
// The caller is responsible for ending the span with span.End().
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer(TracerName)
	if p != nil && p.Tracer != nil {
		tracer = p.Tracer
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
