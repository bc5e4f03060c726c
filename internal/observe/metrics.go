// Package observe provides application-wide observability primitives for
// hireloop: OpenTelemetry metrics and the Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all hireloop metrics.
const meterName = "github.com/hireloop/hireloop"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// LLMDuration tracks model call latency. Use with attributes:
	//   attribute.String("model", ...), attribute.String("operation", ...)
	LLMDuration metric.Float64Histogram

	// EmbeddingDuration tracks embedding call latency.
	EmbeddingDuration metric.Float64Histogram

	// EvaluationDuration tracks per-phase answer evaluation latency. Use with
	// attribute.String("phase", "instant"|"deep"|"code").
	EvaluationDuration metric.Float64Histogram

	// --- Counters ---

	// ModelAttempts counts router attempts per model. Use with attributes:
	//   attribute.String("model", ...), attribute.String("status", "ok"|"quota"|"error")
	ModelAttempts metric.Int64Counter

	// QuestionsGenerated counts generated questions. Use with attribute:
	//   attribute.String("source", "smart"|"fallback"|"static")
	QuestionsGenerated metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// Violations counts recorded proctoring violations. Use with attribute:
	//   attribute.String("type", ...)
	Violations metric.Int64Counter

	// --- Gauges ---

	// ActiveInterviews tracks the number of in-progress interview sessions.
	ActiveInterviews metric.Int64UpDownCounter

	// --- HTTP ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The wide
// upper range covers deep-evaluation calls that run close to their 15 s cap.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.LLMDuration, err = m.Float64Histogram("hireloop.llm.duration",
		metric.WithDescription("Latency of model calls by model and operation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EmbeddingDuration, err = m.Float64Histogram("hireloop.embedding.duration",
		metric.WithDescription("Latency of embedding calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EvaluationDuration, err = m.Float64Histogram("hireloop.evaluation.duration",
		metric.WithDescription("Latency of answer evaluation by phase."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ModelAttempts, err = m.Int64Counter("hireloop.model.attempts",
		metric.WithDescription("Total router attempts by model and status."),
	); err != nil {
		return nil, err
	}
	if met.QuestionsGenerated, err = m.Int64Counter("hireloop.questions.generated",
		metric.WithDescription("Total questions generated by source."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("hireloop.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.Violations, err = m.Int64Counter("hireloop.proctor.violations",
		metric.WithDescription("Total proctoring violations by type."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveInterviews, err = m.Int64UpDownCounter("hireloop.active_interviews",
		metric.WithDescription("Number of in-progress interview sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("hireloop.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordModelAttempt records a router attempt counter increment with the
// standard attribute set.
func (m *Metrics) RecordModelAttempt(ctx context.Context, model, status string) {
	m.ModelAttempts.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("status", status),
		),
	)
}

// RecordQuestionGenerated records a generated question counter increment.
func (m *Metrics) RecordQuestionGenerated(ctx context.Context, source string) {
	m.QuestionsGenerated.Add(ctx, 1,
		metric.WithAttributes(attribute.String("source", source)),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordViolation records a proctoring violation counter increment.
func (m *Metrics) RecordViolation(ctx context.Context, violationType string) {
	m.Violations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", violationType)),
	)
}
