// Package tracking records OpenTelemetry spans and metrics for HTTP client
// executions and their individual attempts.
package tracking

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Instrumentation scope for client metrics and spans
	instrumentationName = "httpwrapper/httpclient"

	metricAttemptDuration = "http.client.request.duration" // Histogram in seconds, one per attempt
	metricAttempts        = "http.client.attempts"         // Counter
	metricRetries         = "http.client.retries"          // Counter
	metricExhausted       = "http.client.exhausted"        // Counter

	attrHTTPRequestMethod  = "http.request.method"
	attrHTTPResponseStatus = "http.response.status_code"
	attrErrorType          = "error.type"
	attrResendCount        = "http.request.resend_count"
	attrURLPath            = "url.path"
)

// Attempt duration buckets per OTel HTTP semantic conventions
var durationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

// Tracker owns the instruments for one client session. Instruments that fail
// to initialize stay nil and are skipped.
type Tracker struct {
	tracer    trace.Tracer
	duration  metric.Float64Histogram
	attempts  metric.Int64Counter
	retries   metric.Int64Counter
	exhausted metric.Int64Counter
}

// logMetricError logs a metric initialization error to stderr.
// Metrics failures must not break the client.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize HTTP client metric %s: %v\n", metricName, err)
	}
}

// New creates a Tracker. Nil providers fall back to the global OTel providers.
func New(mp metric.MeterProvider, tp trace.TracerProvider) *Tracker {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	meter := mp.Meter(instrumentationName)
	t := &Tracker{tracer: tp.Tracer(instrumentationName)}

	var err error
	t.duration, err = meter.Float64Histogram(
		metricAttemptDuration,
		metric.WithDescription("Duration of HTTP client attempts"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	logMetricError(metricAttemptDuration, err)

	t.attempts, err = meter.Int64Counter(
		metricAttempts,
		metric.WithDescription("Number of HTTP client attempts"),
		metric.WithUnit("{attempt}"),
	)
	logMetricError(metricAttempts, err)

	t.retries, err = meter.Int64Counter(
		metricRetries,
		metric.WithDescription("Number of HTTP client retries scheduled after a failed attempt"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(metricRetries, err)

	t.exhausted, err = meter.Int64Counter(
		metricExhausted,
		metric.WithDescription("Number of HTTP client calls that failed every attempt"),
		metric.WithUnit("{call}"),
	)
	logMetricError(metricExhausted, err)

	return t
}

// Start opens the client span covering the whole retry loop.
func (t *Tracker) Start(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(attrHTTPRequestMethod, method),
			attribute.String(attrURLPath, path),
		),
	)
}

// Attempt records one finished attempt. A non-empty errType marks a failed
// attempt and status is ignored.
func (t *Tracker) Attempt(ctx context.Context, method string, n int, elapsed time.Duration, status int, errType string) {
	attrs := []attribute.KeyValue{attribute.String(attrHTTPRequestMethod, method)}
	if errType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errType))
	} else {
		attrs = append(attrs, attribute.Int(attrHTTPResponseStatus, status))
	}

	if t.attempts != nil {
		t.attempts.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if t.duration != nil {
		t.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	}

	span := trace.SpanFromContext(ctx)
	eventAttrs := append([]attribute.KeyValue{attribute.Int(attrResendCount, n-1)}, attrs...)
	span.AddEvent("attempt", trace.WithAttributes(eventAttrs...))
}

// Retry records that another attempt was scheduled.
func (t *Tracker) Retry(ctx context.Context, method string) {
	if t.retries != nil {
		t.retries.Add(ctx, 1, metric.WithAttributes(attribute.String(attrHTTPRequestMethod, method)))
	}
}

// Exhausted records a call that spent its whole attempt budget.
func (t *Tracker) Exhausted(ctx context.Context, method string) {
	if t.exhausted != nil {
		t.exhausted.Add(ctx, 1, metric.WithAttributes(attribute.String(attrHTTPRequestMethod, method)))
	}
}

// End closes the span opened by Start.
func (t *Tracker) End(span trace.Span, attempts, status int, err error, errType string) {
	span.SetAttributes(attribute.Int(attrResendCount, max(attempts-1, 0)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(attrErrorType, errType))
	} else {
		span.SetAttributes(attribute.Int(attrHTTPResponseStatus, status))
	}
	span.End()
}

