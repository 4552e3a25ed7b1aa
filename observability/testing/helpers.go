// Package testing provides in-memory OpenTelemetry providers and assertion
// helpers for instrumentation tests.
//
//	tp := NewTestTraceProvider()
//	mp := NewTestMeterProvider()
//	client, _ := httpclient.New(host,
//	    httpclient.WithTracerProvider(tp),
//	    httpclient.WithMeterProvider(mp))
//	...
//	spans := tp.Exporter.GetSpans()
//	attempts := SumInt64(mp.Collect(t), "http.client.attempts")
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTraceProvider wraps the SDK TracerProvider and in-memory exporter for testing.
type TestTraceProvider struct {
	*sdktrace.TracerProvider
	Exporter *tracetest.InMemoryExporter
}

// NewTestTraceProvider creates a TracerProvider that exports synchronously
// to memory.
func NewTestTraceProvider() *TestTraceProvider {
	exporter := tracetest.NewInMemoryExporter()
	return &TestTraceProvider{
		TracerProvider: sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)),
		Exporter:       exporter,
	}
}

// TestMeterProvider wraps the SDK MeterProvider and manual reader for testing.
type TestMeterProvider struct {
	*sdkmetric.MeterProvider
	Reader *sdkmetric.ManualReader
}

// NewTestMeterProvider creates a MeterProvider collected on demand.
func NewTestMeterProvider() *TestMeterProvider {
	reader := sdkmetric.NewManualReader()
	return &TestMeterProvider{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
		Reader:        reader,
	}
}

// Collect reads all metrics from the provider.
func (tmp *TestMeterProvider) Collect(t *testing.T) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, tmp.Reader.Collect(context.Background(), &rm), "failed to collect metrics")
	return rm
}

// FindMetric returns the named metric or nil.
func FindMetric(rm metricdata.ResourceMetrics, metricName string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == metricName {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// SumInt64 adds up every data point of an int64 sum metric whose attributes
// contain all of attrs. A missing metric sums to zero.
func SumInt64(rm metricdata.ResourceMetrics, metricName string, attrs ...attribute.KeyValue) int64 {
	m := FindMetric(rm, metricName)
	if m == nil {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}

	var total int64
	for _, dp := range sum.DataPoints {
		if hasAttributes(dp.Attributes, attrs) {
			total += dp.Value
		}
	}
	return total
}

// HistogramCount returns the number of recordings of a float64 histogram.
func HistogramCount(rm metricdata.ResourceMetrics, metricName string) uint64 {
	m := FindMetric(rm, metricName)
	if m == nil {
		return 0
	}
	hist, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		return 0
	}

	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	return count
}

func hasAttributes(set attribute.Set, attrs []attribute.KeyValue) bool {
	for _, want := range attrs {
		got, ok := set.Value(want.Key)
		if !ok || got != want.Value {
			return false
		}
	}
	return true
}

// CountEvents returns how many events named name the span recorded.
func CountEvents(span *tracetest.SpanStub, name string) int {
	n := 0
	for _, ev := range span.Events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

// AssertSpanAttribute asserts the span carries key with the expected value.
func AssertSpanAttribute(t *testing.T, span *tracetest.SpanStub, expected attribute.KeyValue) {
	t.Helper()
	for _, attr := range span.Attributes {
		if attr.Key == expected.Key {
			assert.Equal(t, expected.Value.Emit(), attr.Value.Emit(), "attribute %s value mismatch", expected.Key)
			return
		}
	}
	assert.Failf(t, "attribute not found", "span %q has no attribute %s", span.Name, expected.Key)
}

// AssertSpanStatus asserts the span status code.
func AssertSpanStatus(t *testing.T, span *tracetest.SpanStub, expectedCode codes.Code) {
	t.Helper()
	assert.Equal(t, expectedCode, span.Status.Code, "span status code mismatch")
}
