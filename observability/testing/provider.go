package testing

import (
	"context"
	"errors"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/httpwrapper/observability"
)

// TestProvider is an observability.Provider backed by the in-memory trace and
// metric providers. It counts flushes and shutdowns so tests can check that
// telemetry was drained.
type TestProvider struct {
	Traces  *TestTraceProvider
	Metrics *TestMeterProvider

	flushes   atomic.Int32
	shutdowns atomic.Int32
}

var _ observability.Provider = (*TestProvider)(nil)

// NewTestProvider creates a TestProvider with fresh in-memory providers.
func NewTestProvider() *TestProvider {
	return &TestProvider{
		Traces:  NewTestTraceProvider(),
		Metrics: NewTestMeterProvider(),
	}
}

// TracerProvider implements observability.Provider
func (p *TestProvider) TracerProvider() trace.TracerProvider {
	return p.Traces
}

// MeterProvider implements observability.Provider
func (p *TestProvider) MeterProvider() metric.MeterProvider {
	return p.Metrics
}

// ForceFlush implements observability.Provider
func (p *TestProvider) ForceFlush(ctx context.Context) error {
	p.flushes.Add(1)
	return errors.Join(p.Traces.ForceFlush(ctx), p.Metrics.ForceFlush(ctx))
}

// Shutdown implements observability.Provider. The in-memory exporter is reset
// on shutdown, so read spans and metrics before calling it.
func (p *TestProvider) Shutdown(ctx context.Context) error {
	p.shutdowns.Add(1)
	return errors.Join(p.Traces.Shutdown(ctx), p.Metrics.Shutdown(ctx))
}

// Flushes reports how many times ForceFlush was called.
func (p *TestProvider) Flushes() int {
	return int(p.flushes.Load())
}

// Shutdowns reports how many times Shutdown was called.
func (p *TestProvider) Shutdowns() int {
	return int(p.shutdowns.Load())
}
