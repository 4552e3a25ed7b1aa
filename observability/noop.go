package observability

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// disabledProvider hands out no-op providers, so a client built with it
// records nothing and pays almost nothing per attempt.
type disabledProvider struct{}

var _ Provider = disabledProvider{}

func (disabledProvider) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }

func (disabledProvider) MeterProvider() metric.MeterProvider { return metricnoop.NewMeterProvider() }

func (disabledProvider) Shutdown(context.Context) error { return nil }

func (disabledProvider) ForceFlush(context.Context) error { return nil }
