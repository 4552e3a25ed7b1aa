package observability

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultShutdownTimeout bounds Shutdown when the caller passes no timeout.
const DefaultShutdownTimeout = 10 * time.Second

// Shutdown flushes pending client spans and metrics, then stops the provider.
// Both steps share one deadline; a flush failure does not skip the shutdown.
func Shutdown(provider Provider, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return ShutdownContext(ctx, provider)
}

// ShutdownContext is Shutdown bounded by ctx instead of a timeout.
func ShutdownContext(ctx context.Context, provider Provider) error {
	if provider == nil {
		return nil
	}

	var errs []error
	if err := provider.ForceFlush(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if err := provider.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("observability shutdown failed: %w", err)
	}
	return nil
}
