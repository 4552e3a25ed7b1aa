package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy is the attempt budget and the linear backoff schedule.
type Policy struct {
	// Limit is the maximum number of attempts. 1 means no retry.
	Limit int
	// InitialBackoff is the sleep after the first failed attempt.
	InitialBackoff time.Duration
	// BackoffIncrement is added to the sleep after each further failure.
	BackoffIncrement time.Duration
}

// Validate checks that the policy can run at least one attempt.
func (p Policy) Validate() error {
	if p.Limit < 1 {
		return fmt.Errorf("retry: limit must be at least 1, got %d", p.Limit)
	}
	if p.InitialBackoff < 0 || p.BackoffIncrement < 0 {
		return fmt.Errorf("retry: backoff durations must not be negative")
	}
	return nil
}

// Backoff returns the sleep that follows failed attempt n (1-based).
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	return p.InitialBackoff + time.Duration(n-1)*p.BackoffIncrement
}

// Failure describes one failed attempt.
type Failure struct {
	Attempt int
	Limit   int
	Err     error
	// Retry reports whether another attempt follows this failure.
	Retry bool
	// Backoff is the sleep before the next attempt; zero when Retry is false.
	Backoff time.Duration
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the default Sleeper. It blocks only the calling goroutine.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Options customizes a Do call. The zero value is usable.
type Options struct {
	// Sleep replaces the default timer-based Sleep.
	Sleep Sleeper
	// OnFailure is called after every failed attempt, before any sleep.
	OnFailure func(Failure)
	// OnExhausted is called once when the budget is spent.
	OnExhausted func(Failure)
}

// Operation performs attempt n (1-based).
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

// Do runs op until it succeeds, fails permanently, the context is done, or
// p.Limit attempts have failed.
func Do[T any](ctx context.Context, p Policy, op Operation[T], opts Options) (T, error) {
	var zero T
	if err := p.Validate(); err != nil {
		return zero, err
	}

	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	backoff := p.InitialBackoff
	for attempt := 1; ; attempt++ {
		v, err := op(ctx, attempt)
		if err == nil {
			return v, nil
		}

		f := Failure{Attempt: attempt, Limit: p.Limit, Err: err}
		retryable := !IsPermanent(err) && ctx.Err() == nil && attempt < p.Limit
		if retryable {
			f.Retry = true
			f.Backoff = backoff
		}
		if opts.OnFailure != nil {
			opts.OnFailure(f)
		}

		switch {
		case IsPermanent(err):
			return zero, unwrapPermanent(err)
		case ctx.Err() != nil:
			return zero, fmt.Errorf("retry: stopped after attempt %d: %w", attempt, joinCause(ctx.Err(), err))
		case attempt >= p.Limit:
			if opts.OnExhausted != nil {
				opts.OnExhausted(f)
			}
			return zero, &ExhaustedError{Attempts: attempt, Err: err}
		}

		if serr := sleep(ctx, backoff); serr != nil {
			return zero, fmt.Errorf("retry: interrupted after attempt %d: %w", attempt, joinCause(serr, err))
		}
		backoff += p.BackoffIncrement
	}
}

type causeError struct {
	stop  error
	cause error
}

func (e *causeError) Error() string {
	return fmt.Sprintf("%v (last error: %v)", e.stop, e.cause)
}

func (e *causeError) Unwrap() []error {
	return []error{e.stop, e.cause}
}

func joinCause(stop, cause error) error {
	return &causeError{stop: stop, cause: cause}
}
