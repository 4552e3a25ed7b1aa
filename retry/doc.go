// Package retry runs an operation under an attempt budget with linear backoff.
//
// The loop is written once and is generic over the operation, so the blocking
// and the concurrent HTTP clients share exactly the same control flow.
//
// Backoff
//   - The sleep after failed attempt i (1-based) is
//     InitialBackoff + (i-1)*BackoffIncrement.
//   - Growth is additive. There is no multiplier, cap, or jitter.
//   - No sleep follows the final allowed attempt.
//
// Classification
//   - Any error is retried unless it was wrapped with Permanent, or the
//     caller's context is done. Permanent errors are returned unwrapped
//     after a single failure report.
//   - Exhaustion returns *ExhaustedError wrapping the last failure;
//     errors.Is(err, ErrExhausted) reports true for it.
package retry
