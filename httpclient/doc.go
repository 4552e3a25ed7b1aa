// Package httpclient is a base layer for HTTP API clients. A session holds
// the base host, default headers, cookies, basic auth, the owned Transport and
// a default RequestConfig. Every call goes through one retry loop.
//
// Variants
//   - Client blocks the calling goroutine for the whole retry loop.
//   - AsyncClient runs the same loop on its own goroutine and returns a
//     Future, so a slow call never holds up a fast one.
//
// Retries
//   - Only transport failures are retried: connection errors, timeouts,
//     protocol errors and unreadable bodies. A response with any status
//     code, 5xx included, is returned as-is.
//   - Errors wrapped with retry.Permanent (and request validation errors
//     from NetTransport) are returned at once.
//   - After RetryLimit failed attempts the call fails with an
//     ExhaustedError wrapping the last failure.
//
// Backoff
//   - Linear: InitialBackoff, then +BackoffIncrement after every failure.
//     Defaults are 1s and 3s, so sleeps go 1s, 4s, 7s, ...
//   - Timeout bounds each attempt, not the whole call. Cancel ctx to stop
//     a call early.
//
// Configuration overrides
//   - Request.Config replaces the session default in full; fields are not
//     merged.
//
// Lifecycle
//   - Close releases the Transport exactly once and is safe to call
//     repeatedly. AsyncClient.Close waits for in-flight calls first.
package httpclient
