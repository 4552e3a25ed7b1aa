package httpclient

import (
	"unicode/utf8"

	"github.com/gaborage/httpwrapper/retry"
)

// logRequest logs an outgoing attempt
func (s *session) logRequest(ex *Exchange, attempt int) {
	event := s.log.Debug().
		Str("direction", "outbound").
		Str("method", ex.Method).
		Str("url", ex.Path).
		Int("attempt", attempt)

	if ex.Params != nil {
		event = event.Interface("params", ex.Params)
	}
	if ex.JSON != nil {
		event = event.Interface("json", ex.JSON)
	}
	if s.config.Proxy != "" {
		event = event.Str("proxy", s.config.Proxy)
	}

	event.Msg("HTTP client request")
}

// logResponse logs a completed exchange with a truncated body
func (s *session) logResponse(ex *Exchange, resp *Response) {
	s.log.Debug().
		Str("direction", "inbound").
		Str("method", ex.Method).
		Str("url", ex.Path).
		Int("status", resp.StatusCode).
		Str("body", truncate(resp.Body, responseLogLimit)).
		Msg("HTTP client response")
}

// logFailure logs one failed attempt
func (s *session) logFailure(ex *Exchange, f retry.Failure) {
	event := s.log.Error().
		Err(f.Err).
		Str("method", ex.Method).
		Str("url", ex.Path).
		Int("attempt", f.Attempt).
		Int("retry_limit", f.Limit)

	if f.Retry {
		event = event.Dur("backoff", f.Backoff)
	}

	event.Msgf("Attempt %d/%d failed", f.Attempt, f.Limit)
}

// logExhausted logs the terminal failure once the attempt budget is spent
func (s *session) logExhausted(ex *Exchange, f retry.Failure) {
	s.log.Error().
		Err(f.Err).
		Str("method", ex.Method).
		Str("url", ex.Path).
		Int("attempts", f.Attempt).
		Msg("Max retries exceeded")
}

// truncate returns at most limit characters of body, cutting on rune boundaries.
func truncate(body []byte, limit int) string {
	if utf8.RuneCount(body) <= limit {
		return string(body)
	}
	runes := []rune(string(body))
	return string(runes[:limit]) + "..."
}
