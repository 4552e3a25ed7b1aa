package httpclient

import (
	"context"
	"errors"
	"maps"
	"net"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gaborage/httpwrapper/logger"
)

const (
	testHost         = "https://api.example.com"
	testWidgetsPath  = "/widgets"
	testWidgetsURL   = "https://api.example.com/widgets"
	msgRequest       = "HTTP client request"
	msgResponse      = "HTTP client response"
	msgMaxRetries    = "Max retries exceeded"
	msgAttemptFailed = "Attempt %d/%d failed"
)

var errConnRefused = errors.New("connection refused")

// fakeLogEvent implements logger.LogEvent for testing
type fakeLogEvent struct {
	logger *fakeLogger
	level  string
	fields map[string]any
}

func (e *fakeLogEvent) Msg(msg string) {
	e.logger.record(loggedEvent{level: e.level, fields: maps.Clone(e.fields), message: msg})
}

func (e *fakeLogEvent) Msgf(format string, _ ...any) {
	// For testing, capture the format as the message
	e.Msg(format)
}

func (e *fakeLogEvent) Err(err error) logger.LogEvent {
	e.fields["error"] = err
	return e
}

func (e *fakeLogEvent) Str(key, value string) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int(key string, value int) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Int64(key string, value int64) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Bool(key string, value bool) logger.LogEvent {
	e.fields[key] = value
	return e
}

func (e *fakeLogEvent) Dur(key string, d time.Duration) logger.LogEvent {
	e.fields[key] = d
	return e
}

func (e *fakeLogEvent) Interface(key string, i any) logger.LogEvent {
	e.fields[key] = i
	return e
}

// fakeLogger implements logger.Logger for testing
type fakeLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

type loggedEvent struct {
	level   string
	fields  map[string]any
	message string
}

func (l *fakeLogger) record(ev loggedEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *fakeLogger) event(level string) logger.LogEvent {
	return &fakeLogEvent{logger: l, level: level, fields: make(map[string]any)}
}

func (l *fakeLogger) Info() logger.LogEvent  { return l.event("info") }
func (l *fakeLogger) Error() logger.LogEvent { return l.event("error") }
func (l *fakeLogger) Debug() logger.LogEvent { return l.event("debug") }
func (l *fakeLogger) Warn() logger.LogEvent  { return l.event("warn") }

func (l *fakeLogger) WithFields(_ map[string]any) logger.Logger {
	return l
}

// withMessage returns the recorded events carrying msg
func (l *fakeLogger) withMessage(msg string) []loggedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []loggedEvent
	for _, ev := range l.events {
		if ev.message == msg {
			out = append(out, ev)
		}
	}
	return out
}

// scriptedTransport fails the first failures calls with err, then answers with status.
type scriptedTransport struct {
	failures int
	err      error
	status   int
	body     string

	calls     atomic.Int32
	closes    atomic.Int32
	mu        sync.Mutex
	exchanges []*Exchange
}

func (s *scriptedTransport) Perform(_ context.Context, ex *Exchange) (*Response, error) {
	n := int(s.calls.Add(1))
	s.mu.Lock()
	s.exchanges = append(s.exchanges, ex)
	s.mu.Unlock()

	if n <= s.failures {
		err := s.err
		if err == nil {
			err = NewNetworkError("request failed", errConnRefused)
		}
		return nil, err
	}

	status := s.status
	if status == 0 {
		status = nethttp.StatusOK
	}
	return &Response{StatusCode: status, Headers: nethttp.Header{}, Body: []byte(s.body)}, nil
}

func (s *scriptedTransport) Close() error {
	s.closes.Add(1)
	return nil
}

func (s *scriptedTransport) lastExchange() *Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.exchanges) == 0 {
		return nil
	}
	return s.exchanges[len(s.exchanges)-1]
}

// alwaysFailing returns a transport that never produces a response.
func alwaysFailing() *scriptedTransport {
	return &scriptedTransport{failures: 1 << 30}
}

// recordingSleeper records requested backoffs without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.sleeps = append(r.sleeps, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleeper) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.sleeps...)
}

func (r *recordingSleeper) total() time.Duration {
	var sum time.Duration
	for _, d := range r.recorded() {
		sum += d
	}
	return sum
}

func testConfig(limit int) RequestConfig {
	cfg := DefaultRequestConfig()
	cfg.RetryLimit = limit
	return cfg
}

func newTestClient(t *testing.T, transport Transport, opts ...Option) (*Client, *recordingSleeper) {
	t.Helper()
	sleeper := &recordingSleeper{}
	base := []Option{WithTransport(transport), WithSleeper(sleeper.sleep)}
	client, err := New(testHost, append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, sleeper
}

func newIPv4TestServer(t *testing.T, handler nethttp.Handler) *httptest.Server {
	t.Helper()
	lc := net.ListenConfig{}
	listener, err := lc.Listen(context.Background(), "tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test: unable to bind IPv4 listener: %v", err)
		return &httptest.Server{}
	}

	server := &httptest.Server{
		Listener: listener,
		Config:   &nethttp.Server{Handler: handler},
	}
	server.Start()
	t.Cleanup(server.Close)
	return server
}
