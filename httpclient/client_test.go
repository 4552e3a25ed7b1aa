package httpclient

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/httpwrapper/retry"
)

func TestNewValidatesHostAndConfig(t *testing.T) {
	tests := []struct {
		name  string
		host  string
		opts  []Option
		field string
	}{
		{name: "empty host", host: "", field: "host"},
		{name: "relative host", host: "api.example.com", field: "host"},
		{name: "unsupported scheme", host: "ftp://api.example.com", field: "host"},
		{name: "zero retry limit", host: testHost, opts: []Option{WithRequestConfig(testConfig(0))}, field: "retrylimit"},
		{name: "negative backoff", host: testHost, opts: []Option{WithRequestConfig(RequestConfig{RetryLimit: 1, InitialBackoff: -time.Second})}, field: "initialbackoff"},
		{name: "invalid proxy", host: testHost, opts: []Option{WithRequestConfig(RequestConfig{RetryLimit: 1, Proxy: "::"})}, field: "proxy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.host, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, client)
			assert.True(t, IsErrorType(err, ConfigurationError))

			var cfgErr interface{ Field() string }
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field())
		})
	}
}

func TestClientFailsEveryAttempt(t *testing.T) {
	transport := alwaysFailing()
	client, sleeper := newTestClient(t, transport, WithRequestConfig(testConfig(4)))

	resp, err := client.Get(context.Background(), &Request{URL: testWidgetsPath})
	require.Error(t, err)
	assert.Nil(t, resp)

	assert.Equal(t, int32(4), transport.calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 4 * time.Second, 7 * time.Second}, sleeper.recorded(),
		"linear backoff, no sleep after the final attempt")

	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errConnRefused)
	assert.True(t, IsErrorType(err, ExhaustedError))

	attempts, ok := AttemptsFromError(err)
	assert.True(t, ok)
	assert.Equal(t, 4, attempts)

	var exhausted *retry.ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Contains(t, err.Error(), "GET "+testWidgetsPath)
}

func TestClientSucceedsAfterFailures(t *testing.T) {
	for k := 1; k <= 5; k++ {
		transport := &scriptedTransport{failures: k - 1, body: "ok"}
		client, sleeper := newTestClient(t, transport, WithRequestConfig(testConfig(5)))

		resp, err := client.Get(context.Background(), &Request{URL: testWidgetsPath})
		require.NoError(t, err, "success at attempt %d", k)
		assert.Equal(t, "ok", string(resp.Body))
		assert.Equal(t, int32(k), transport.calls.Load())
		assert.Equal(t, k, resp.Stats.Attempts)
		assert.Len(t, sleeper.recorded(), k-1)
	}
}

func TestClientDoesNotRetryServerErrors(t *testing.T) {
	transport := &scriptedTransport{status: nethttp.StatusInternalServerError, body: "boom"}
	client, sleeper := newTestClient(t, transport)

	resp, err := client.Get(context.Background(), &Request{URL: testWidgetsPath})
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusInternalServerError, resp.StatusCode)
	assert.False(t, IsSuccessStatus(resp.StatusCode))
	assert.Equal(t, "boom", string(resp.Body))
	assert.Equal(t, int32(1), transport.calls.Load())
	assert.Empty(t, sleeper.recorded())
}

func TestClientScenarioTwoFailuresThenSuccess(t *testing.T) {
	log := &fakeLogger{}
	transport := &scriptedTransport{failures: 2, body: "widgets"}
	client, sleeper := newTestClient(t, transport,
		WithLogger(log),
		WithRequestConfig(RequestConfig{RetryLimit: 3, Timeout: time.Second, InitialBackoff: time.Second, BackoffIncrement: 3 * time.Second}),
	)

	resp, err := client.Get(context.Background(), &Request{URL: testWidgetsPath})
	require.NoError(t, err)
	assert.Equal(t, "widgets", string(resp.Body))
	assert.Equal(t, 3, resp.Stats.Attempts)

	assert.Equal(t, []time.Duration{time.Second, 4 * time.Second}, sleeper.recorded())
	assert.Equal(t, 5*time.Second, sleeper.total())
	assert.Len(t, log.withMessage(msgAttemptFailed), 2)
	assert.Empty(t, log.withMessage(msgMaxRetries))
}

func TestClientSingleAttemptLimit(t *testing.T) {
	transport := &scriptedTransport{failures: 1}
	client, sleeper := newTestClient(t, transport, WithRequestConfig(testConfig(1)))

	_, err := client.Post(context.Background(), &Request{URL: testWidgetsPath, JSON: map[string]any{"name": "w"}})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, int32(1), transport.calls.Load())
	assert.Empty(t, sleeper.recorded())
}

func TestClientPermanentErrorsAreNotRetried(t *testing.T) {
	cause := NewValidationError("failed to encode JSON body", "json", errors.New("unsupported type"))
	transport := &scriptedTransport{failures: 10, err: retry.Permanent(cause)}
	client, sleeper := newTestClient(t, transport, WithRequestConfig(testConfig(5)))

	_, err := client.Put(context.Background(), &Request{URL: testWidgetsPath, JSON: map[string]any{"k": "v"}})
	require.Error(t, err)
	assert.Same(t, cause, err)
	assert.True(t, IsErrorType(err, ValidationError))
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Equal(t, int32(1), transport.calls.Load())
	assert.Empty(t, sleeper.recorded())
}

func TestClientRejectsInvalidRequests(t *testing.T) {
	transport := &scriptedTransport{}
	client, _ := newTestClient(t, transport)
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		req    *Request
		field  string
	}{
		{name: "nil request", method: nethttp.MethodGet, req: nil},
		{name: "empty url", method: nethttp.MethodGet, req: &Request{}},
		{name: "json on get", method: nethttp.MethodGet, req: &Request{URL: testWidgetsPath, JSON: map[string]any{"a": 1}}},
		{name: "content on delete", method: nethttp.MethodDelete, req: &Request{URL: testWidgetsPath, Content: strings.NewReader("x")}},
		{name: "unsupported method", method: nethttp.MethodPatch, req: &Request{URL: testWidgetsPath}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Do(ctx, tt.method, tt.req)
			assert.True(t, IsErrorType(err, ValidationError), "got %v", err)
		})
	}
	assert.Equal(t, int32(0), transport.calls.Load())
}

type widgetAttributes map[string]string

func TestClientEmptyBodiesAreAbsent(t *testing.T) {
	bodies := []struct {
		name string
		json any
	}{
		{name: "empty any map", json: map[string]any{}},
		{name: "empty string map", json: map[string]string{}},
		{name: "empty typed map", json: widgetAttributes{}},
		{name: "empty slice", json: []any{}},
		{name: "nil typed slice", json: []string(nil)},
		{name: "nil pointer", json: (*struct{ Name string })(nil)},
	}

	for _, method := range []string{nethttp.MethodGet, nethttp.MethodPost} {
		for _, body := range bodies {
			t.Run(method+" "+body.name, func(t *testing.T) {
				transport := &scriptedTransport{}
				client, _ := newTestClient(t, transport)

				_, err := client.Do(context.Background(), method, &Request{URL: testWidgetsPath, JSON: body.json, Params: url.Values{}})
				require.NoError(t, err)

				ex := transport.lastExchange()
				require.NotNil(t, ex)
				assert.Nil(t, ex.JSON)
				assert.Nil(t, ex.Content)
				assert.Nil(t, ex.Params)

				payload, contentType, err := encodeBody(ex)
				require.NoError(t, err)
				assert.Nil(t, payload)
				assert.Empty(t, contentType)
			})
		}
	}
}

func TestClientNonEmptyBodiesAreSent(t *testing.T) {
	transport := &scriptedTransport{}
	client, _ := newTestClient(t, transport)

	_, err := client.Post(context.Background(), &Request{URL: testWidgetsPath, JSON: []string{"bolt"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"bolt"}, transport.lastExchange().JSON)

	_, err = client.Get(context.Background(), &Request{URL: testWidgetsPath, JSON: widgetAttributes{"k": "v"}})
	assert.True(t, IsErrorType(err, ValidationError))
}

func TestNewClosesInjectedTransportOnFailure(t *testing.T) {
	tests := []struct {
		name string
		host string
		opts []Option
	}{
		{name: "invalid host", host: "api.example.com"},
		{name: "invalid config", host: testHost, opts: []Option{WithRequestConfig(RequestConfig{RetryLimit: 0})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &scriptedTransport{}
			client, err := New(tt.host, append([]Option{WithTransport(transport)}, tt.opts...)...)
			require.Error(t, err)
			assert.Nil(t, client)
			assert.Equal(t, int32(1), transport.closes.Load())

			transport = &scriptedTransport{}
			async, err := NewAsync(tt.host, append([]Option{WithTransport(transport)}, tt.opts...)...)
			require.Error(t, err)
			assert.Nil(t, async)
			assert.Equal(t, int32(1), transport.closes.Load())
		})
	}
}

func TestNewKeepsInjectedTransportOpenOnSuccess(t *testing.T) {
	transport := &scriptedTransport{}
	client, err := New(testHost, WithTransport(transport))
	require.NoError(t, err)
	assert.Equal(t, int32(0), transport.closes.Load())

	require.NoError(t, client.Close())
	assert.Equal(t, int32(1), transport.closes.Load())
}

func TestClientPerCallOverrideReplacesDefaults(t *testing.T) {
	transport := alwaysFailing()
	defaults := RequestConfig{RetryLimit: 5, Timeout: 9 * time.Second, InitialBackoff: time.Second, BackoffIncrement: time.Second, FollowRedirects: true}
	client, sleeper := newTestClient(t, transport, WithRequestConfig(defaults))

	override := &RequestConfig{RetryLimit: 2, InitialBackoff: 10 * time.Millisecond}
	_, err := client.Get(context.Background(), &Request{URL: testWidgetsPath, Config: override})
	require.ErrorIs(t, err, ErrExhausted)

	assert.Equal(t, int32(2), transport.calls.Load())
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sleeper.recorded())

	ex := transport.lastExchange()
	assert.False(t, ex.FollowRedirects, "override fields are not merged with defaults")
	assert.Zero(t, ex.Timeout)

	// The session default is untouched by the override.
	_, err = client.Get(context.Background(), &Request{URL: testWidgetsPath})
	require.ErrorIs(t, err, ErrExhausted)
	assert.Equal(t, int32(7), transport.calls.Load())
	assert.True(t, transport.lastExchange().FollowRedirects)
}

func TestClientRejectsInvalidOverride(t *testing.T) {
	transport := &scriptedTransport{}
	client, _ := newTestClient(t, transport)

	_, err := client.Get(context.Background(), &Request{URL: testWidgetsPath, Config: &RequestConfig{RetryLimit: 0}})
	assert.True(t, IsErrorType(err, ConfigurationError))
	assert.Equal(t, int32(0), transport.calls.Load())
}

func TestClientBuildsExchange(t *testing.T) {
	transport := &scriptedTransport{}
	client, _ := newTestClient(t, transport,
		WithHeaders(map[string]string{"Accept": "application/json", "X-Client": "default"}),
		WithHeader("X-Tenant", "acme"),
		WithCookies(map[string]string{"session": "abc"}),
		WithBasicAuth("user", "secret"),
		WithRequestConfig(RequestConfig{RetryLimit: 1, Timeout: 2 * time.Second, FollowRedirects: true}),
	)

	_, err := client.Post(context.Background(), &Request{
		URL:     testWidgetsPath,
		Params:  url.Values{"page": {"2"}},
		Content: strings.NewReader("raw-body"),
		JSON:    map[string]any{"ignored": true},
		Headers: map[string]string{"X-Client": "override"},
	})
	require.NoError(t, err)

	ex := transport.lastExchange()
	require.NotNil(t, ex)
	assert.Equal(t, nethttp.MethodPost, ex.Method)
	assert.Equal(t, testHost, ex.Host)
	assert.Equal(t, testWidgetsPath, ex.Path)
	assert.Equal(t, "application/json", ex.Header.Get("Accept"))
	assert.Equal(t, "override", ex.Header.Get("X-Client"))
	assert.Equal(t, "acme", ex.Header.Get("X-Tenant"))
	assert.Equal(t, map[string]string{"session": "abc"}, ex.Cookies)
	assert.Equal(t, &BasicAuth{Username: "user", Password: "secret"}, ex.Auth)
	assert.Equal(t, []byte("raw-body"), ex.Content)
	assert.Equal(t, 2*time.Second, ex.Timeout)
	assert.True(t, ex.FollowRedirects)

	resolved, err := ex.ResolvedURL()
	require.NoError(t, err)
	assert.Equal(t, testWidgetsURL+"?page=2", resolved)
}

func TestClientReplaysContentOnEveryAttempt(t *testing.T) {
	transport := &scriptedTransport{failures: 2}
	client, _ := newTestClient(t, transport, WithRequestConfig(testConfig(3)))

	_, err := client.Post(context.Background(), &Request{URL: testWidgetsPath, Content: strings.NewReader("payload")})
	require.NoError(t, err)

	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.Len(t, transport.exchanges, 3)
	for _, ex := range transport.exchanges {
		assert.Equal(t, []byte("payload"), ex.Content)
	}
}

func TestClientAppliesPerAttemptTimeout(t *testing.T) {
	var deadlines []time.Duration
	transport := TransportFunc(func(ctx context.Context, _ *Exchange) (*Response, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		deadlines = append(deadlines, time.Until(deadline))
		return &Response{StatusCode: nethttp.StatusOK}, nil
	})
	client, _ := newTestClient(t, transport, WithRequestConfig(RequestConfig{RetryLimit: 1, Timeout: time.Minute}))

	_, err := client.Delete(context.Background(), &Request{URL: testWidgetsPath})
	require.NoError(t, err)
	require.Len(t, deadlines, 1)
	assert.InDelta(t, time.Minute.Seconds(), deadlines[0].Seconds(), 5)
}

func TestClientNilResponseIsNetworkFailure(t *testing.T) {
	transport := TransportFunc(func(context.Context, *Exchange) (*Response, error) {
		return nil, nil
	})
	client, _ := newTestClient(t, transport, WithRequestConfig(testConfig(2)))

	_, err := client.Get(context.Background(), &Request{URL: testWidgetsPath})
	assert.ErrorIs(t, err, ErrExhausted)
	assert.True(t, IsErrorType(errors.Unwrap(errors.Unwrap(err)), NetworkError))
}

func TestClientStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	transport := TransportFunc(func(context.Context, *Exchange) (*Response, error) {
		cancel()
		return nil, NewNetworkError("request failed", errConnRefused)
	})
	client, sleeper := newTestClient(t, transport)

	_, err := client.Get(ctx, &Request{URL: testWidgetsPath})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errConnRefused)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Empty(t, sleeper.recorded())
}

func TestClientRateLimitWaitsPerAttempt(t *testing.T) {
	transport := &scriptedTransport{failures: 1}
	client, _ := newTestClient(t, transport, WithRequestConfig(testConfig(2)), WithRateLimit(20, 1))

	start := time.Now()
	_, err := client.Get(context.Background(), &Request{URL: testWidgetsPath})
	require.NoError(t, err)
	assert.Equal(t, int32(2), transport.calls.Load())
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestClientRateLimitHonoursContext(t *testing.T) {
	transport := &scriptedTransport{}
	client, _ := newTestClient(t, transport, WithRequestConfig(testConfig(1)), WithRateLimit(0.001, 1))

	_, err := client.Get(context.Background(), &Request{URL: testWidgetsPath})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Get(ctx, &Request{URL: testWidgetsPath})
	require.Error(t, err)
	assert.Equal(t, int32(1), transport.calls.Load())
}

func TestClientCloseIsIdempotent(t *testing.T) {
	transport := &scriptedTransport{}
	client, err := New(testHost, WithTransport(transport))
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	assert.Equal(t, int32(1), transport.closes.Load())

	_, err = client.Get(context.Background(), &Request{URL: testWidgetsPath})
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.Equal(t, int32(0), transport.calls.Load())
}

func TestDefaultRequestConfig(t *testing.T) {
	cfg := DefaultRequestConfig()
	assert.Equal(t, 99, cfg.RetryLimit)
	assert.Equal(t, 99*time.Second, cfg.Timeout)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, 3*time.Second, cfg.BackoffIncrement)
	assert.False(t, cfg.FollowRedirects)
	assert.Empty(t, cfg.Proxy)
	assert.NoError(t, cfg.Validate())
}
