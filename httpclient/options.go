package httpclient

import (
	"maps"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gaborage/httpwrapper/logger"
	"github.com/gaborage/httpwrapper/observability"
	"github.com/gaborage/httpwrapper/retry"
)

// settings collects Option values before a session is built
type settings struct {
	transport      Transport
	logger         logger.Logger
	headers        map[string]string
	cookies        map[string]string
	auth           *BasicAuth
	config         RequestConfig
	limiter        *rate.Limiter
	maxInFlight    int64
	sleep          retry.Sleeper
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

func defaultSettings() *settings {
	return &settings{
		headers: map[string]string{},
		cookies: map[string]string{},
		config:  DefaultRequestConfig(),
	}
}

// Option configures a Client or AsyncClient
type Option func(*settings)

// WithTransport replaces the default NetTransport. The session takes
// ownership: it closes the transport on Close, or right away when
// construction fails.
func WithTransport(t Transport) Option {
	return func(s *settings) {
		s.transport = t
	}
}

// WithLogger sets the logger; the default discards everything.
func WithLogger(log logger.Logger) Option {
	return func(s *settings) {
		s.logger = log
	}
}

// WithHeaders adds default headers sent with every request
func WithHeaders(headers map[string]string) Option {
	return func(s *settings) {
		maps.Copy(s.headers, headers)
	}
}

// WithHeader adds a single default header
func WithHeader(key, value string) Option {
	return func(s *settings) {
		s.headers[key] = value
	}
}

// WithCookies adds default cookies sent with every request
func WithCookies(cookies map[string]string) Option {
	return func(s *settings) {
		maps.Copy(s.cookies, cookies)
	}
}

// WithBasicAuth sets basic authentication credentials
func WithBasicAuth(username, password string) Option {
	return func(s *settings) {
		s.auth = &BasicAuth{Username: username, Password: password}
	}
}

// WithRequestConfig sets the session default RequestConfig
func WithRequestConfig(cfg RequestConfig) Option {
	return func(s *settings) {
		s.config = cfg
	}
}

// WithRateLimit makes every attempt wait for a token. requestsPerSecond <= 0
// disables limiting.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(s *settings) {
		if requestsPerSecond <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), max(burst, 1))
	}
}

// WithMaxInFlight caps concurrently executing AsyncClient calls. Zero means
// no cap. Ignored by Client.
func WithMaxInFlight(n int) Option {
	return func(s *settings) {
		s.maxInFlight = int64(max(n, 0))
	}
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(sleep retry.Sleeper) Option {
	return func(s *settings) {
		s.sleep = sleep
	}
}

// WithMeterProvider sets the meter provider; the default is the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *settings) {
		s.meterProvider = mp
	}
}

// WithTracerProvider sets the tracer provider; the default is the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) {
		s.tracerProvider = tp
	}
}

// WithObservability takes the tracer and meter providers from p. The caller
// keeps ownership of p and shuts it down after closing the client.
func WithObservability(p observability.Provider) Option {
	return func(s *settings) {
		if p == nil {
			return
		}
		s.tracerProvider = p.TracerProvider()
		s.meterProvider = p.MeterProvider()
	}
}
