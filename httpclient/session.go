package httpclient

import (
	"context"
	"errors"
	"io"
	"maps"
	nethttp "net/http"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/httpwrapper/httpclient/internal/tracking"
	"github.com/gaborage/httpwrapper/logger"
	"github.com/gaborage/httpwrapper/retry"
)

// session is the state shared by Client and AsyncClient. Everything except
// the closed flag is read-only after newSession returns.
type session struct {
	host      string
	headers   map[string]string
	cookies   map[string]string
	auth      *BasicAuth
	config    RequestConfig
	transport Transport
	log       logger.Logger
	limiter   *rate.Limiter
	sleep     retry.Sleeper
	tracker   *tracking.Tracker

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func newSession(host string, s *settings) (sess *session, err error) {
	// An injected transport belongs to the session, so it is released when
	// construction fails.
	if s.transport != nil {
		defer func() {
			if err != nil {
				_ = s.transport.Close()
			}
		}()
	}

	normalized, err := normalizeHost(host)
	if err != nil {
		return nil, err
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}

	transport := s.transport
	if transport == nil {
		nt, err := NewNetTransport(NetTransportConfig{Proxy: s.config.Proxy})
		if err != nil {
			return nil, err
		}
		transport = nt
	}

	log := s.logger
	if log == nil {
		log = logger.Nop()
	}

	sess = &session{
		host:      normalized,
		headers:   maps.Clone(s.headers),
		cookies:   maps.Clone(s.cookies),
		auth:      s.auth,
		config:    s.config,
		transport: transport,
		log:       log,
		limiter:   s.limiter,
		sleep:     s.sleep,
		tracker:   tracking.New(s.meterProvider, s.tracerProvider),
	}
	if s.config.Proxy != "" {
		log.Debug().Str("host", normalized).Str("proxy", s.config.Proxy).Msg("HTTP client session created")
	}
	return sess, nil
}

// execute validates req, resolves the effective config and runs the retry loop.
func (s *session) execute(ctx context.Context, method string, req *Request) (*Response, error) {
	if s.closed.Load() {
		return nil, ErrClientClosed
	}
	if err := validateRequest(method, req); err != nil {
		return nil, err
	}

	cfg := s.config
	if req.Config != nil {
		if err := req.Config.Validate(); err != nil {
			return nil, err
		}
		cfg = *req.Config
	}

	ex, err := s.newExchange(method, req, cfg)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracker.Start(ctx, method, req.URL)
	start := time.Now()
	attempts := 0

	resp, err := retry.Do(ctx, cfg.policy(), func(ctx context.Context, n int) (*Response, error) {
		attempts = n
		return s.attempt(ctx, ex, n)
	}, retry.Options{
		Sleep: s.sleep,
		OnFailure: func(f retry.Failure) {
			s.logFailure(ex, f)
			if f.Retry {
				s.tracker.Retry(ctx, method)
			}
		},
		OnExhausted: func(f retry.Failure) {
			s.logExhausted(ex, f)
			s.tracker.Exhausted(ctx, method)
		},
	})

	if err != nil {
		err = s.finalError(ex, err)
		s.tracker.End(span, attempts, 0, err, errorTypeOf(err))
		return nil, err
	}

	resp.Stats = Stats{ElapsedTime: time.Since(start), Attempts: attempts}
	s.tracker.End(span, attempts, resp.StatusCode, nil, "")
	return resp, nil
}

// attempt performs exchange number n under the per-attempt timeout.
func (s *session) attempt(ctx context.Context, ex *Exchange, n int) (*Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	s.logRequest(ex, n)

	attemptCtx := ctx
	if ex.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, ex.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.transport.Perform(attemptCtx, ex)
	if err == nil && resp == nil {
		err = NewNetworkError("transport returned no response", nil)
	}
	if err != nil {
		s.tracker.Attempt(ctx, ex.Method, n, time.Since(start), 0, errorTypeOf(err))
		return nil, err
	}

	s.tracker.Attempt(ctx, ex.Method, n, time.Since(start), resp.StatusCode, "")
	s.logResponse(ex, resp)
	return resp, nil
}

// newExchange builds the immutable per-call exchange shared by all attempts.
func (s *session) newExchange(method string, req *Request, cfg RequestConfig) (*Exchange, error) {
	header := make(nethttp.Header, len(s.headers)+len(req.Headers))
	for key, value := range s.headers {
		header.Set(key, value)
	}
	for key, value := range req.Headers {
		header.Set(key, value)
	}

	ex := &Exchange{
		Method:          method,
		Host:            s.host,
		Path:            req.URL,
		Header:          header,
		Cookies:         s.cookies,
		Auth:            s.auth,
		Timeout:         cfg.Timeout,
		FollowRedirects: cfg.FollowRedirects,
	}
	if len(req.Params) > 0 {
		ex.Params = req.Params
	}
	if !isEmptyJSON(req.JSON) {
		ex.JSON = req.JSON
	}

	if req.Content != nil {
		content, err := io.ReadAll(req.Content)
		if err != nil {
			return nil, NewValidationError("failed to read request content", "content", err)
		}
		ex.Content = content
	}
	return ex, nil
}

// finalError converts retry loop results into the client error taxonomy.
func (s *session) finalError(ex *Exchange, err error) error {
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return NewExhaustedError(ex.Method, ex.Path, exhausted.Attempts, exhausted.Err)
	}
	return err
}

// close releases the transport exactly once.
func (s *session) close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.transport.Close()
	})
	return s.closeErr
}

func validateRequest(method string, req *Request) error {
	if req == nil {
		return NewValidationError("request cannot be nil", "request", nil)
	}
	if req.URL == "" {
		return NewValidationError("URL cannot be empty", "url", nil)
	}

	switch method {
	case nethttp.MethodGet, nethttp.MethodDelete:
		if req.Content != nil || !isEmptyJSON(req.JSON) {
			return NewValidationError(method+" requests cannot carry a body", "body", nil)
		}
	case nethttp.MethodPost, nethttp.MethodPut:
	default:
		return NewValidationError("unsupported method "+method, "method", nil)
	}
	return nil
}

// isEmptyJSON treats nil, nil pointers and empty maps or slices as "no body".
func isEmptyJSON(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func errorTypeOf(err error) string {
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return string(clientErr.Type())
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(TimeoutError)
	}
	return "_OTHER"
}
