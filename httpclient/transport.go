package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	nethttp "net/http"
	"net/url"
	"time"

	"github.com/gaborage/httpwrapper/retry"
	"github.com/gaborage/httpwrapper/trace"
)

const (
	defaultMaxIdleConnsPerHost = 16
	defaultIdleConnTimeout     = 90 * time.Second
)

// NetTransportConfig configures the default net/http based Transport
type NetTransportConfig struct {
	// Proxy is an optional proxy URL. Empty falls back to the environment
	// (HTTP_PROXY, HTTPS_PROXY, NO_PROXY).
	Proxy               string
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// NetTransport performs exchanges with net/http. The connection pool is
// shared by every attempt; redirects are followed per exchange.
type NetTransport struct {
	pool     *nethttp.Transport
	follow   *nethttp.Client
	noFollow *nethttp.Client
}

// NewNetTransport creates a NetTransport
func NewNetTransport(cfg NetTransportConfig) (*NetTransport, error) {
	pool := nethttp.DefaultTransport.(*nethttp.Transport).Clone()
	pool.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
	pool.IdleConnTimeout = defaultIdleConnTimeout
	if cfg.MaxIdleConnsPerHost > 0 {
		pool.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout > 0 {
		pool.IdleConnTimeout = cfg.IdleConnTimeout
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, NewConfigurationError("proxy", "proxy is not a valid URL", err)
		}
		pool.Proxy = nethttp.ProxyURL(proxyURL)
	}

	return &NetTransport{
		pool:   pool,
		follow: &nethttp.Client{Transport: pool},
		noFollow: &nethttp.Client{
			Transport: pool,
			CheckRedirect: func(*nethttp.Request, []*nethttp.Request) error {
				return nethttp.ErrUseLastResponse
			},
		},
	}, nil
}

// Perform sends one request and reads the whole response body.
func (t *NetTransport) Perform(ctx context.Context, ex *Exchange) (*Response, error) {
	httpReq, err := t.buildRequest(ctx, ex)
	if err != nil {
		return nil, retry.Permanent(err)
	}

	client := t.noFollow
	if ex.FollowRedirects {
		client = t.follow
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ex, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classifyTransportError(ex, err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}, nil
}

// Close closes idle pooled connections
func (t *NetTransport) Close() error {
	t.pool.CloseIdleConnections()
	return nil
}

// buildRequest constructs an *http.Request and applies headers, cookies and auth.
func (t *NetTransport) buildRequest(ctx context.Context, ex *Exchange) (*nethttp.Request, error) {
	target, err := ex.ResolvedURL()
	if err != nil {
		return nil, NewValidationError("invalid request URL", "url", err)
	}

	body, contentType, err := encodeBody(ex)
	if err != nil {
		return nil, err
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, ex.Method, target, body)
	if err != nil {
		return nil, NewValidationError("failed to create HTTP request", "url", err)
	}

	for key, values := range ex.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	for name, value := range ex.Cookies {
		httpReq.AddCookie(&nethttp.Cookie{Name: name, Value: value})
	}

	if ex.Auth != nil {
		httpReq.SetBasicAuth(ex.Auth.Username, ex.Auth.Password)
	}

	trace.InjectHeaders(ctx, httpReq.Header)
	return httpReq, nil
}

// encodeBody returns the request body. Raw content wins over JSON.
func encodeBody(ex *Exchange) (io.Reader, string, error) {
	if ex.Content != nil {
		return bytes.NewReader(ex.Content), "", nil
	}
	if ex.JSON == nil {
		return nil, "", nil
	}

	payload, err := json.Marshal(ex.JSON)
	if err != nil {
		return nil, "", NewValidationError("failed to encode JSON body", "json", err)
	}
	return bytes.NewReader(payload), "application/json", nil
}

func classifyTransportError(ex *Exchange, err error) error {
	if isTimeout(err) {
		return NewTimeoutError("request timeout", ex.Timeout, err)
	}
	return NewNetworkError("request failed", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
