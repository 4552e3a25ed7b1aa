package httpclient

import (
	"context"
	"io"
	nethttp "net/http"
	"net/url"
	"time"
)

// Request describes one API call relative to the session host.
type Request struct {
	// URL is a path relative to the session host, or an absolute http(s) URL.
	URL string
	// Params become the query string. Nil or empty means no query string.
	Params url.Values
	// JSON is encoded as the request body. Only valid for POST and PUT. Nil
	// pointers and empty maps or slices mean no body.
	JSON any
	// Content is sent verbatim as the body and wins over JSON. It is read
	// once and replayed on every attempt. Only valid for POST and PUT.
	Content io.Reader
	// Headers are added to, and override, the session default headers.
	Headers map[string]string
	// Config replaces the session RequestConfig for this call. There is no
	// field-by-field merge.
	Config *RequestConfig
}

// Response is the result of a completed HTTP exchange, whatever its status.
type Response struct {
	StatusCode int
	Headers    nethttp.Header
	Body       []byte
	Stats      Stats
}

// Stats contains request execution statistics
type Stats struct {
	ElapsedTime time.Duration
	Attempts    int
}

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// Exchange is everything a Transport needs to perform one attempt.
// Transports must treat it as read-only; it is reused across attempts.
type Exchange struct {
	Method string
	// Host is the normalized session host, without a trailing slash.
	Host string
	// Path is Request.URL as given by the caller.
	Path   string
	Params url.Values
	Header nethttp.Header
	// Cookies are the session default cookies.
	Cookies map[string]string
	Auth    *BasicAuth
	JSON    any
	// Content is the buffered raw body, nil when absent.
	Content         []byte
	Timeout         time.Duration
	FollowRedirects bool
}

// ResolvedURL joins Host and Path and appends Params to the query string.
func (ex *Exchange) ResolvedURL() (string, error) {
	full := ResolveURL(ex.Host, ex.Path)
	if len(ex.Params) == 0 {
		return full, nil
	}

	u, err := url.Parse(full)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for key, values := range ex.Params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Transport performs a single HTTP exchange. It returns an error only when no
// response was obtained. Implementations must be safe for concurrent use.
type Transport interface {
	Perform(ctx context.Context, ex *Exchange) (*Response, error)
	Close() error
}

// TransportFunc adapts a function to the Transport interface. Close is a no-op.
type TransportFunc func(ctx context.Context, ex *Exchange) (*Response, error)

// Perform calls f(ctx, ex).
func (f TransportFunc) Perform(ctx context.Context, ex *Exchange) (*Response, error) {
	return f(ctx, ex)
}

// Close does nothing.
func (f TransportFunc) Close() error {
	return nil
}
