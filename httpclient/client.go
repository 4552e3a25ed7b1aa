package httpclient

import (
	"context"
	nethttp "net/http"
)

// Client runs every call on the calling goroutine.
type Client struct {
	session *session
}

// New creates a blocking client for host. Construction fails with a
// ConfigurationError when host or the default RequestConfig is invalid.
func New(host string, opts ...Option) (*Client, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}

	sess, err := newSession(host, s)
	if err != nil {
		return nil, err
	}
	return &Client{session: sess}, nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.session.execute(ctx, nethttp.MethodGet, req)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, req *Request) (*Response, error) {
	return c.session.execute(ctx, nethttp.MethodPost, req)
}

// Put performs a PUT request
func (c *Client) Put(ctx context.Context, req *Request) (*Response, error) {
	return c.session.execute(ctx, nethttp.MethodPut, req)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, req *Request) (*Response, error) {
	return c.session.execute(ctx, nethttp.MethodDelete, req)
}

// Do performs a request with an explicit method. Only GET, POST, PUT and
// DELETE are accepted.
func (c *Client) Do(ctx context.Context, method string, req *Request) (*Response, error) {
	return c.session.execute(ctx, method, req)
}

// Host returns the normalized base host
func (c *Client) Host() string {
	return c.session.host
}

// Close releases the transport. It is safe to call more than once.
func (c *Client) Close() error {
	return c.session.close()
}
