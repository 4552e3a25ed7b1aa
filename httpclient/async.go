package httpclient

import (
	"context"
	nethttp "net/http"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// AsyncClient starts every call on its own goroutine and returns a Future.
// Backoff sleeps and exchanges of one call never block another.
type AsyncClient struct {
	session  *session
	inFlight *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsync creates a concurrent client for host
func NewAsync(host string, opts ...Option) (*AsyncClient, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(s)
	}

	sess, err := newSession(host, s)
	if err != nil {
		return nil, err
	}

	c := &AsyncClient{session: sess}
	if s.maxInFlight > 0 {
		c.inFlight = semaphore.NewWeighted(s.maxInFlight)
	}
	return c, nil
}

// Future is the pending result of an AsyncClient call.
type Future struct {
	done chan struct{}
	resp *Response
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) complete(resp *Response, err error) {
	f.resp = resp
	f.err = err
	close(f.done)
}

// Done is closed once the result is available
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the call completes or ctx is done. A done ctx does not
// cancel the call itself; use the ctx passed to the verb method for that.
func (f *Future) Await(ctx context.Context) (*Response, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result blocks until the call completes
func (f *Future) Result() (*Response, error) {
	<-f.done
	return f.resp, f.err
}

// AwaitAll waits for every future and returns their responses in order.
// A failed future does not cut the wait short: AwaitAll returns once every
// future has completed, or when ctx is done. The error is the first one
// reported, and responses of the futures that succeeded are still filled in.
func AwaitAll(ctx context.Context, futures ...*Future) ([]*Response, error) {
	responses := make([]*Response, len(futures))
	var g errgroup.Group
	for i, f := range futures {
		g.Go(func() error {
			resp, err := f.Await(ctx)
			responses[i] = resp
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return responses, err
	}
	return responses, nil
}

// Get starts a GET request
func (c *AsyncClient) Get(ctx context.Context, req *Request) *Future {
	return c.start(ctx, nethttp.MethodGet, req)
}

// Post starts a POST request
func (c *AsyncClient) Post(ctx context.Context, req *Request) *Future {
	return c.start(ctx, nethttp.MethodPost, req)
}

// Put starts a PUT request
func (c *AsyncClient) Put(ctx context.Context, req *Request) *Future {
	return c.start(ctx, nethttp.MethodPut, req)
}

// Delete starts a DELETE request
func (c *AsyncClient) Delete(ctx context.Context, req *Request) *Future {
	return c.start(ctx, nethttp.MethodDelete, req)
}

// Do starts a request with an explicit method
func (c *AsyncClient) Do(ctx context.Context, method string, req *Request) *Future {
	return c.start(ctx, method, req)
}

// Host returns the normalized base host
func (c *AsyncClient) Host() string {
	return c.session.host
}

func (c *AsyncClient) start(ctx context.Context, method string, req *Request) *Future {
	f := newFuture()

	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		f.complete(nil, ErrClientClosed)
		return f
	}
	c.wg.Add(1)
	c.mu.RUnlock()

	go func() {
		defer c.wg.Done()

		if c.inFlight != nil {
			if err := c.inFlight.Acquire(ctx, 1); err != nil {
				f.complete(nil, err)
				return
			}
			defer c.inFlight.Release(1)
		}

		f.complete(c.session.execute(ctx, method, req))
	}()
	return f
}

// Close rejects new calls, waits for in-flight calls to finish and then
// releases the transport. It is safe to call more than once.
func (c *AsyncClient) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.wg.Wait()
	return c.session.close()
}
