package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/httpwrapper/httpclient"
)

// MockTransport provides a testify-based mock implementation of the
// httpclient.Transport interface.
//
// Example usage:
//
//	mt := &mocks.MockTransport{}
//	mt.On("Perform", mock.Anything, mock.MatchedBy(func(ex *httpclient.Exchange) bool {
//		return ex.Method == http.MethodGet
//	})).Return(&httpclient.Response{StatusCode: 200}, nil)
type MockTransport struct {
	mock.Mock

	mu        sync.Mutex
	exchanges []*httpclient.Exchange
}

var _ httpclient.Transport = (*MockTransport)(nil)

// Perform implements httpclient.Transport
func (m *MockTransport) Perform(ctx context.Context, ex *httpclient.Exchange) (*httpclient.Response, error) {
	m.mu.Lock()
	m.exchanges = append(m.exchanges, ex)
	m.mu.Unlock()

	arguments := m.Called(ctx, ex)
	var resp *httpclient.Response
	if r := arguments.Get(0); r != nil {
		resp = r.(*httpclient.Response)
	}
	return resp, arguments.Error(1)
}

// Close implements httpclient.Transport
func (m *MockTransport) Close() error {
	arguments := m.Called()
	return arguments.Error(0)
}

// Exchanges returns every exchange passed to Perform, in call order.
func (m *MockTransport) Exchanges() []*httpclient.Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*httpclient.Exchange, len(m.exchanges))
	copy(out, m.exchanges)
	return out
}

// ExpectClose sets up an expectation for a successful Close.
func (m *MockTransport) ExpectClose() *mock.Call {
	return m.On("Close").Return(nil)
}
