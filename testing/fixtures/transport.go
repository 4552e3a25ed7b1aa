// Package fixtures provides canned responses, failures and pre-configured
// transport mocks for httpclient tests.
package fixtures

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gaborage/httpwrapper/httpclient"
	"github.com/gaborage/httpwrapper/testing/mocks"
)

const contentTypeJSON = "application/json"

// JSONResponse returns a response carrying v encoded as JSON. It panics when v
// cannot be encoded, which is a bug in the test.
func JSONResponse(status int, v any) *httpclient.Response {
	body, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	h := nethttp.Header{}
	h.Set("Content-Type", contentTypeJSON)
	return &httpclient.Response{StatusCode: status, Headers: h, Body: body}
}

// TextResponse returns a response with a plain body.
func TextResponse(status int, body string) *httpclient.Response {
	return &httpclient.Response{StatusCode: status, Headers: nethttp.Header{}, Body: []byte(body)}
}

// ConnectionRefused returns the error NetTransport reports for a refused dial.
func ConnectionRefused() error {
	return httpclient.NewNetworkError("request failed", &mockDialError{})
}

// ReadTimeout returns the error NetTransport reports for an attempt that hit
// its deadline.
func ReadTimeout(timeout time.Duration) error {
	return httpclient.NewTimeoutError("request timeout", timeout, context.DeadlineExceeded)
}

// NewFailingTransport returns a mock whose every attempt fails with err.
func NewFailingTransport(err error) *mocks.MockTransport {
	m := &mocks.MockTransport{}
	m.On("Perform", mock.Anything, mock.Anything).Return(nil, err)
	m.ExpectClose().Maybe()
	return m
}

// NewFlakyTransport returns a mock that fails with err on the first failures
// attempts and returns resp afterwards.
func NewFlakyTransport(failures int, err error, resp *httpclient.Response) *mocks.MockTransport {
	m := &mocks.MockTransport{}
	if failures > 0 {
		m.On("Perform", mock.Anything, mock.Anything).Return(nil, err).Times(failures)
	}
	m.On("Perform", mock.Anything, mock.Anything).Return(resp, nil)
	m.ExpectClose().Maybe()
	return m
}

type mockDialError struct{}

func (*mockDialError) Error() string { return "dial tcp 127.0.0.1:1: connect: connection refused" }
