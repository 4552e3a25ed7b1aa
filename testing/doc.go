// Package testing provides test doubles for code built on the httpclient
// package.
//
// # Mocks
//
// The mocks subpackage provides a testify-based implementation of
// httpclient.Transport so callers can script upstream behaviour per attempt
// without opening sockets.
//
// # Fixtures
//
// The fixtures subpackage builds canned responses and transport errors:
//   - JSON and plain responses with a given status
//   - Network and timeout failures as NetTransport would classify them
//   - Pre-configured mocks (always failing, failing N times then succeeding)
//
// # Usage
//
//	import (
//		"github.com/gaborage/httpwrapper/testing/mocks"
//		"github.com/gaborage/httpwrapper/testing/fixtures"
//	)
package testing
