package httpclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/gaborage/httpwrapper/retry"
)

// ClientError represents different types of HTTP client errors
type ClientError interface {
	error
	Type() ErrorType
}

// ErrorType defines the category of client error
type ErrorType string

const (
	NetworkError       ErrorType = "network"
	TimeoutError       ErrorType = "timeout"
	ValidationError    ErrorType = "validation"
	ExhaustedError     ErrorType = "exhausted"
	ConfigurationError ErrorType = "configuration"
)

var (
	// ErrExhausted matches every exhaustion error via errors.Is.
	ErrExhausted = retry.ErrExhausted

	// ErrClientClosed is returned by calls made after Close.
	ErrClientClosed = errors.New("httpclient: client is closed")
)

// networkError represents connection, protocol and body read failures
type networkError struct {
	message string
	wrapped error
}

func (e *networkError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("network error: %s: %v", e.message, e.wrapped)
	}
	return fmt.Sprintf("network error: %s", e.message)
}

func (e *networkError) Type() ErrorType {
	return NetworkError
}

func (e *networkError) Unwrap() error {
	return e.wrapped
}

// timeoutError represents an attempt that exceeded its timeout
type timeoutError struct {
	message string
	timeout time.Duration
	wrapped error
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("timeout error: %s (timeout: %v)", e.message, e.timeout)
}

func (e *timeoutError) Type() ErrorType {
	return TimeoutError
}

func (e *timeoutError) Unwrap() error {
	return e.wrapped
}

// validationError represents a request that can never succeed as built
type validationError struct {
	message string
	field   string
	wrapped error
}

func (e *validationError) Error() string {
	msg := fmt.Sprintf("validation error: %s", e.message)
	if e.field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.field)
	}
	if e.wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *validationError) Type() ErrorType {
	return ValidationError
}

func (e *validationError) Unwrap() error {
	return e.wrapped
}

// exhaustedError is returned after RetryLimit failed attempts
type exhaustedError struct {
	method  string
	url     string
	wrapped *retry.ExhaustedError
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("max retries exceeded: %s %s failed %d attempt(s): %v", e.method, e.url, e.wrapped.Attempts, e.wrapped.Err)
}

func (e *exhaustedError) Type() ErrorType {
	return ExhaustedError
}

func (e *exhaustedError) Unwrap() error {
	return e.wrapped
}

func (e *exhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Attempts returns how many attempts were made
func (e *exhaustedError) Attempts() int {
	return e.wrapped.Attempts
}

// configurationError represents an invalid session or request configuration
type configurationError struct {
	field   string
	message string
	wrapped error
}

func (e *configurationError) Error() string {
	msg := fmt.Sprintf("configuration error: %s", e.message)
	if e.field != "" {
		msg = fmt.Sprintf("%s (field: %s)", msg, e.field)
	}
	if e.wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.wrapped)
	}
	return msg
}

func (e *configurationError) Type() ErrorType {
	return ConfigurationError
}

func (e *configurationError) Unwrap() error {
	return e.wrapped
}

// Field returns the offending configuration field
func (e *configurationError) Field() string {
	return e.field
}

// NewNetworkError creates a new network error
func NewNetworkError(message string, wrapped error) ClientError {
	return &networkError{message: message, wrapped: wrapped}
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(message string, timeout time.Duration, wrapped error) ClientError {
	return &timeoutError{message: message, timeout: timeout, wrapped: wrapped}
}

// NewValidationError creates a new validation error
func NewValidationError(message, field string, wrapped error) ClientError {
	return &validationError{message: message, field: field, wrapped: wrapped}
}

// NewExhaustedError creates the error returned once every attempt has failed.
// It unwraps to a *retry.ExhaustedError, which in turn unwraps to last.
func NewExhaustedError(method, url string, attempts int, last error) ClientError {
	return &exhaustedError{
		method:  method,
		url:     url,
		wrapped: &retry.ExhaustedError{Attempts: attempts, Err: last},
	}
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(field, message string, wrapped error) ClientError {
	return &configurationError{field: field, message: message, wrapped: wrapped}
}

// IsErrorType checks if the outermost ClientError in err's chain has the given type
func IsErrorType(err error, errorType ErrorType) bool {
	if err == nil {
		return false
	}
	var clientErr ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type() == errorType
	}
	return false
}

// AttemptsFromError reports the attempt count carried by an exhaustion error
func AttemptsFromError(err error) (int, bool) {
	var exhausted *exhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Attempts(), true
	}
	return 0, false
}

// IsSuccessStatus checks if a status code represents success (2xx)
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}
