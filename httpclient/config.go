package httpclient

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gaborage/httpwrapper/retry"
)

const (
	// DefaultRetryLimit is the default maximum number of attempts
	DefaultRetryLimit = 99

	// DefaultTimeout is the default per-attempt timeout
	DefaultTimeout = 99 * time.Second

	// DefaultInitialBackoff is the default sleep after the first failed attempt
	DefaultInitialBackoff = 1 * time.Second

	// DefaultBackoffIncrement is added to the sleep after every further failure
	DefaultBackoffIncrement = 3 * time.Second

	// responseLogLimit caps the number of body characters in debug logs
	responseLogLimit = 200
)

// RequestConfig controls how a call is attempted. It is a value type: the
// session keeps its own copy, so callers cannot mutate it after construction.
type RequestConfig struct {
	// RetryLimit is the maximum number of attempts; 1 disables retries.
	RetryLimit int `validate:"min=1"`
	// Timeout bounds each attempt. Zero means no per-attempt timeout.
	Timeout time.Duration `validate:"gte=0"`
	// InitialBackoff is the sleep after the first failed attempt.
	InitialBackoff time.Duration `validate:"gte=0"`
	// BackoffIncrement is added to the sleep after every further failure.
	BackoffIncrement time.Duration `validate:"gte=0"`
	// FollowRedirects lets the transport follow 3xx responses.
	FollowRedirects bool
	// Proxy is read from the session default config only, when the session
	// builds its NetTransport.
	Proxy string `validate:"omitempty,url"`
}

// DefaultRequestConfig returns the default request configuration
func DefaultRequestConfig() RequestConfig {
	return RequestConfig{
		RetryLimit:       DefaultRetryLimit,
		Timeout:          DefaultTimeout,
		InitialBackoff:   DefaultInitialBackoff,
		BackoffIncrement: DefaultBackoffIncrement,
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate reports the first invalid field as a ConfigurationError.
func (c RequestConfig) Validate() error {
	err := structValidator().Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return NewConfigurationError(strings.ToLower(fe.Field()), describeFieldError(fe), err)
	}
	return NewConfigurationError("", "invalid request config", err)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "gte":
		return fe.Field() + " must not be negative"
	case "url":
		return fe.Field() + " must be a valid URL"
	default:
		return fe.Field() + " failed " + fe.Tag() + " validation"
	}
}

func (c RequestConfig) policy() retry.Policy {
	return retry.Policy{
		Limit:            c.RetryLimit,
		InitialBackoff:   c.InitialBackoff,
		BackoffIncrement: c.BackoffIncrement,
	}
}
