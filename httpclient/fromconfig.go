package httpclient

import (
	"github.com/gaborage/httpwrapper/config"
	"github.com/gaborage/httpwrapper/logger"
)

// NewFromConfig creates a blocking client from a loaded client section.
// opts are applied after the configured values and may override them.
func NewFromConfig(cfg *config.ClientConfig, log logger.Logger, opts ...Option) (*Client, error) {
	base, err := configOptions(cfg, log)
	if err != nil {
		return nil, err
	}
	return New(cfg.Host, append(base, opts...)...)
}

// NewAsyncFromConfig creates a concurrent client from a loaded client section.
func NewAsyncFromConfig(cfg *config.ClientConfig, log logger.Logger, opts ...Option) (*AsyncClient, error) {
	base, err := configOptions(cfg, log)
	if err != nil {
		return nil, err
	}
	return NewAsync(cfg.Host, append(base, opts...)...)
}

func configOptions(cfg *config.ClientConfig, log logger.Logger) ([]Option, error) {
	if cfg == nil {
		return nil, NewConfigurationError("client", "client config is nil", nil)
	}

	opts := []Option{
		WithLogger(log),
		WithHeaders(cfg.Headers),
		WithCookies(cfg.Cookies),
		WithRequestConfig(RequestConfig{
			RetryLimit:       cfg.Request.Retry,
			Timeout:          cfg.Request.Timeout,
			InitialBackoff:   cfg.Request.Backoff.Initial,
			BackoffIncrement: cfg.Request.Backoff.Increment,
			FollowRedirects:  cfg.Request.FollowRedirects,
			Proxy:            cfg.Request.Proxy,
		}),
		WithRateLimit(cfg.Rate.RPS, cfg.Rate.Burst),
		WithMaxInFlight(cfg.MaxInFlight),
	}
	if cfg.Auth.Enabled() {
		opts = append(opts, WithBasicAuth(cfg.Auth.Username, cfg.Auth.Password))
	}
	return opts, nil
}
