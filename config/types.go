package config

import (
	"time"

	"github.com/gaborage/httpwrapper/observability"
)

// Config is the complete configuration of an httpwrapper application.
type Config struct {
	Client        ClientConfig         `koanf:"client"`
	Log           LogConfig            `koanf:"log"`
	Observability observability.Config `koanf:"observability"`
}

// ClientConfig describes one HTTP client session.
type ClientConfig struct {
	// Host is the base URL every relative request path is joined to.
	Host    string            `koanf:"host" validate:"required,http_url"`
	Headers map[string]string `koanf:"headers"`
	Cookies map[string]string `koanf:"cookies"`
	Auth    AuthConfig        `koanf:"auth"`
	Request RequestConfig     `koanf:"request"`
	Rate    RateConfig        `koanf:"ratelimit"`
	// MaxInFlight caps concurrent asynchronous calls; 0 means unlimited.
	MaxInFlight int `koanf:"maxinflight" validate:"gte=0"`
}

// AuthConfig holds basic authentication credentials. Both empty disables auth.
type AuthConfig struct {
	Username string `koanf:"username" validate:"required_with=Password"`
	Password string `koanf:"password"`
}

// Enabled reports whether credentials were configured
func (a AuthConfig) Enabled() bool {
	return a.Username != ""
}

// RequestConfig mirrors httpclient.RequestConfig.
type RequestConfig struct {
	Retry           int           `koanf:"retry" validate:"min=1"`
	Timeout         time.Duration `koanf:"timeout" validate:"gte=0"`
	Backoff         BackoffConfig `koanf:"backoff"`
	FollowRedirects bool          `koanf:"followredirects"`
	Proxy           string        `koanf:"proxy" validate:"omitempty,url"`
}

// BackoffConfig is the linear backoff schedule.
type BackoffConfig struct {
	Initial   time.Duration `koanf:"initial" validate:"gte=0"`
	Increment time.Duration `koanf:"increment" validate:"gte=0"`
}

// RateConfig holds client-side rate limiting settings. RPS 0 disables it.
type RateConfig struct {
	RPS   float64 `koanf:"rps" validate:"gte=0"`
	Burst int     `koanf:"burst" validate:"gte=0"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty"`
}
