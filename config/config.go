package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// HTTPWRAPPER_CLIENT_REQUEST_RETRY sets client.request.retry; a double
// underscore is kept as a single literal underscore.
const EnvPrefix = "HTTPWRAPPER_"

type loadOptions struct {
	files     []string
	yaml      [][]byte
	overrides map[string]any
	env       bool
}

// LoadOption customizes Load
type LoadOption func(*loadOptions)

// WithFile loads a YAML file. Missing files are an error.
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.files = append(o.files, path)
	}
}

// WithYAML loads inline YAML content after any files.
func WithYAML(content []byte) LoadOption {
	return func(o *loadOptions) {
		o.yaml = append(o.yaml, content)
	}
}

// WithOverrides applies dotted-key values last, above environment variables.
func WithOverrides(values map[string]any) LoadOption {
	return func(o *loadOptions) {
		o.overrides = values
	}
}

// WithoutEnv skips environment variables.
func WithoutEnv() LoadOption {
	return func(o *loadOptions) {
		o.env = false
	}
}

// Load loads configuration from multiple sources with priority:
// 1. Overrides (highest priority)
// 2. Environment variables
// 3. YAML content, then YAML files
// 4. Default values (lowest priority)
func Load(opts ...LoadOption) (*Config, error) {
	o := &loadOptions{env: true}
	for _, opt := range opts {
		opt(o)
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	for _, path := range o.files {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	for _, content := range o.yaml {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse YAML content: %w", err)
		}
	}

	if o.env {
		if err := k.Load(env.Provider(".", env.Opt{
			Prefix:        EnvPrefix,
			TransformFunc: envKey,
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load environment variables: %w", err)
		}
	}

	if len(o.overrides) > 0 {
		if err := k.Load(confmap.Provider(o.overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// envKey converts HTTPWRAPPER_CLIENT_RATELIMIT_RPS to client.ratelimit.rps.
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, EnvPrefix)
	key = strings.ToLower(key)

	const placeholder = "\x00"
	key = strings.ReplaceAll(key, "__", placeholder)
	key = strings.ReplaceAll(key, "_", ".")
	key = strings.ReplaceAll(key, placeholder, "_")
	return key, value
}

func defaults() map[string]any {
	return map[string]any{
		"client.request.retry":             99,
		"client.request.timeout":           "99s",
		"client.request.backoff.initial":   "1s",
		"client.request.backoff.increment": "3s",
		"client.request.followredirects":   false,
		"client.ratelimit.rps":             0,
		"client.ratelimit.burst":           1,
		"client.maxinflight":               0,

		"log.level":  "info",
		"log.pretty": false,

		"observability.enabled": false,
	}
}
