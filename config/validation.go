package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// structValidator reports field paths using koanf keys, e.g. client.request.retry.
func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks the struct tags of cfg and the observability section.
// The first violation is returned as a *ConfigError.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	if err := structValidator().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return toConfigError(fieldErrs[0])
		}
		return err
	}

	if err := cfg.Observability.Validate(); err != nil {
		return fmt.Errorf("observability config: %w", err)
	}
	return nil
}

func toConfigError(fe validator.FieldError) *ConfigError {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch fe.Tag() {
	case "required", "required_with":
		return NewMissingFieldError(field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %v", fe.Value()), strings.Fields(fe.Param()))
	case "min":
		return NewInvalidFieldError(field, "must be at least "+fe.Param(), nil)
	case "gte":
		return NewInvalidFieldError(field, "must not be negative", nil)
	case "url", "http_url":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid url %q", fe.Value()), nil)
	default:
		return NewInvalidFieldError(field, "failed "+fe.Tag()+" validation", nil)
	}
}
