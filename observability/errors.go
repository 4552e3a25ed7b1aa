package observability

import "errors"

// Configuration errors returned by Config.Validate and NewProvider.
var (
	ErrNilConfig          = errors.New("observability: nil config")
	ErrMissingServiceName = errors.New("observability: service.name is required when enabled")
	ErrInvalidSampleRate  = errors.New("observability: trace.samplerate must be within [0, 1]")
	ErrInvalidProtocol    = errors.New("observability: protocol must be http or grpc")
	// Both OTLP exporters take host:port; Insecure selects plain text.
	ErrInvalidEndpointFormat = errors.New("observability: endpoint must be host:port without a scheme")
)
