package delay

import "errors"

var (
	// ErrInvalidQuantile indicates a quantile outside (0, 1]
	ErrInvalidQuantile = errors.New("quantile must be in (0, 1]")
	// ErrInvalidForgetFactor indicates a forget factor outside (0, 1)
	ErrInvalidForgetFactor = errors.New("forget factor must be in (0, 1)")
	// ErrInvalidBuckets indicates a histogram without buckets or a zero bucket width
	ErrInvalidBuckets = errors.New("invalid histogram bucket layout")
	// ErrInvalidBounds indicates a minimum delay above the maximum delay
	ErrInvalidBounds = errors.New("minimum delay exceeds maximum delay")
	// ErrInvalidSampleRate indicates an update with a zero sample rate
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)
