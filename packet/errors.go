package packet

import "errors"

// Format errors
var (
	// ErrInvalidSampleRate indicates a zero or unsupported sample rate
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	// ErrInvalidChannels indicates a zero or unsupported channel count
	ErrInvalidChannels = errors.New("invalid channel count")
	// ErrMisalignedPayload indicates a payload length not divisible by the channel count
	ErrMisalignedPayload = errors.New("payload length not a multiple of channel count")
)
