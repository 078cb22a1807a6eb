package neteq

import (
	"errors"
	"fmt"
)

// Configuration errors
var (
	// ErrInvalidSampleRate indicates a sample rate that cannot produce whole 10 ms frames
	ErrInvalidSampleRate = errors.New("invalid sample rate")

	// ErrInvalidChannels indicates a channel count of zero or above the supported maximum
	ErrInvalidChannels = errors.New("invalid channel count")

	// ErrInvalidDelayBounds indicates a minimum delay above the maximum delay
	ErrInvalidDelayBounds = errors.New("invalid delay bounds")

	// ErrInvalidCapacity indicates a packet buffer without room for packets
	ErrInvalidCapacity = errors.New("invalid buffer capacity")

	// ErrInvalidQuantile indicates a delay quantile outside (0, 1]
	ErrInvalidQuantile = errors.New("invalid delay quantile")

	// ErrInvalidForgetFactor indicates a histogram forget factor outside (0, 1)
	ErrInvalidForgetFactor = errors.New("invalid forget factor")

	// ErrInvalidMargins indicates decision margins that leave no room between
	// the low and high buffer limits
	ErrInvalidMargins = errors.New("invalid decision margins")
)

// Packet errors
var (
	// ErrFormatMismatch indicates a packet whose sample rate or channel layout
	// differs from the engine's
	ErrFormatMismatch = errors.New("packet format does not match engine")

	// ErrNilPacket indicates InsertPacket was called without a packet
	ErrNilPacket = errors.New("nil packet")
)

// ErrNotInitialized indicates an Engine that was not created with New.
var ErrNotInitialized = errors.New("engine not initialized")

// ConfigError reports an invalid Options field.
type ConfigError struct {
	Field string // Options field name
	Err   error  // underlying error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("neteq config %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// InsertError reports a packet rejected by InsertPacket.
type InsertError struct {
	Sequence  uint32
	Timestamp uint32
	Err       error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("neteq insert seq=%d ts=%d: %v", e.Sequence, e.Timestamp, e.Err)
}

func (e *InsertError) Unwrap() error {
	return e.Err
}

// EngineError reports misuse of an Engine.
type EngineError struct {
	Op  string // operation that caused the error
	Err error  // underlying error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("neteq %s: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func newConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

func newInsertError(seq, ts uint32, err error) *InsertError {
	return &InsertError{Sequence: seq, Timestamp: ts, Err: err}
}
