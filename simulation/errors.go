package simulation

import "errors"

// Configuration errors
var (
	// ErrJitterTooLarge indicates MaxJitterMs above MaxJitterMs
	ErrJitterTooLarge = errors.New("max jitter exceeds 500 ms")
	// ErrReorderWindowTooLarge indicates ReorderWindowMs above MaxReorderWindowMs
	ErrReorderWindowTooLarge = errors.New("reorder window exceeds 200 ms")
	// ErrInvalidProbability indicates a probability outside [0, 1]
	ErrInvalidProbability = errors.New("probability must be within [0, 1]")
	// ErrNilSource indicates a runner without an audio source
	ErrNilSource = errors.New("source is nil")
	// ErrNilTrace indicates a replay runner without a trace
	ErrNilTrace = errors.New("trace is nil")
	// ErrInvalidPacketDuration indicates a packet duration that is not a multiple of 10 ms
	ErrInvalidPacketDuration = errors.New("packet duration must be a positive multiple of 10 ms")
)

// Trace errors
var (
	// ErrUnsupportedTraceVersion indicates a trace written by an incompatible version
	ErrUnsupportedTraceVersion = errors.New("unsupported trace version")
	// ErrTraceClosed indicates a write after Close
	ErrTraceClosed = errors.New("trace writer closed")
)
