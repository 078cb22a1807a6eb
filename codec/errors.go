package codec

import "errors"

// Registry errors
var (
	// ErrUnknownPayloadType indicates a payload type without a registered decoder
	ErrUnknownPayloadType = errors.New("unknown payload type")

	// ErrPayloadTypeInUse indicates a payload type that already has a decoder
	ErrPayloadTypeInUse = errors.New("payload type already registered")

	// ErrInvalidPayloadType indicates a payload type outside 0-127
	ErrInvalidPayloadType = errors.New("invalid payload type")
)

// Decoding errors
var (
	// ErrEmptyPayload indicates a payload without any bytes
	ErrEmptyPayload = errors.New("empty payload")

	// ErrTruncatedPayload indicates a payload whose length is not a whole
	// number of samples
	ErrTruncatedPayload = errors.New("truncated payload")

	// ErrInvalidFormat indicates a zero sample rate or channel count
	ErrInvalidFormat = errors.New("invalid audio format")

	// ErrMalformedOpus indicates an Opus packet whose TOC cannot be parsed
	ErrMalformedOpus = errors.New("malformed opus packet")
)
