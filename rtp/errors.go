package rtp

import "errors"

// Stream errors
var (
	// ErrSSRCMismatch indicates a datagram from a stream other than the locked one
	ErrSSRCMismatch = errors.New("unexpected SSRC")

	// ErrResamplerPriming indicates a payload fully absorbed by the resampler
	// delay line; no packet is produced for it
	ErrResamplerPriming = errors.New("resampler produced no audio")

	// ErrUnsupportedLayout indicates a channel conversion other than mono to
	// N or N to mono
	ErrUnsupportedLayout = errors.New("unsupported channel conversion")
)

// Configuration errors
var (
	// ErrNilRegistry indicates a Depacketizer without a codec registry
	ErrNilRegistry = errors.New("codec registry cannot be nil")

	// ErrInvalidClockRate indicates a zero clock or sample rate
	ErrInvalidClockRate = errors.New("clock rate cannot be zero")

	// ErrPayloadExceedsMTU indicates a frame that does not fit one datagram
	ErrPayloadExceedsMTU = errors.New("payload exceeds MTU")
)
