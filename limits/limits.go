// Package limits provides centralized audio payload limits for the jitter buffer.
// This ensures consistent memory bounds across packet construction, RTP ingress
// and the engine's insert path.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxSampleRate is the highest supported sample rate in Hz
	MaxSampleRate = 192000

	// MaxChannels is the highest supported interleaved channel count
	MaxChannels = 8

	// MaxPacketDurationMs is the longest audio packet accepted (Opus maximum frame)
	MaxPacketDurationMs = 120

	// MaxSamplesPerPacket bounds a single decoded payload (all channels interleaved).
	// Together with the buffer capacity this bounds the engine's memory use.
	MaxSamplesPerPacket = MaxSampleRate * MaxPacketDurationMs / 1000 * MaxChannels

	// MaxRTPPacketSize is the largest raw RTP datagram the depacketizer will parse,
	// the largest UDP payload over IPv4
	MaxRTPPacketSize = 65507

	// MaxDecoderOutput is the scratch size for a decoded frame in samples
	MaxDecoderOutput = 48000 * MaxPacketDurationMs / 1000 * 2
)

var (
	// ErrPayloadEmpty indicates a packet without audio samples
	ErrPayloadEmpty = errors.New("empty payload")

	// ErrPayloadTooLarge indicates a payload exceeding the configured sample bound
	ErrPayloadTooLarge = errors.New("payload too large")
)

// ValidatePayloadSize validates a sample count against the specified maximum.
// Returns an error with context including the actual and maximum sizes.
func ValidatePayloadSize(samples, maxSamples int) error {
	if samples == 0 {
		return ErrPayloadEmpty
	}
	if samples > maxSamples {
		return fmt.Errorf("%w: %d samples exceeds limit %d", ErrPayloadTooLarge, samples, maxSamples)
	}
	return nil
}

// ValidatePayload validates a decoded payload against MaxSamplesPerPacket.
func ValidatePayload(payload []float32) error {
	return ValidatePayloadSize(len(payload), MaxSamplesPerPacket)
}

// ValidateRTPPacket validates raw datagram bytes before RTP parsing.
func ValidateRTPPacket(data []byte) error {
	if len(data) == 0 {
		return ErrPayloadEmpty
	}
	if len(data) > MaxRTPPacketSize {
		return fmt.Errorf("%w: datagram size %d exceeds limit %d", ErrPayloadTooLarge, len(data), MaxRTPPacketSize)
	}
	return nil
}
