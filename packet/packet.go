package packet

import (
	"fmt"
	"time"

	"github.com/opd-ai/neteq/limits"
)

// AudioPacket is a decoded audio packet tagged for playout ordering.
type AudioPacket struct {
	// Sequence is the unwrapped transport sequence number
	Sequence uint32
	// Timestamp is the sample-clock position of the first sample, per channel
	Timestamp uint32
	// Payload holds interleaved PCM in [-1, 1]
	Payload []float32
	// SampleRate of Payload in Hz
	SampleRate uint32
	// Channels interleaved in Payload
	Channels uint8
	// DurationMs is derived from the payload length
	DurationMs float32

	SSRC        uint32
	PayloadType uint8
	Marker      bool

	// ArrivalTime is stamped by the engine when the packet is inserted
	ArrivalTime time.Time
}

// New builds a validated AudioPacket. DurationMs is computed from the payload.
func New(seq, timestamp uint32, payload []float32, sampleRate uint32, channels uint8) (*AudioPacket, error) {
	if err := limits.ValidatePayload(payload); err != nil {
		return nil, fmt.Errorf("packet %d: %w", seq, err)
	}
	if sampleRate == 0 || sampleRate > limits.MaxSampleRate {
		return nil, fmt.Errorf("%w: %d Hz", ErrInvalidSampleRate, sampleRate)
	}
	if channels == 0 || int(channels) > limits.MaxChannels {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannels, channels)
	}
	if len(payload)%int(channels) != 0 {
		return nil, fmt.Errorf("%w: %d samples, %d channels", ErrMisalignedPayload, len(payload), channels)
	}

	p := &AudioPacket{
		Sequence:   seq,
		Timestamp:  timestamp,
		Payload:    payload,
		SampleRate: sampleRate,
		Channels:   channels,
	}
	p.DurationMs = float32(p.SamplesPerChannel()) * 1000 / float32(sampleRate)
	return p, nil
}

// SamplesPerChannel returns the number of sample frames in the payload.
func (p *AudioPacket) SamplesPerChannel() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Payload) / int(p.Channels)
}

// ExpectedSamples returns the sample frames DurationMs implies at SampleRate.
func (p *AudioPacket) ExpectedSamples() int {
	return int(float64(p.DurationMs)*float64(p.SampleRate)/1000 + 0.5)
}

// Duration returns DurationMs as a time.Duration.
func (p *AudioPacket) Duration() time.Duration {
	return time.Duration(float64(p.DurationMs) * float64(time.Millisecond))
}

// IsOlderThan reports whether the packet arrived more than maxAge before now.
// Packets without an arrival time are never considered old.
func (p *AudioPacket) IsOlderThan(maxAge time.Duration, now time.Time) bool {
	if p.ArrivalTime.IsZero() {
		return false
	}
	return now.Sub(p.ArrivalTime) > maxAge
}

// SameFormat reports whether two packets share sample rate and channel layout.
func (p *AudioPacket) SameFormat(sampleRate uint32, channels uint8) bool {
	return p.SampleRate == sampleRate && p.Channels == channels
}
