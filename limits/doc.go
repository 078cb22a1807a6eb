// Package limits provides centralized payload size constants and validation
// functions for the jitter buffer. Every component that accepts audio from the
// outside world checks it here first.
//
// # Memory Bound
//
// The engine never holds more than
//
//	max_packets_in_buffer * MaxSamplesPerPacket
//
// decoded samples. MaxSamplesPerPacket is derived from the largest supported
// sample rate (MaxSampleRate), the longest packet (MaxPacketDurationMs) and the
// widest layout (MaxChannels).
//
// # Validation Functions
//
//	if err := limits.ValidatePayload(samples); err != nil {
//	    // ErrPayloadEmpty or ErrPayloadTooLarge
//	}
//
// Raw RTP datagrams are checked with ValidateRTPPacket before parsing.
//
// # Error Types
//
// Both sentinels are wrapped with size context, so callers should compare with
// errors.Is:
//
//	if errors.Is(err, limits.ErrPayloadTooLarge) {
//	    // drop the packet
//	}
package limits
