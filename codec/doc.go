// Package codec turns RTP payloads into interleaved float32 PCM for the
// jitter buffer.
//
// A Registry maps RTP payload types to Decoders. Three decoders are
// provided:
//
//   - PCM16Decoder: L16 big-endian samples (RFC 3551)
//   - Float32Decoder: little-endian IEEE 754 samples, used by the simulator
//   - OpusDecoder: Opus packets decoded with github.com/pion/opus
//
// Decoded audio whose rate differs from the engine rate is converted with a
// Resampler backed by github.com/tphakala/go-audio-resampling.
//
//	reg := codec.NewRegistry()
//	_ = reg.Register(96, codec.NewOpusDecoder())
//	pcm, format, err := reg.Decode(96, payload)
//
// Registry is safe for concurrent use. Decoders and Resamplers keep
// per-stream state and are not.
package codec
