package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// PCM16Decoder decodes L16: signed 16-bit big-endian interleaved samples.
type PCM16Decoder struct {
	format Format
}

// NewPCM16Decoder returns an L16 decoder for the given layout.
func NewPCM16Decoder(sampleRate uint32, channels uint8) *PCM16Decoder {
	return &PCM16Decoder{format: Format{SampleRate: sampleRate, Channels: channels}}
}

// Decode implements Decoder.
func (d *PCM16Decoder) Decode(payload []byte) ([]float32, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	frame := 2 * int(d.format.Channels)
	if len(payload)%frame != 0 {
		return nil, fmt.Errorf("%w: %d bytes for %d channels", ErrTruncatedPayload, len(payload), d.format.Channels)
	}
	out := make([]float32, len(payload)/2)
	for i := range out {
		out[i] = float32(int16(binary.BigEndian.Uint16(payload[2*i:]))) / 32768
	}
	return out, nil
}

// Format implements Decoder.
func (d *PCM16Decoder) Format() Format { return d.format }

// Name implements Decoder.
func (d *PCM16Decoder) Name() string { return "L16" }

// PCM16Encode converts float samples to L16, clipping to the int16 range.
func PCM16Encode(pcm []float32) []byte {
	out := make([]byte, 2*len(pcm))
	for i, s := range pcm {
		binary.BigEndian.PutUint16(out[2*i:], uint16(floatToInt16(s)))
	}
	return out
}

func floatToInt16(s float32) int16 {
	v := math.Round(float64(s) * 32768)
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	default:
		return int16(v)
	}
}

// Float32Decoder decodes little-endian IEEE 754 float samples.
type Float32Decoder struct {
	format Format
}

// NewFloat32Decoder returns a float decoder for the given layout.
func NewFloat32Decoder(sampleRate uint32, channels uint8) *Float32Decoder {
	return &Float32Decoder{format: Format{SampleRate: sampleRate, Channels: channels}}
}

// Decode implements Decoder.
func (d *Float32Decoder) Decode(payload []byte) ([]float32, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	frame := 4 * int(d.format.Channels)
	if len(payload)%frame != 0 {
		return nil, fmt.Errorf("%w: %d bytes for %d channels", ErrTruncatedPayload, len(payload), d.format.Channels)
	}
	out := make([]float32, len(payload)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[4*i:]))
	}
	return out, nil
}

// Format implements Decoder.
func (d *Float32Decoder) Format() Format { return d.format }

// Name implements Decoder.
func (d *Float32Decoder) Name() string { return "F32" }

// Float32Encode is the inverse of Float32Decoder.Decode.
func Float32Encode(pcm []float32) []byte {
	out := make([]byte, 4*len(pcm))
	for i, s := range pcm {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(s))
	}
	return out
}
