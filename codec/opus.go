package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/pion/opus"
	"github.com/sirupsen/logrus"
)

const (
	// OpusSampleRate is the rate pion/opus produces decoded audio at.
	OpusSampleRate = 48000
	// maxOpusPacketSamples is 120 ms at 48 kHz, the longest Opus packet.
	maxOpusPacketSamples = 5760
)

// Frame sizes at 48 kHz indexed by the low bits of the TOC configuration
// (RFC 6716 section 3.1).
var (
	silkFrameSamples   = [4]int{480, 960, 1920, 2880}
	hybridFrameSamples = [2]int{480, 960}
	celtFrameSamples   = [4]int{120, 240, 480, 960}
)

// OpusDecoder decodes Opus packets to mono 48 kHz audio. The output length
// comes from the packet's TOC byte.
type OpusDecoder struct {
	decoder opus.Decoder
	scratch []byte
}

// NewOpusDecoder returns an OpusDecoder.
func NewOpusDecoder() *OpusDecoder {
	return &OpusDecoder{
		decoder: opus.NewDecoder(),
		scratch: make([]byte, maxOpusPacketSamples*2),
	}
}

// Decode implements Decoder.
func (d *OpusDecoder) Decode(payload []byte) ([]float32, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	samples, err := OpusPacketSamples(payload)
	if err != nil {
		return nil, err
	}

	bandwidth, isStereo, err := d.decoder.Decode(payload, d.scratch)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "OpusDecoder.Decode",
			"size":     len(payload),
			"error":    err.Error(),
		}).Debug("Opus decode failed")
		return nil, fmt.Errorf("opus: %w", err)
	}

	out := make([]float32, samples)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(d.scratch[2*i:]))) / 32768
	}

	logrus.WithFields(logrus.Fields{
		"function":  "OpusDecoder.Decode",
		"bandwidth": bandwidth.String(),
		"stereo":    isStereo,
		"samples":   samples,
	}).Debug("Decoded opus packet")
	return out, nil
}

// Format implements Decoder.
func (d *OpusDecoder) Format() Format {
	return Format{SampleRate: OpusSampleRate, Channels: 1}
}

// Name implements Decoder.
func (d *OpusDecoder) Name() string { return "opus" }

// OpusPacketSamples returns the number of samples per channel at 48 kHz
// carried by an Opus packet.
func OpusPacketSamples(packet []byte) (int, error) {
	if len(packet) == 0 {
		return 0, ErrEmptyPayload
	}
	toc := packet[0]
	config := int(toc >> 3)

	var frame int
	switch {
	case config < 12:
		frame = silkFrameSamples[config&3]
	case config < 16:
		frame = hybridFrameSamples[config&1]
	default:
		frame = celtFrameSamples[config&3]
	}

	var count int
	switch toc & 3 {
	case 0:
		count = 1
	case 1, 2:
		count = 2
	default:
		if len(packet) < 2 {
			return 0, fmt.Errorf("%w: missing frame count byte", ErrMalformedOpus)
		}
		count = int(packet[1] & 0x3F)
		if count == 0 {
			return 0, fmt.Errorf("%w: zero frame count", ErrMalformedOpus)
		}
	}

	total := frame * count
	if total > maxOpusPacketSamples {
		return 0, fmt.Errorf("%w: %d samples exceeds 120 ms", ErrMalformedOpus, total)
	}
	return total, nil
}
