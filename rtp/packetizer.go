package rtp

import (
	"fmt"
	"sync"

	"github.com/opd-ai/neteq/codec"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultMTU is the datagram size packetizers target.
	DefaultMTU    = 1200
	rtpHeaderSize = 12
)

// Encoding selects the payload format a Packetizer writes.
type Encoding uint8

const (
	// EncodingL16 writes signed 16-bit big-endian samples
	EncodingL16 Encoding = iota
	// EncodingFloat32 writes little-endian float samples
	EncodingFloat32
)

// String returns the string representation of Encoding.
func (e Encoding) String() string {
	switch e {
	case EncodingL16:
		return "L16"
	case EncodingFloat32:
		return "F32"
	default:
		return "unknown"
	}
}

// PacketizerConfig configures a Packetizer.
type PacketizerConfig struct {
	PayloadType uint8
	// SSRC of the stream. Zero picks a random one.
	SSRC      uint32
	ClockRate uint32
	Channels  uint8
	Encoding  Encoding
	// MTU bounds the datagram size. Zero uses DefaultMTU.
	MTU uint16
	// InitialSequence and InitialTimestamp start the stream unless
	// RandomStart is set.
	InitialSequence  uint16
	InitialTimestamp uint32
	RandomStart      bool
}

// Packetizer wraps PCM frames in RTP datagrams, one datagram per frame.
type Packetizer struct {
	mu         sync.Mutex
	config     PacketizerConfig
	packetizer rtp.Packetizer
}

// NewPacketizer creates a Packetizer.
func NewPacketizer(config PacketizerConfig) (*Packetizer, error) {
	if config.ClockRate == 0 {
		logrus.WithFields(logrus.Fields{
			"function": "NewPacketizer",
			"error":    ErrInvalidClockRate.Error(),
		}).Error("Invalid packetizer configuration")
		return nil, ErrInvalidClockRate
	}
	if config.Channels == 0 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedLayout, config.Channels)
	}
	if config.MTU == 0 {
		config.MTU = DefaultMTU
	}
	if config.SSRC == 0 {
		config.SSRC = randomSSRC()
	}

	sequencer := rtp.NewFixedSequencer(config.InitialSequence)
	options := []rtp.PacketizerOption{
		rtp.WithSSRC(config.SSRC),
		rtp.WithPayloadType(config.PayloadType),
	}
	if config.RandomStart {
		sequencer = rtp.NewRandomSequencer()
	} else {
		options = append(options, rtp.WithTimestamp(config.InitialTimestamp))
	}
	p := &Packetizer{
		config:     config,
		packetizer: rtp.NewPacketizerWithOptions(config.MTU, framePayloader{}, sequencer, config.ClockRate, options...),
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewPacketizer",
		"ssrc":         config.SSRC,
		"payload_type": config.PayloadType,
		"clock_rate":   config.ClockRate,
		"encoding":     config.Encoding.String(),
	}).Info("Packetizer created")
	return p, nil
}

// Packetize encodes one frame of interleaved PCM into a datagram and
// advances the RTP timestamp by its length.
func (p *Packetizer) Packetize(pcm []float32) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, codec.ErrEmptyPayload
	}
	ch := int(p.config.Channels)
	if len(pcm)%ch != 0 {
		return nil, fmt.Errorf("%w: %d samples for %d channels", codec.ErrTruncatedPayload, len(pcm), ch)
	}

	var payload []byte
	if p.config.Encoding == EncodingFloat32 {
		payload = codec.Float32Encode(pcm)
	} else {
		payload = codec.PCM16Encode(pcm)
	}
	if len(payload)+rtpHeaderSize > int(p.config.MTU) {
		return nil, fmt.Errorf("%w: %d bytes, MTU %d", ErrPayloadExceedsMTU, len(payload), p.config.MTU)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	packets := p.packetizer.Packetize(payload, uint32(len(pcm)/ch))
	if len(packets) != 1 {
		return nil, fmt.Errorf("%w: split into %d packets", ErrPayloadExceedsMTU, len(packets))
	}
	raw, err := packets[0].Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RTP packet: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Packetizer.Packetize",
		"sequence":  packets[0].SequenceNumber,
		"timestamp": packets[0].Timestamp,
		"size":      len(raw),
	}).Debug("Packetized frame")
	return raw, nil
}

// SkipSamples advances the RTP timestamp without sending, as after a
// silent period.
func (p *Packetizer) SkipSamples(samples uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.packetizer.SkipSamples(samples)
}

// SSRC returns the stream identifier.
func (p *Packetizer) SSRC() uint32 {
	return p.config.SSRC
}

// framePayloader places the whole frame in a single payload.
type framePayloader struct{}

// Payload implements rtp.Payloader.
func (framePayloader) Payload(mtu uint16, payload []byte) [][]byte {
	if len(payload) == 0 || len(payload) > int(mtu) {
		return nil
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return [][]byte{out}
}
