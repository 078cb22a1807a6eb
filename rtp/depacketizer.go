package rtp

import (
	"fmt"
	"sync"

	"github.com/opd-ai/neteq/clock"
	"github.com/opd-ai/neteq/codec"
	"github.com/opd-ai/neteq/limits"
	"github.com/opd-ai/neteq/packet"
	"github.com/pion/rtp"
	"github.com/sirupsen/logrus"
)

// DepacketizerConfig configures a Depacketizer.
type DepacketizerConfig struct {
	// Registry resolves payload types to decoders.
	Registry *codec.Registry
	// SampleRate and Channels are the engine format packets are converted to.
	SampleRate uint32
	Channels   uint8
	// TimeProvider stamps ArrivalTime. Nil uses the system clock.
	TimeProvider clock.TimeProvider
}

// Depacketizer turns RTP datagrams from one stream into AudioPackets.
type Depacketizer struct {
	mu           sync.Mutex
	config       DepacketizerConfig
	timeProvider clock.TimeProvider

	ssrc    uint32
	hasSSRC bool

	sequence   packet.SequenceUnwrapper
	timestamps timestampUnwrapper
	resamplers map[uint8]*codec.Resampler
}

// NewDepacketizer creates a Depacketizer.
func NewDepacketizer(config DepacketizerConfig) (*Depacketizer, error) {
	if config.Registry == nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewDepacketizer",
			"error":    ErrNilRegistry.Error(),
		}).Error("Invalid depacketizer configuration")
		return nil, ErrNilRegistry
	}
	if config.SampleRate == 0 {
		return nil, fmt.Errorf("%w: sample rate", ErrInvalidClockRate)
	}
	if config.Channels == 0 || int(config.Channels) > limits.MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedLayout, config.Channels)
	}

	d := &Depacketizer{
		config:       config,
		timeProvider: clock.OrDefault(config.TimeProvider),
		resamplers:   make(map[uint8]*codec.Resampler),
	}

	logrus.WithFields(logrus.Fields{
		"function":    "NewDepacketizer",
		"sample_rate": config.SampleRate,
		"channels":    config.Channels,
	}).Info("Depacketizer created")
	return d, nil
}

// Process parses and decodes one datagram. Errors are per packet; the
// stream continues with the next datagram.
func (d *Depacketizer) Process(raw []byte) (*packet.AudioPacket, error) {
	if err := limits.ValidateRTPPacket(raw); err != nil {
		return nil, err
	}

	var rp rtp.Packet
	if err := rp.Unmarshal(raw); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Depacketizer.Process",
			"size":     len(raw),
			"error":    err.Error(),
		}).Debug("Failed to unmarshal RTP packet")
		return nil, fmt.Errorf("failed to unmarshal RTP packet: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasSSRC {
		d.ssrc = rp.SSRC
		d.hasSSRC = true
		logrus.WithFields(logrus.Fields{
			"function": "Depacketizer.Process",
			"ssrc":     rp.SSRC,
		}).Info("Locked onto SSRC")
	} else if rp.SSRC != d.ssrc {
		logrus.WithFields(logrus.Fields{
			"function":      "Depacketizer.Process",
			"expected_ssrc": d.ssrc,
			"received_ssrc": rp.SSRC,
		}).Warn("Unexpected SSRC in RTP packet")
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrSSRCMismatch, d.ssrc, rp.SSRC)
	}

	pcm, format, err := d.config.Registry.Decode(rp.PayloadType, rp.Payload)
	if err != nil {
		return nil, fmt.Errorf("payload type %d: %w", rp.PayloadType, err)
	}

	pcm, err = convertChannels(pcm, int(format.Channels), int(d.config.Channels))
	if err != nil {
		return nil, err
	}
	pcm, err = d.resample(rp.PayloadType, format.SampleRate, pcm)
	if err != nil {
		return nil, err
	}
	if len(pcm) == 0 {
		return nil, ErrResamplerPriming
	}

	seq := d.sequence.Unwrap(rp.SequenceNumber)
	ts := d.timestamps.convert(rp.Timestamp, format.SampleRate, d.config.SampleRate)

	pkt, err := packet.New(seq, ts, pcm, d.config.SampleRate, d.config.Channels)
	if err != nil {
		return nil, err
	}
	pkt.SSRC = rp.SSRC
	pkt.PayloadType = rp.PayloadType
	pkt.Marker = rp.Marker
	pkt.ArrivalTime = d.timeProvider.Now()

	logrus.WithFields(logrus.Fields{
		"function":     "Depacketizer.Process",
		"sequence":     seq,
		"timestamp":    ts,
		"payload_type": rp.PayloadType,
		"samples":      len(pcm),
	}).Debug("Depacketized audio")
	return pkt, nil
}

func (d *Depacketizer) resample(payloadType uint8, from uint32, pcm []float32) ([]float32, error) {
	if from == d.config.SampleRate {
		return pcm, nil
	}
	r, ok := d.resamplers[payloadType]
	if !ok {
		var err error
		r, err = codec.NewResampler(from, d.config.SampleRate, d.config.Channels)
		if err != nil {
			return nil, err
		}
		d.resamplers[payloadType] = r
		logrus.WithFields(logrus.Fields{
			"function":     "Depacketizer.resample",
			"payload_type": payloadType,
			"from":         from,
			"to":           d.config.SampleRate,
		}).Info("Created resampler")
	}
	return r.Process(pcm)
}

// SSRC returns the locked stream identifier.
func (d *Depacketizer) SSRC() (uint32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ssrc, d.hasSSRC
}

// Reset unlocks the SSRC and forgets sequence and timestamp history, so the
// next datagram starts a new stream.
func (d *Depacketizer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hasSSRC = false
	d.ssrc = 0
	d.sequence.Reset()
	d.timestamps = timestampUnwrapper{}
	d.resamplers = make(map[uint8]*codec.Resampler)

	logrus.WithFields(logrus.Fields{
		"function": "Depacketizer.Reset",
	}).Info("Depacketizer reset")
}

// timestampUnwrapper rescales RTP timestamps from the codec clock to the
// engine clock, relative to the first timestamp of the stream.
type timestampUnwrapper struct {
	last    uint32
	offset  int64
	started bool
}

func (u *timestampUnwrapper) convert(ts, from, to uint32) uint32 {
	if from == to || from == 0 {
		return ts
	}
	if !u.started {
		u.last = ts
		u.started = true
	}
	if diff := int64(packet.TimestampDiff(ts, u.last)); diff > 0 {
		u.offset += diff
		u.last = ts
		return uint32(u.offset * int64(to) / int64(from))
	}
	rel := u.offset + int64(packet.TimestampDiff(ts, u.last))
	return uint32(rel * int64(to) / int64(from))
}

// convertChannels maps mono to N channels by duplication and N channels to
// mono by averaging.
func convertChannels(pcm []float32, from, to int) ([]float32, error) {
	switch {
	case from == to:
		return pcm, nil
	case from == 1:
		out := make([]float32, len(pcm)*to)
		for i, s := range pcm {
			for c := 0; c < to; c++ {
				out[i*to+c] = s
			}
		}
		return out, nil
	case to == 1:
		frames := len(pcm) / from
		out := make([]float32, frames)
		for f := 0; f < frames; f++ {
			var sum float32
			for c := 0; c < from; c++ {
				sum += pcm[f*from+c]
			}
			out[f] = sum / float32(from)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d to %d channels", ErrUnsupportedLayout, from, to)
	}
}
