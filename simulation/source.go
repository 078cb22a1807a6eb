package simulation

import (
	"io"
	"math"

	"github.com/opd-ai/neteq/codec"
)

// Source produces interleaved PCM frames for a Runner.
type Source interface {
	// ReadFrame returns samplesPerChannel samples per channel, or io.EOF
	// once the source is exhausted.
	ReadFrame(samplesPerChannel int) ([]float32, error)
	Format() codec.Format
}

// ToneSource is an endless sine tone.
type ToneSource struct {
	frequency float64
	amplitude float32
	format    codec.Format
	position  uint64
}

// NewToneSource creates a tone of frequency Hz at the given peak amplitude.
func NewToneSource(frequency float64, amplitude float32, sampleRate uint32, channels uint8) *ToneSource {
	return &ToneSource{
		frequency: frequency,
		amplitude: amplitude,
		format:    codec.Format{SampleRate: sampleRate, Channels: channels},
	}
}

// ReadFrame implements Source.
func (s *ToneSource) ReadFrame(samplesPerChannel int) ([]float32, error) {
	ch := int(s.format.Channels)
	out := make([]float32, samplesPerChannel*ch)
	step := 2 * math.Pi * s.frequency / float64(s.format.SampleRate)
	for i := 0; i < samplesPerChannel; i++ {
		v := s.amplitude * float32(math.Sin(step*float64(s.position)))
		for c := 0; c < ch; c++ {
			out[i*ch+c] = v
		}
		s.position++
	}
	return out, nil
}

// Format implements Source.
func (s *ToneSource) Format() codec.Format { return s.format }

// PCMSource plays a fixed interleaved buffer once. The last frame is padded
// with silence.
type PCMSource struct {
	pcm      []float32
	format   codec.Format
	position int
}

// NewPCMSource wraps interleaved PCM.
func NewPCMSource(pcm []float32, sampleRate uint32, channels uint8) *PCMSource {
	return &PCMSource{
		pcm:    pcm,
		format: codec.Format{SampleRate: sampleRate, Channels: channels},
	}
}

// ReadFrame implements Source.
func (s *PCMSource) ReadFrame(samplesPerChannel int) ([]float32, error) {
	if s.position >= len(s.pcm) {
		return nil, io.EOF
	}
	out := make([]float32, samplesPerChannel*int(s.format.Channels))
	n := copy(out, s.pcm[s.position:])
	s.position += n
	return out, nil
}

// Format implements Source.
func (s *PCMSource) Format() codec.Format { return s.format }

// Remaining returns the number of unread interleaved samples.
func (s *PCMSource) Remaining() int {
	return max(len(s.pcm)-s.position, 0)
}
