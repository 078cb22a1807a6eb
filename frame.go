package neteq

// SpeechType classifies the content of a frame.
type SpeechType uint8

const (
	// SpeechNormal is decoded audio, possibly time stretched
	SpeechNormal SpeechType = iota
	// SpeechExpand is fully or partly concealed audio
	SpeechExpand
)

// String returns the string representation of SpeechType.
func (s SpeechType) String() string {
	if s == SpeechExpand {
		return "Expand"
	}
	return "Normal"
}

// Frame is one fixed-duration block of interleaved output audio.
type Frame struct {
	Samples           []float32
	SampleRate        uint32
	Channels          uint8
	SamplesPerChannel int
	// Timestamp is the playout position of the first sample, in samples per
	// channel since the engine started.
	Timestamp  uint32
	Operation  Operation
	SpeechType SpeechType
	// Muted is set when concealment has decayed out and the frame is silence.
	Muted bool
}

func newFrame(sampleRate uint32, channels uint8, samplesPerChannel int) *Frame {
	return &Frame{
		Samples:           make([]float32, samplesPerChannel*int(channels)),
		SampleRate:        sampleRate,
		Channels:          channels,
		SamplesPerChannel: samplesPerChannel,
	}
}

// DurationMs returns the frame duration in milliseconds.
func (f *Frame) DurationMs() uint32 {
	if f.SampleRate == 0 {
		return 0
	}
	return uint32(f.SamplesPerChannel) * 1000 / f.SampleRate
}
