package stretch

// Status reports what a time stretch call did.
type Status int

const (
	// NoStretch means output holds the unmodified head of the input.
	NoStretch Status = iota
	// Success means samples were removed or added in an audible region.
	Success
	// SuccessLowEnergy means the change was made in a quiet region.
	SuccessLowEnergy
)

// String returns a readable status name.
func (s Status) String() string {
	switch s {
	case NoStretch:
		return "no-stretch"
	case Success:
		return "success"
	case SuccessLowEnergy:
		return "success-low-energy"
	default:
		return "unknown"
	}
}

// Stretched reports whether the call changed the playout length.
func (s Status) Stretched() bool {
	return s == Success || s == SuccessLowEnergy
}

// Result describes one Process call.
type Result struct {
	Status Status
	// UsedSamples is the number of interleaved input samples consumed.
	UsedSamples int
	// LengthChange is the number of frames per channel removed (accelerate) or
	// added (preemptive expand).
	LengthChange int
}

// splice writes the interleaved output as in[:head] followed by a crossfade
// from in[head:head+overlap] into in[tail:tail+overlap] and the remainder of
// in starting at tail+overlap. All positions are in frames.
func splice(in, out []float32, channels, head, tail, overlap int) {
	copy(out[:head*channels], in[:head*channels])
	for i := 0; i < overlap; i++ {
		fadeOut := 1 - float32(i)/float32(overlap)
		for c := 0; c < channels; c++ {
			a := in[(head+i)*channels+c]
			b := in[(tail+i)*channels+c]
			out[(head+i)*channels+c] = a*fadeOut + b*(1-fadeOut)
		}
	}
	copy(out[(head+overlap)*channels:], in[(tail+overlap)*channels:])
}

// passThrough copies as much of in as fits into out and reports no stretch.
func passThrough(in, out []float32) Result {
	n := copy(out, in)
	return Result{Status: NoStretch, UsedSamples: n}
}

func normalizeChannels(channels int) int {
	if channels < 1 {
		return 1
	}
	return channels
}
