package stretch

const (
	preemptiveLowEnergyThreshold = 0.01
	// maxExpansionRate caps the added audio at a quarter of the consumed
	// input, which is a fifth of the output.
	maxExpansionRate = 0.25
)

// PreemptiveExpand repeats a pitch-aligned segment to lengthen playout.
type PreemptiveExpand struct {
	sampleRate int
	channels   int
	overlap    int
}

// NewPreemptiveExpand returns a PreemptiveExpand for interleaved audio with
// the given format.
func NewPreemptiveExpand(sampleRate, channels int) *PreemptiveExpand {
	return &PreemptiveExpand{
		sampleRate: sampleRate,
		channels:   normalizeChannels(channels),
		overlap:    OverlapLength(sampleRate),
	}
}

// Overlap returns the crossfade length in frames.
func (p *PreemptiveExpand) Overlap() int {
	return p.overlap
}

// MinOutputFrames returns the smallest output window, in frames per
// channel, for which Process can add audio.
func (p *PreemptiveExpand) MinOutputFrames() int {
	return 5 * (p.overlap + 1)
}

// Process fills output from fewer input samples by repeating the segment
// that best matches its predecessor. input must hold at least len(output)
// samples. The fast flag is accepted for symmetry with Accelerate and is
// ignored.
func (p *PreemptiveExpand) Process(input, output []float32, _ bool) Result {
	ch := p.channels
	inFrames, outFrames := len(input)/ch, len(output)/ch
	if inFrames < outFrames {
		return passThrough(input, output)
	}
	maxAdd := int(float64(outFrames) / (1 + 1/maxExpansionRate))
	if maxAdd <= p.overlap {
		return passThrough(input, output)
	}

	mono := Downmix(input[:outFrames*ch], ch)
	status := Success
	if Energy(mono) < preemptiveLowEnergyThreshold {
		status = SuccessLowEnergy
	}

	bestCorr := float32(-1)
	bestPos, bestAdd := 0, 0
	for add := p.overlap; add < maxAdd; add++ {
		corrLen := outFrames - 2*add - p.overlap
		pos, corr := BestNormalizedCorrelation(mono[add:add+corrLen], mono[:corrLen], p.overlap)
		if corr > bestCorr {
			bestCorr = corr
			bestPos = add + pos
			bestAdd = add
		}
	}

	used := (outFrames - bestAdd) * ch
	splice(input[:used], output[:outFrames*ch], ch, bestPos, bestPos-bestAdd, p.overlap)
	return Result{Status: status, UsedSamples: used, LengthChange: bestAdd}
}
