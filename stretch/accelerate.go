package stretch

const (
	accelerateLowEnergyThreshold = 0.001
	accelerateFactor             = 0.2
	fastAccelerateFactor         = 0.4
	// fastMinimumFactor is the removal fast mode forces when no quiet region
	// is long enough.
	fastMinimumFactor = 0.25
)

// Accelerate removes audio to shorten playout.
type Accelerate struct {
	sampleRate int
	channels   int
	overlap    int
}

// NewAccelerate returns an Accelerate for interleaved audio with the given
// format.
func NewAccelerate(sampleRate, channels int) *Accelerate {
	return &Accelerate{
		sampleRate: sampleRate,
		channels:   normalizeChannels(channels),
		overlap:    OverlapLength(sampleRate),
	}
}

// Overlap returns the crossfade length in frames.
func (a *Accelerate) Overlap() int {
	return a.overlap
}

// Process fills output from input, removing up to a fifth of the output
// length (two fifths in fast mode) from the longest quiet region. In fast
// mode at least a quarter is removed even from audible audio. input must be
// longer than output.
func (a *Accelerate) Process(input, output []float32, fast bool) Result {
	ch := a.channels
	inFrames, outFrames := len(input)/ch, len(output)/ch
	if inFrames <= outFrames {
		return passThrough(input, output)
	}
	if outFrames < 2*a.overlap || inFrames-outFrames < a.overlap {
		return passThrough(input, output)
	}

	factor := accelerateFactor
	if fast {
		factor = fastAccelerateFactor
	}
	maxRemove := a.maxRemove(inFrames, outFrames, factor)
	mono := Downmix(input[:(outFrames+maxRemove)*ch], ch)

	pos, remove := a.findLowEnergy(mono, outFrames, maxRemove)
	status := SuccessLowEnergy
	if !fast {
		if remove == 0 {
			return passThrough(input, output)
		}
	} else if minRemove := a.maxRemove(inFrames, outFrames, fastMinimumFactor); remove < minRemove {
		status = Success
		remove = minRemove
		pos = LowestEnergyPosition(mono[:outFrames+remove], remove, a.overlap/2, a.overlap)
	}

	used := (outFrames + remove) * ch
	splice(input[:used], output[:outFrames*ch], ch, pos, pos+remove, a.overlap)
	return Result{Status: status, UsedSamples: used, LengthChange: remove}
}

func (a *Accelerate) maxRemove(inFrames, outFrames int, factor float64) int {
	n := int(float64(outFrames) * factor)
	n = min(n, outFrames/2, inFrames-outFrames)
	return max(n, a.overlap)
}

func (a *Accelerate) findLowEnergy(mono []float32, outFrames, maxRemove int) (int, int) {
	removable := func(length int) int {
		return min(max(length-a.overlap, 0), maxRemove)
	}
	pos, length := LongestLowEnergyRegion(mono, accelerateLowEnergyThreshold, func(i, l int) bool {
		return i+removable(l) <= outFrames
	})
	remove := removable(length)
	if remove < a.overlap {
		return 0, 0
	}
	return pos, remove
}
