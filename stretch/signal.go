package stretch

import "math"

// OverlapLength returns the crossfade length in sample frames for a sample
// rate: 3 ms, but at least 32 frames.
func OverlapLength(sampleRate int) int {
	return max(int(float32(sampleRate)*0.003), 32)
}

// BestNormalizedCorrelation slides a window of n samples over a and b and
// returns the window start with the highest normalized correlation
// sum(a*b) / sum(max(a², b²)). A window with zero energy scores 1.
// a and b must have the same length, at least n.
func BestNormalizedCorrelation(a, b []float32, n int) (int, float32) {
	var corr, energy float64
	bestPos := 0
	bestCorr := -1.0
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		corr += x * y
		energy += max(x*x, y*y)
		if i+1 < n {
			continue
		}

		start := i + 1 - n
		normalized := 1.0
		if energy > 0 {
			normalized = corr / energy
		}
		if normalized >= 1 {
			return start, 1
		}
		if normalized > bestCorr {
			bestCorr = normalized
			bestPos = start
		}

		ox, oy := float64(a[start]), float64(b[start])
		corr -= ox * oy
		energy -= max(ox*ox, oy*oy)
	}
	return bestPos, float32(bestCorr)
}

// Crossfade writes prev to out, replacing its last fadeLen samples with a
// linear fade from prev into the first fadeLen samples of next.
func Crossfade(prev, next []float32, fadeLen int, out []float32) {
	start := len(prev) - fadeLen
	copy(out[:start], prev[:start])
	for i := 0; i < fadeLen; i++ {
		fadeOut := 1 - float32(i)/float32(fadeLen)
		out[start+i] = prev[start+i]*fadeOut + next[i]*(1-fadeOut)
	}
}

// Energy returns the mean square of x.
func Energy(x []float32) float32 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	return float32(sum / float64(len(x)))
}

// RMS returns the root mean square of x.
func RMS(x []float32) float32 {
	return float32(math.Sqrt(float64(Energy(x))))
}

// Downmix averages interleaved channels into a mono signal. Mono input is
// returned as is.
func Downmix(x []float32, channels int) []float32 {
	if channels <= 1 {
		return x
	}
	frames := len(x) / channels
	out := make([]float32, frames)
	for f := 0; f < frames; f++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += x[f*channels+c]
		}
		out[f] = sum / float32(channels)
	}
	return out
}

// LongestLowEnergyRegion returns the longest run [start, start+length) whose
// mean square does not exceed threshold and for which valid returns true.
func LongestLowEnergyRegion(x []float32, threshold float32, valid func(start, length int) bool) (int, int) {
	// rolling[k] is the sum over x[:k] of (x² - threshold); a region is quiet
	// when rolling[j] <= rolling[i].
	rolling := make([]float32, len(x)+1)
	for k, v := range x {
		sq := float32(v * v)
		rolling[k+1] = float32(rolling[k]+sq) - threshold
	}

	stack := make([]int, 0, len(rolling))
	for i, v := range rolling {
		if len(stack) == 0 || v > rolling[stack[len(stack)-1]] {
			stack = append(stack, i)
		}
	}

	bestLen, bestStart := 0, 0
	for j := len(rolling) - 1; j >= 0; j-- {
		for len(stack) > 0 && stack[len(stack)-1] >= j {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			break
		}
		for si := len(stack) - 1; si >= 0; si-- {
			i := stack[si]
			if rolling[j] > rolling[i] {
				break
			}
			if l := j - i; l > bestLen && valid(i, l) {
				bestLen = l
				bestStart = i
				stack = stack[:si]
			}
		}
	}
	return bestStart, bestLen
}

// LowestEnergyPosition scans x in steps and returns the start of the length
// sample window with the lowest mean square, keeping margin samples clear at
// both ends. It falls back to len(x)/3 when no window fits.
func LowestEnergyPosition(x []float32, length, step, margin int) int {
	best := len(x) / 3
	lowest := float32(math.MaxFloat32)
	end := len(x) - (length + margin)
	step = max(step, 1)
	for pos := margin; pos < end; pos += step {
		e := Energy(x[pos:min(pos+length, len(x))])
		if e < lowest {
			lowest = e
			best = pos
		}
	}
	return best
}
