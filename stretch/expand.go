package stretch

import "math"

const (
	expandHistoryMs = 60
	// expandDecayPer10Ms is the gain applied to the synthetic signal for
	// every 10 ms of continuous concealment.
	expandDecayPer10Ms   = 0.85
	expandMinPitchMs     = 2.5
	expandMaxPitchMs     = 20
	expandFallbackMs     = 20
	expandMinCorrelation = 0.3
	expandSilentGain     = 0.01
	pitchAnalysisRate    = 8000
)

// Expand conceals missing audio by repeating the last pitch period of the
// played signal with decaying gain.
type Expand struct {
	sampleRate int
	channels   int
	overlap    int
	capacity   int

	history []float32
	decay   float32

	active  bool
	period  int
	phase   int
	gain    float32
	base    int
	emitted int
}

// NewExpand returns an Expand for interleaved audio with the given format.
func NewExpand(sampleRate, channels int) *Expand {
	channels = normalizeChannels(channels)
	framesPer10Ms := max(float64(sampleRate)/100, 1)
	return &Expand{
		sampleRate: sampleRate,
		channels:   channels,
		overlap:    OverlapLength(sampleRate),
		capacity:   sampleRate * expandHistoryMs / 1000 * channels,
		decay:      float32(math.Pow(expandDecayPer10Ms, 1/framesPer10Ms)),
		gain:       1,
	}
}

// Remember appends played audio to the history the next concealment run is
// synthesized from. It is ignored while a concealment run is active.
func (e *Expand) Remember(samples []float32) {
	if e.active || len(samples) == 0 {
		return
	}
	if len(samples) >= e.capacity {
		e.history = append(e.history[:0], samples[len(samples)-e.capacity:]...)
		return
	}
	if drop := len(e.history) + len(samples) - e.capacity; drop > 0 {
		e.history = append(e.history[:0], e.history[drop:]...)
	}
	e.history = append(e.history, samples...)
}

// Process fills out with concealment audio and returns the number of
// samples written, which is always len(out) rounded down to whole frames.
// Without history the output is silence.
func (e *Expand) Process(out []float32) int {
	ch := e.channels
	frames := len(out) / ch
	histFrames := len(e.history) / ch
	if !e.active {
		e.start(histFrames)
	}
	if histFrames == 0 || e.period == 0 {
		clear(out[:frames*ch])
		e.gain *= float32(math.Pow(float64(e.decay), float64(frames)))
		e.emitted += frames
		return frames * ch
	}

	for f := 0; f < frames; f++ {
		src := (e.base + e.phase) * ch
		for c := 0; c < ch; c++ {
			out[f*ch+c] = e.history[src+c] * e.gain
		}
		e.phase++
		if e.phase == e.period {
			e.phase = 0
		}
		e.gain *= e.decay
	}
	e.emitted += frames
	return frames * ch
}

// Finish crossfades the start of real audio in place with the continuation
// of the concealment signal and ends the concealment run. It reports whether
// a run was active.
func (e *Expand) Finish(pcm []float32) bool {
	if !e.active {
		return false
	}
	ch := e.channels
	n := min(e.overlap, len(pcm)/ch)
	if n > 0 && e.period > 0 && len(e.history) > 0 {
		synth := make([]float32, n*ch)
		e.Process(synth)
		for i := 0; i < n; i++ {
			fadeIn := float32(i+1) / float32(n+1)
			for c := 0; c < ch; c++ {
				k := i*ch + c
				pcm[k] = synth[k]*(1-fadeIn) + pcm[k]*fadeIn
			}
		}
	}
	e.stop()
	return true
}

// Active reports whether a concealment run is in progress.
func (e *Expand) Active() bool {
	return e.active
}

// Gain returns the current synthesis gain, 1 outside a concealment run.
func (e *Expand) Gain() float32 {
	return e.gain
}

// Exhausted reports whether the concealment signal has decayed to silence.
func (e *Expand) Exhausted() bool {
	return e.active && e.gain < expandSilentGain
}

// PitchPeriod returns the repetition period in frames of the active run.
func (e *Expand) PitchPeriod() int {
	return e.period
}

// EmittedFrames returns the number of frames synthesized in the active run.
func (e *Expand) EmittedFrames() int {
	return e.emitted
}

// Reset drops the history and ends any concealment run.
func (e *Expand) Reset() {
	e.history = e.history[:0]
	e.stop()
}

func (e *Expand) start(histFrames int) {
	e.active = true
	e.gain = 1
	e.phase = 0
	e.emitted = 0
	if histFrames == 0 {
		e.period = 0
		return
	}
	e.period = min(e.estimatePitch(), histFrames)
	e.base = histFrames - e.period
}

func (e *Expand) stop() {
	e.active = false
	e.gain = 1
	e.phase = 0
	e.period = 0
	e.emitted = 0
}

// estimatePitch returns the pitch period in frames of the history, searched
// by normalized autocorrelation on a decimated downmix.
func (e *Expand) estimatePitch() int {
	step := max(1, e.sampleRate/pitchAnalysisRate)
	rate := float64(e.sampleRate) / float64(step)
	fallback := max(1, e.sampleRate*expandFallbackMs/1000)

	mono := Downmix(e.history, e.channels)
	x := make([]float32, 0, len(mono)/step+1)
	for i := 0; i < len(mono); i += step {
		x = append(x, mono[i])
	}

	minLag := int(rate * expandMinPitchMs / 1000)
	maxLag := int(rate * expandMaxPitchMs / 1000)
	window := maxLag
	if minLag < 1 || len(x) < window+maxLag {
		return fallback
	}

	seg := x[len(x)-window:]
	bestLag, bestCorr := 0, expandMinCorrelation
	for lag := minLag; lag <= maxLag; lag++ {
		ref := x[len(x)-window-lag : len(x)-lag]
		var xy, xx, yy float64
		for i := range seg {
			a, b := float64(seg[i]), float64(ref[i])
			xy += a * b
			xx += a * a
			yy += b * b
		}
		if xx == 0 || yy == 0 {
			continue
		}
		if c := xy / math.Sqrt(xx*yy); c > bestCorr {
			bestCorr = c
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return fallback
	}
	return bestLag * step
}
