package neteq

import "math"

const (
	defaultLevelFactor = 253.0 / 256.0
	// jumpLevelFactor is used when the raw level jumps far from the filtered
	// level so the filter catches up within a few frames.
	jumpLevelFactor = 0.7
)

// BufferLevelFilter smooths the raw buffer level (in samples per channel)
// with a first order low-pass whose coefficient depends on the target delay.
type BufferLevelFilter struct {
	filtered    float64
	levelFactor float64
	sampleRate  uint32
}

// NewBufferLevelFilter returns a filter for the given sample rate.
func NewBufferLevelFilter(sampleRate uint32) *BufferLevelFilter {
	return &BufferLevelFilter{
		levelFactor: defaultLevelFactor,
		sampleRate:  sampleRate,
	}
}

// Update feeds the raw level. timeStretched is the number of samples the
// previous frame removed (positive) or added (negative) by time stretching;
// it is applied to the filtered value immediately.
func (f *BufferLevelFilter) Update(levelSamples, timeStretched int) {
	level := float64(levelSamples)
	jump := math.Abs(level - f.filtered)
	var threshold float64
	if f.filtered < 100 {
		threshold = max(level*0.75, 3000)
	} else {
		threshold = max(f.filtered*3, 1500)
	}

	factor := f.levelFactor
	if jump > threshold {
		factor = jumpLevelFactor
	}
	filtered := factor*f.filtered + (1-factor)*level
	f.filtered = max(filtered-float64(timeStretched), 0)
}

// SetFilteredLevel overrides the filtered value.
func (f *BufferLevelFilter) SetFilteredLevel(levelSamples int) {
	f.filtered = float64(levelSamples)
}

// SetTargetLevel picks the smoothing coefficient for a target delay: low
// targets react faster.
func (f *BufferLevelFilter) SetTargetLevel(targetMs uint32) {
	switch {
	case targetMs <= 20:
		f.levelFactor = 251.0 / 256.0
	case targetMs <= 60:
		f.levelFactor = 252.0 / 256.0
	case targetMs <= 140:
		f.levelFactor = 253.0 / 256.0
	default:
		f.levelFactor = 254.0 / 256.0
	}
}

// Level returns the filtered level in samples per channel.
func (f *BufferLevelFilter) Level() int {
	return int(max(f.filtered, 0))
}

// LevelMs returns the filtered level in milliseconds.
func (f *BufferLevelFilter) LevelMs() uint32 {
	if f.sampleRate == 0 {
		return 0
	}
	return uint32(uint64(f.Level()) * 1000 / uint64(f.sampleRate))
}

// Coefficient returns the current smoothing coefficient.
func (f *BufferLevelFilter) Coefficient() float64 {
	return f.levelFactor
}

// Reset clears the filtered value and restores the default coefficient.
func (f *BufferLevelFilter) Reset() {
	f.filtered = 0
	f.levelFactor = defaultLevelFactor
}
