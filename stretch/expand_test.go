package stretch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandWithoutHistoryIsSilent(t *testing.T) {
	e := NewExpand(16000, 1)
	out := make([]float32, 160)
	for i := range out {
		out[i] = 1
	}

	n := e.Process(out)

	assert.Equal(t, 160, n)
	assert.Equal(t, make([]float32, 160), out)
	assert.True(t, e.Active())
}

func TestExpandRepeatsPitchPeriod(t *testing.T) {
	e := NewExpand(8000, 1)
	// 400 Hz at 8 kHz repeats every 20 samples.
	e.Remember(sine(480, 1, 400, 0.5, 8000))
	out := make([]float32, 80)

	e.Process(out)

	require.NotZero(t, e.PitchPeriod())
	assert.Zero(t, e.PitchPeriod()%20)
	for k := 0; k < 20; k++ {
		want := 0.5 * math.Sin(2*math.Pi*400*float64(k)/8000)
		assert.InDelta(t, want, out[k], 0.05)
	}
}

func TestExpandGainDecays(t *testing.T) {
	e := NewExpand(8000, 1)
	e.Remember(sine(480, 1, 400, 0.5, 8000))
	tenMs := make([]float32, 80)

	for i := 0; i < 10; i++ {
		e.Process(tenMs)
	}
	assert.InDelta(t, math.Pow(0.85, 10), e.Gain(), 0.01)
	assert.False(t, e.Exhausted())
	assert.Equal(t, 800, e.EmittedFrames())

	for i := 0; i < 20; i++ {
		e.Process(tenMs)
	}
	assert.True(t, e.Exhausted())
}

func TestExpandFinishCrossfadesIntoRealAudio(t *testing.T) {
	e := NewExpand(8000, 1)
	e.Remember(sine(480, 1, 400, 0.5, 8000))
	e.Process(make([]float32, 80))

	pcm := make([]float32, 80)
	for i := range pcm {
		pcm[i] = 1
	}

	assert.True(t, e.Finish(pcm))
	assert.False(t, e.Active())
	assert.Equal(t, float32(1), e.Gain())
	overlap := OverlapLength(8000)
	for _, v := range pcm[overlap:] {
		assert.Equal(t, float32(1), v)
	}
	assert.NotEqual(t, float32(1), pcm[0])

	assert.False(t, e.Finish(pcm))
}

func TestExpandRememberKeepsRecentHistory(t *testing.T) {
	e := NewExpand(8000, 2)
	capacity := 8000 * 60 / 1000 * 2

	e.Remember(make([]float32, 600))
	e.Remember(make([]float32, 600))
	assert.Len(t, e.history, capacity)

	e.Remember(make([]float32, 2000))
	assert.Len(t, e.history, capacity)

	e.Process(make([]float32, 20))
	before := len(e.history)
	e.Remember(make([]float32, 40))
	assert.Equal(t, before, len(e.history))
}

func TestExpandStereoOutputLength(t *testing.T) {
	e := NewExpand(48000, 2)
	e.Remember(sine(2880, 2, 200, 0.3, 48000))
	out := make([]float32, 961)

	n := e.Process(out)

	assert.Equal(t, 960, n)
	assert.Zero(t, e.PitchPeriod()%6)
}

func TestExpandReset(t *testing.T) {
	e := NewExpand(8000, 1)
	e.Remember(sine(480, 1, 400, 0.5, 8000))
	e.Process(make([]float32, 80))

	e.Reset()

	assert.False(t, e.Active())
	assert.Empty(t, e.history)
	assert.Equal(t, float32(1), e.Gain())
}
