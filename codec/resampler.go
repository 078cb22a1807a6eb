package codec

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts interleaved float32 audio between sample rates. It is
// stateful: feed consecutive chunks of one stream.
type Resampler struct {
	from      uint32
	to        uint32
	channels  int
	resampler resampling.Resampler
	input     []float64
}

// NewResampler returns a Resampler from one rate to another. Equal rates
// produce a pass-through Resampler.
func NewResampler(from, to uint32, channels uint8) (*Resampler, error) {
	if from == 0 || to == 0 || channels == 0 {
		return nil, fmt.Errorf("%w: %d Hz -> %d Hz x%d", ErrInvalidFormat, from, to, channels)
	}
	r := &Resampler{from: from, to: to, channels: int(channels)}
	if from == to {
		return r, nil
	}

	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   int(channels),
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}
	r.resampler = rs
	return r, nil
}

// Process converts one chunk. Output length follows the rate ratio but may
// lag by the filter delay.
func (r *Resampler) Process(pcm []float32) ([]float32, error) {
	if r.resampler == nil {
		return pcm, nil
	}

	r.input = r.input[:0]
	for _, s := range pcm {
		r.input = append(r.input, float64(s))
	}
	out, err := r.resampler.Process(r.input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}

	// Keep whole frames only.
	n := len(out) / r.channels * r.channels
	res := make([]float32, n)
	for i := range res {
		res[i] = float32(out[i])
	}
	return res, nil
}

// Rates returns the input and output sample rates.
func (r *Resampler) Rates() (uint32, uint32) {
	return r.from, r.to
}

// PassThrough reports whether no conversion happens.
func (r *Resampler) PassThrough() bool {
	return r.resampler == nil
}
