package delay

import "math"

const (
	q30One = int64(1) << 30
	q15One = int64(1) << 15
)

// Histogram is a probability mass function over delay buckets with
// exponential forgetting. Bucket masses are Q30 fixed point and always sum to
// exactly 1<<30 after Add. The forget factor is Q15.
type Histogram struct {
	buckets           []int32
	forgetFactor      int32
	baseForgetFactor  int32
	addCount          uint32
	startForgetWeight float64
}

// NewHistogram returns a histogram with numBuckets buckets. startForgetWeight
// enables a faster adaptation ramp at start-up; zero disables it.
func NewHistogram(numBuckets int, baseForgetFactor, startForgetWeight float64) *Histogram {
	base := toQ(baseForgetFactor, 15)
	if base >= q15One {
		base = q15One - 1
	}
	if base < 0 {
		base = 0
	}
	h := &Histogram{
		buckets:           make([]int32, numBuckets),
		baseForgetFactor:  int32(base),
		startForgetWeight: startForgetWeight,
	}
	h.Reset()
	return h
}

// Add registers one observation in bucket value. Out of range values are ignored.
func (h *Histogram) Add(value int) {
	if value < 0 || value >= len(h.buckets) {
		return
	}

	var sum int64
	for i, b := range h.buckets {
		tmp := (int64(b) * int64(h.forgetFactor)) >> 15
		h.buckets[i] = int32(tmp)
		sum += tmp
	}

	add := (q15One - int64(h.forgetFactor)) << 15
	h.buckets[value] = int32(int64(h.buckets[value]) + add)
	sum += add

	// Spread the rounding error so the masses sum to exactly one.
	sum -= q30One
	if sum != 0 {
		sign := int64(1)
		if sum > 0 {
			sign = -1
		}
		for i, b := range h.buckets {
			correction := min(abs64(sum), int64(b)>>4)
			if correction < 0 {
				correction = 0
			}
			h.buckets[i] = int32(int64(b) + sign*correction)
			sum += sign * correction
			if sum == 0 {
				break
			}
		}
	}

	if h.addCount < math.MaxUint32 {
		h.addCount++
	}
	h.updateForgetFactor()
}

func (h *Histogram) updateForgetFactor() {
	if h.startForgetWeight > 0 {
		if h.forgetFactor != h.baseForgetFactor {
			f := math.Round(float64(q15One) * (1 - h.startForgetWeight/float64(h.addCount+1)))
			h.forgetFactor = int32(max(0, min(float64(h.baseForgetFactor), f)))
		}
		return
	}
	h.forgetFactor += (h.baseForgetFactor - h.forgetFactor + 3) >> 2
}

// Quantile returns the smallest bucket index whose cumulative mass reaches p.
func (h *Histogram) Quantile(p float64) int {
	inverse := q30One - toQ(p, 30)
	sum := q30One - int64(h.buckets[0])
	index := 0
	for sum > inverse && index < len(h.buckets)-1 {
		index++
		sum -= int64(h.buckets[index])
	}
	return index
}

// Reset restores an exponentially decaying prior (0.5, 0.25, ...) and
// restarts the forget factor ramp.
func (h *Histogram) Reset() {
	temp := uint32(0x4002)
	for i := range h.buckets {
		temp >>= 1
		h.buckets[i] = int32(temp << 16)
	}
	h.forgetFactor = 0
	h.addCount = 0
}

// NumBuckets returns the bucket count.
func (h *Histogram) NumBuckets() int {
	return len(h.buckets)
}

// Mass returns the Q30 masses, for inspection.
func (h *Histogram) Mass() []int32 {
	out := make([]int32, len(h.buckets))
	copy(out, h.buckets)
	return out
}

func toQ(v float64, q uint) int64 {
	return int64(math.Round(v * float64(int64(1)<<q)))
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
