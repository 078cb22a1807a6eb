package neteq

// Operation is the per-frame playout decision.
type Operation uint8

const (
	// Normal plays buffered audio unchanged
	Normal Operation = iota
	// Accelerate removes audio to drain an over-full buffer
	Accelerate
	// FastAccelerate removes more audio when the buffer is far above target
	FastAccelerate
	// PreemptiveExpand lengthens buffered audio to fill a low buffer
	PreemptiveExpand
	// Expand synthesizes audio because nothing is ready to play
	Expand
)

// String returns the string representation of Operation.
func (o Operation) String() string {
	switch o {
	case Normal:
		return "Normal"
	case Accelerate:
		return "Accelerate"
	case FastAccelerate:
		return "FastAccelerate"
	case PreemptiveExpand:
		return "PreemptiveExpand"
	case Expand:
		return "Expand"
	default:
		return "Unknown"
	}
}

// direction is +1 for the accelerate family, -1 for PreemptiveExpand and 0
// for everything else.
func (o Operation) direction() int {
	switch o {
	case Accelerate, FastAccelerate:
		return 1
	case PreemptiveExpand:
		return -1
	default:
		return 0
	}
}

const (
	// DefaultDecelerationOffsetMs bounds how far below the target the low
	// limit sits.
	DefaultDecelerationOffsetMs = 85
	// DefaultAccelerationMarginMs is the minimum gap between the low and high
	// limits.
	DefaultAccelerationMarginMs = 20
	// DefaultFastAccelerateFactor multiplies the high limit for FastAccelerate.
	DefaultFastAccelerateFactor = 4
)

// Margins shape the buffer level limits around the target delay. The low
// side and the high side are configured separately.
type Margins struct {
	DecelerationOffsetMs uint32
	AccelerationMarginMs uint32
	FastAccelerateFactor int
}

// DefaultMargins returns the margins used by NewOptions.
func DefaultMargins() Margins {
	return Margins{
		DecelerationOffsetMs: DefaultDecelerationOffsetMs,
		AccelerationMarginMs: DefaultAccelerationMarginMs,
		FastAccelerateFactor: DefaultFastAccelerateFactor,
	}
}

// DecisionInput is everything Decide looks at.
type DecisionInput struct {
	// PacketReady is true when a full frame of buffered audio or a due
	// packet is available.
	PacketReady bool
	// LevelSamples is the filtered buffer level in samples per channel.
	LevelSamples  int
	TargetDelayMs uint32
	SampleRate    uint32
	// Margins left zero use DefaultMargins.
	Margins Margins

	EnableFastAccelerate bool
	NoTimeStretching     bool
}

// Limits returns the low and high buffer level limits in milliseconds for a
// target delay.
func Limits(targetDelayMs uint32, m Margins) (low, high uint32) {
	low = targetDelayMs * 3 / 4
	if targetDelayMs > m.DecelerationOffsetMs {
		low = max(low, targetDelayMs-m.DecelerationOffsetMs)
	}
	high = max(targetDelayMs, low+m.AccelerationMarginMs)
	return low, high
}

// Decide selects the operation for one frame. It has no side effects.
func Decide(in DecisionInput) Operation {
	if !in.PacketReady {
		return Expand
	}
	if in.NoTimeStretching {
		return Normal
	}

	m := in.Margins
	if m == (Margins{}) {
		m = DefaultMargins()
	}
	lowMs, highMs := Limits(in.TargetDelayMs, m)
	low := msToSamples(lowMs, in.SampleRate)
	high := msToSamples(highMs, in.SampleRate)

	switch {
	case in.EnableFastAccelerate && in.LevelSamples > m.FastAccelerateFactor*high:
		return FastAccelerate
	case in.LevelSamples > high:
		return Accelerate
	case in.LevelSamples < low:
		return PreemptiveExpand
	default:
		return Normal
	}
}

func msToSamples(ms, sampleRate uint32) int {
	return int(uint64(ms) * uint64(sampleRate) / 1000)
}
