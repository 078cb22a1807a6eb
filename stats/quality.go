package stats

import "fmt"

// QualityLevel is a coarse assessment of playout quality.
type QualityLevel int

const (
	// QualityExcellent indicates clean playout at low delay
	QualityExcellent QualityLevel = iota
	// QualityGood indicates occasional concealment or moderate delay
	QualityGood
	// QualityFair indicates audible concealment or high delay
	QualityFair
	// QualityPoor indicates frequent concealment
	QualityPoor
	// QualityUnacceptable indicates mostly synthesized or muted output
	QualityUnacceptable
)

// String returns the string representation of QualityLevel.
func (q QualityLevel) String() string {
	switch q {
	case QualityExcellent:
		return "Excellent"
	case QualityGood:
		return "Good"
	case QualityFair:
		return "Fair"
	case QualityPoor:
		return "Poor"
	case QualityUnacceptable:
		return "Unacceptable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(q))
	}
}

// QualityThresholds categorize concealment (percent of output) and target delay.
type QualityThresholds struct {
	ExcellentConcealment float64 // < 1.0%
	GoodConcealment      float64 // < 3.0%
	FairConcealment      float64 // < 8.0%
	PoorConcealment      float64 // < 15.0%

	ExcellentDelayMs uint32
	GoodDelayMs      uint32
	FairDelayMs      uint32
	PoorDelayMs      uint32

	// SilentConcealment above this percent of output is unacceptable regardless
	SilentConcealment float64
}

// DefaultQualityThresholds returns thresholds tuned for conversational audio.
func DefaultQualityThresholds() *QualityThresholds {
	return &QualityThresholds{
		ExcellentConcealment: 1.0,
		GoodConcealment:      3.0,
		FairConcealment:      8.0,
		PoorConcealment:      15.0,
		ExcellentDelayMs:     60,
		GoodDelayMs:          120,
		FairDelayMs:          250,
		PoorDelayMs:          400,
		SilentConcealment:    20.0,
	}
}

// Assess categorizes a snapshot. Concealment is the primary indicator and the
// target delay refines an otherwise excellent result. A nil thresholds value
// uses the defaults.
func Assess(s Snapshot, thresholds *QualityThresholds) QualityLevel {
	if thresholds == nil {
		thresholds = DefaultQualityThresholds()
	}

	if emitted := s.Lifetime.JitterBufferEmittedCount; emitted > 0 {
		silent := float64(s.Lifetime.SilentConcealedSamples) / float64(emitted) * 100
		if silent > thresholds.SilentConcealment {
			return QualityUnacceptable
		}
	}

	concealment := Q14ToFloat(s.Network.ExpandRate) * 100
	if q := assessConcealment(concealment, s.TargetDelayMs, thresholds); q != QualityExcellent {
		return q
	}
	return assessDelay(s.TargetDelayMs, thresholds)
}

func assessConcealment(percent float64, delayMs uint32, t *QualityThresholds) QualityLevel {
	switch {
	case percent >= t.PoorConcealment:
		return QualityUnacceptable
	case percent >= t.FairConcealment:
		return QualityPoor
	case percent >= t.GoodConcealment:
		return QualityFair
	case percent >= t.ExcellentConcealment:
		if delayMs >= t.GoodDelayMs {
			return QualityFair
		}
		return QualityGood
	default:
		return QualityExcellent
	}
}

func assessDelay(delayMs uint32, t *QualityThresholds) QualityLevel {
	switch {
	case delayMs >= t.PoorDelayMs:
		return QualityPoor
	case delayMs >= t.FairDelayMs:
		return QualityFair
	case delayMs >= t.ExcellentDelayMs:
		return QualityGood
	default:
		return QualityExcellent
	}
}
