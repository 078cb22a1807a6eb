package neteq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimits(t *testing.T) {
	custom := Margins{DecelerationOffsetMs: 40, AccelerationMarginMs: 50, FastAccelerateFactor: 2}

	tests := []struct {
		name     string
		target   uint32
		margins  Margins
		wantLow  uint32
		wantHigh uint32
	}{
		{name: "zero target", target: 0, margins: DefaultMargins(), wantLow: 0, wantHigh: 20},
		{name: "short target keeps margin", target: 20, margins: DefaultMargins(), wantLow: 15, wantHigh: 35},
		{name: "medium target", target: 60, margins: DefaultMargins(), wantLow: 45, wantHigh: 65},
		{name: "at offset", target: 85, margins: DefaultMargins(), wantLow: 63, wantHigh: 85},
		{name: "long target", target: 400, margins: DefaultMargins(), wantLow: 315, wantHigh: 400},
		{name: "offset dominates", target: 200, margins: DefaultMargins(), wantLow: 150, wantHigh: 200},
		{name: "custom short target", target: 20, margins: custom, wantLow: 15, wantHigh: 65},
		{name: "custom offset", target: 200, margins: custom, wantLow: 160, wantHigh: 210},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high := Limits(tt.target, tt.margins)
			assert.Equal(t, tt.wantLow, low)
			assert.Equal(t, tt.wantHigh, high)
			assert.GreaterOrEqual(t, high, low+tt.margins.AccelerationMarginMs)
		})
	}
}

func TestDecide(t *testing.T) {
	// Target 60 ms at 16 kHz: low 720 samples, high 1040 samples.
	base := DecisionInput{PacketReady: true, TargetDelayMs: 60, SampleRate: 16000}

	tests := []struct {
		name   string
		modify func(*DecisionInput)
		want   Operation
	}{
		{name: "nothing ready", modify: func(in *DecisionInput) { in.PacketReady = false; in.LevelSamples = 5000 }, want: Expand},
		{name: "within limits", modify: func(in *DecisionInput) { in.LevelSamples = 900 }, want: Normal},
		{name: "at high limit", modify: func(in *DecisionInput) { in.LevelSamples = 1040 }, want: Normal},
		{name: "above high limit", modify: func(in *DecisionInput) { in.LevelSamples = 1041 }, want: Accelerate},
		{name: "at low limit", modify: func(in *DecisionInput) { in.LevelSamples = 720 }, want: Normal},
		{name: "below low limit", modify: func(in *DecisionInput) { in.LevelSamples = 719 }, want: PreemptiveExpand},
		{name: "far above without fast mode", modify: func(in *DecisionInput) { in.LevelSamples = 10000 }, want: Accelerate},
		{
			name:   "far above with fast mode",
			modify: func(in *DecisionInput) { in.LevelSamples = 4161; in.EnableFastAccelerate = true },
			want:   FastAccelerate,
		},
		{
			name:   "exactly four times high",
			modify: func(in *DecisionInput) { in.LevelSamples = 4160; in.EnableFastAccelerate = true },
			want:   Accelerate,
		},
		{
			name:   "stretching disabled",
			modify: func(in *DecisionInput) { in.LevelSamples = 10000; in.NoTimeStretching = true },
			want:   Normal,
		},
		{
			name:   "stretching disabled still conceals",
			modify: func(in *DecisionInput) { in.PacketReady = false; in.NoTimeStretching = true },
			want:   Expand,
		},
		{
			// Target 200 ms with offset 40 and margin 50: low 2560, high 3360.
			name: "custom margins widen the normal band",
			modify: func(in *DecisionInput) {
				in.TargetDelayMs = 200
				in.Margins = Margins{DecelerationOffsetMs: 40, AccelerationMarginMs: 50, FastAccelerateFactor: 2}
				in.LevelSamples = 3300
			},
			want: Normal,
		},
		{
			name: "custom margins raise low limit",
			modify: func(in *DecisionInput) {
				in.TargetDelayMs = 200
				in.Margins = Margins{DecelerationOffsetMs: 40, AccelerationMarginMs: 50, FastAccelerateFactor: 2}
				in.LevelSamples = 2559
			},
			want: PreemptiveExpand,
		},
		{
			name: "custom fast factor",
			modify: func(in *DecisionInput) {
				in.Margins = Margins{DecelerationOffsetMs: 85, AccelerationMarginMs: 20, FastAccelerateFactor: 2}
				in.EnableFastAccelerate = true
				in.LevelSamples = 2081
			},
			want: FastAccelerate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.modify(&in)
			assert.Equal(t, tt.want, Decide(in))
		})
	}
}

func TestOperationString(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{Normal, "Normal"},
		{Accelerate, "Accelerate"},
		{FastAccelerate, "FastAccelerate"},
		{PreemptiveExpand, "PreemptiveExpand"},
		{Expand, "Expand"},
		{Operation(42), "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.op.String())
	}
}

func TestDwellSuppressesFlips(t *testing.T) {
	tests := []struct {
		name      string
		minFrames int
		ops       []Operation
		want      []Operation
	}{
		{
			name:      "immediate flip is held",
			minFrames: 3,
			ops:       []Operation{Accelerate, PreemptiveExpand, PreemptiveExpand, PreemptiveExpand},
			want:      []Operation{Accelerate, Normal, Normal, PreemptiveExpand},
		},
		{
			name:      "same direction passes",
			minFrames: 3,
			ops:       []Operation{Accelerate, FastAccelerate, Accelerate},
			want:      []Operation{Accelerate, FastAccelerate, Accelerate},
		},
		{
			name:      "normal frames count towards dwell",
			minFrames: 3,
			ops:       []Operation{PreemptiveExpand, Normal, Expand, Accelerate},
			want:      []Operation{PreemptiveExpand, Normal, Expand, Accelerate},
		},
		{
			name:      "disabled",
			minFrames: 0,
			ops:       []Operation{Accelerate, PreemptiveExpand, Accelerate},
			want:      []Operation{Accelerate, PreemptiveExpand, Accelerate},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDwell(tt.minFrames)
			got := make([]Operation, 0, len(tt.ops))
			for _, op := range tt.ops {
				got = append(got, d.apply(op))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDwellReset(t *testing.T) {
	d := newDwell(3)
	assert.Equal(t, Accelerate, d.apply(Accelerate))
	d.reset()
	assert.Equal(t, PreemptiveExpand, d.apply(PreemptiveExpand))
}
