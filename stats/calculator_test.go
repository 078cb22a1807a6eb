package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculatorCounters(t *testing.T) {
	c := NewCalculator()

	c.UpdateBufferSize(100, 120)
	n := c.Network()
	assert.Equal(t, uint16(100), n.CurrentBufferSizeMs)
	assert.Equal(t, uint16(120), n.PreferredBufferSizeMs)

	c.PacketReceived(160)
	c.WaitingTime(50)
	assert.Equal(t, uint64(1), c.Lifetime().JitterBufferPacketsReceived)
	assert.Equal(t, uint64(160), c.Lifetime().TotalSamplesReceived)
	assert.Equal(t, 50, c.Network().MeanWaitingTimeMs)

	c.Concealed(160, false, true)
	c.Concealed(160, false, false)
	assert.Equal(t, uint64(1), c.Lifetime().ConcealmentEvents)
	assert.Equal(t, uint64(320), c.Lifetime().ConcealedSamples)

	c.Accelerated(80)
	assert.Equal(t, uint64(80), c.Lifetime().RemovedSamplesForAcceleration)

	c.BufferFlush()
	c.PacketDiscarded(true)
	c.PacketDiscarded(false)
	c.PacketDuplicate()
	lt := c.Lifetime()
	assert.Equal(t, uint64(1), lt.BufferFlushes)
	assert.Equal(t, uint64(1), lt.LatePacketsDiscarded)
	assert.Equal(t, uint64(2), lt.PacketsDiscarded)
	assert.Equal(t, uint64(1), lt.DuplicatePackets)
}

func TestWaitingTimeStatistics(t *testing.T) {
	c := NewCalculator()
	for _, ms := range []int{10, 20, 30, 15, 25} {
		c.WaitingTime(ms)
	}

	n := c.Network()
	assert.Equal(t, 10, n.MinWaitingTimeMs)
	assert.Equal(t, 30, n.MaxWaitingTimeMs)
	assert.Equal(t, 20, n.MeanWaitingTimeMs)
	assert.Equal(t, 20, n.MedianWaitingTimeMs)
}

func TestWaitingTimeWindowIsBounded(t *testing.T) {
	c := NewCalculator()
	for i := 0; i < 150; i++ {
		c.WaitingTime(1000)
	}
	for i := 0; i < waitingTimeWindow; i++ {
		c.WaitingTime(10)
	}
	n := c.Network()
	assert.Equal(t, 10, n.MaxWaitingTimeMs)
	assert.Equal(t, waitingTimeWindow, c.waitingTimes.Len())
}

func TestRatesAreFractionsOfOutput(t *testing.T) {
	c := NewCalculator()

	for i := 0; i < 10; i++ {
		c.FrameEmitted(160, "Normal", 40, 40)
	}
	c.Concealed(160, false, true)
	c.FrameEmitted(160, "Expand", 0, 40)
	c.Concealed(160, false, false)
	c.FrameEmitted(160, "Expand", 0, 40)

	n := c.Network()
	expected := Q14FromFloat(320.0 / 1920.0)
	assert.Equal(t, expected, n.ExpandRate)
	assert.InDelta(t, 166.7, Q14ToPerMille(n.ExpandRate), 1.0)
	assert.Equal(t, n.ExpandRate, n.SpeechExpandRate)
	assert.Zero(t, n.AccelerateRate)

	snap := c.Snapshot()
	assert.Equal(t, uint64(10), snap.OperationCount("Normal"))
	assert.Equal(t, uint64(2), snap.OperationCount("Expand"))
	assert.Equal(t, uint64(12), snap.Lifetime.EmittedFrames)
}

func TestResetRatesKeepsLifetime(t *testing.T) {
	c := NewCalculator()
	c.FrameEmitted(160, "Accelerate", 100, 40)
	c.Accelerated(40)
	assert.NotZero(t, c.Network().AccelerateRate)

	c.ResetRates()
	assert.Zero(t, c.Network().AccelerateRate)
	assert.Equal(t, uint64(40), c.Lifetime().RemovedSamplesForAcceleration)

	c.Reset()
	assert.Zero(t, c.Lifetime().RemovedSamplesForAcceleration)
	assert.Empty(t, c.Snapshot().Operations)
}

func TestReorderStatistics(t *testing.T) {
	c := NewCalculator()
	for i := 0; i < 9; i++ {
		c.PacketInOrder()
	}
	c.PacketReordered(3)
	c.PacketReordered(1)

	n := c.Network()
	assert.Equal(t, uint32(2), n.ReorderedPackets)
	assert.Equal(t, uint32(11), n.TotalPacketsReceived)
	assert.Equal(t, uint16(3), n.MaxReorderDistance)
	assert.Equal(t, uint16(1818), n.ReorderRatePermyriad)
}

func TestSnapshotIsDetached(t *testing.T) {
	c := NewCalculator()
	c.FrameEmitted(160, "Normal", 0, 0)
	snap := c.Snapshot()
	snap.Operations["Normal"] = 99
	assert.Equal(t, uint64(1), c.Snapshot().OperationCount("Normal"))
}

func TestQ14Conversions(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  uint16
	}{
		{name: "zero", ratio: 0, want: 0},
		{name: "quarter", ratio: 0.25, want: 4096},
		{name: "half", ratio: 0.5, want: 8192},
		{name: "one", ratio: 1, want: 16384},
		{name: "clamped high", ratio: 2, want: 16384},
		{name: "clamped low", ratio: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Q14FromFloat(tt.ratio))
		})
	}

	assert.Equal(t, 0.25, Q14ToFloat(4096))
	assert.InDelta(t, 500.0, Q14ToPerMille(8192), 0.01)
	assert.Equal(t, uint16(8192), Q14FromPerMille(500))
}
