package neteq

import (
	"math"
	"testing"
	"time"

	"github.com/opd-ai/neteq/clock"
	"github.com/opd-ai/neteq/limits"
	"github.com/opd-ai/neteq/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, configure func(*Options)) (*Engine, *clock.MockTimeProvider) {
	t.Helper()
	clk := clock.NewMockTimeProvider(epoch)
	opts := NewOptions()
	opts.TimeProvider = clk
	if configure != nil {
		configure(opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e, clk
}

// tonePacket returns a 20 ms mono packet whose 440 Hz tone is continuous
// across timestamps.
func tonePacket(t *testing.T, seq, ts, sampleRate uint32) *packet.AudioPacket {
	t.Helper()
	n := int(sampleRate) / 50
	payload := make([]float32, n)
	for i := range payload {
		pos := float64(ts) + float64(i)
		payload[i] = float32(0.3 * math.Sin(2*math.Pi*440*pos/float64(sampleRate)))
	}
	p, err := packet.New(seq, ts, payload, sampleRate, 1)
	require.NoError(t, err)
	return p
}

func silentPacket(t *testing.T, seq, ts, sampleRate uint32) *packet.AudioPacket {
	t.Helper()
	p, err := packet.New(seq, ts, make([]float32, sampleRate/50), sampleRate, 1)
	require.NoError(t, err)
	return p
}

func TestCleanStreamPlaysNormally(t *testing.T) {
	e, clk := newTestEngine(t, func(o *Options) {
		o.SampleRate = 48000
		o.MinDelayMs = 60
	})

	for i, ts := range []uint32{0, 960, 1920} {
		require.NoError(t, e.InsertPacket(tonePacket(t, uint32(i), ts, 48000)))
	}

	for i := 0; i < 5; i++ {
		frame, err := e.GetAudio()
		require.NoError(t, err)
		assert.Len(t, frame.Samples, 480)
		assert.Equal(t, Normal, frame.Operation)
		clk.Advance(10 * time.Millisecond)
	}

	snap := e.GetStatistics()
	assert.Zero(t, snap.Lifetime.ConcealmentEvents)
	assert.Equal(t, uint64(5), snap.OperationCount("Normal"))
	assert.Equal(t, uint32(60), e.TargetDelayMs())
}

func TestCleanStreamWithDefaultDelayDrainsPrimedBuffer(t *testing.T) {
	e, clk := newTestEngine(t, func(o *Options) {
		o.SampleRate = 48000
	})

	for i, ts := range []uint32{0, 960, 1920} {
		require.NoError(t, e.InsertPacket(tonePacket(t, uint32(i), ts, 48000)))
	}

	// 60 ms of primed audio sits above the 20 ms starting target, so the
	// engine accelerates instead of playing Normal.
	for i := 0; i < 5; i++ {
		frame, err := e.GetAudio()
		require.NoError(t, err)
		assert.NotEqual(t, Expand, frame.Operation)
		clk.Advance(10 * time.Millisecond)
	}

	snap := e.GetStatistics()
	assert.Zero(t, snap.Lifetime.ConcealmentEvents)
	assert.Positive(t, snap.OperationCount("Accelerate"))
}

func TestHalfLossKeepsProducingFrames(t *testing.T) {
	e, clk := newTestEngine(t, func(o *Options) {
		o.SampleRate = 48000
	})

	for tick := 0; tick < 50; tick++ {
		if k := tick / 2; tick%2 == 0 && k%2 == 0 {
			require.NoError(t, e.InsertPacket(tonePacket(t, uint32(k), uint32(k)*960, 48000)))
		}
		frame, err := e.GetAudio()
		require.NoError(t, err)
		require.Len(t, frame.Samples, 480)
		clk.Advance(10 * time.Millisecond)
	}

	snap := e.GetStatistics()
	assert.Positive(t, snap.OperationCount("Expand"))
	assert.Positive(t, snap.Lifetime.ConcealmentEvents)
}

func TestFloodRespectsCapacity(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) {
		o.MaxPacketsInBuffer = 100
	})

	for i := uint32(0); i < 500; i++ {
		require.NoError(t, e.InsertPacket(tonePacket(t, i, i*320, 16000)))
		require.LessOrEqual(t, e.PacketCount(), 100)
	}

	snap := e.GetStatistics()
	assert.Positive(t, snap.Lifetime.BufferFlushes)
	assert.Positive(t, snap.Lifetime.PacketsDiscarded)

	for i := 0; i < 10; i++ {
		frame, err := e.GetAudio()
		require.NoError(t, err)
		assert.Len(t, frame.Samples, 160)
	}
}

func TestNoTimeStretchingOnlyNormalAndExpand(t *testing.T) {
	e, clk := newTestEngine(t, func(o *Options) {
		o.ForTestNoTimeStretching = true
		o.EnableFastAccelerate = true
	})

	// Overfill far above any target, then starve.
	for i := uint32(0); i < 40; i++ {
		require.NoError(t, e.InsertPacket(tonePacket(t, i, i*320, 16000)))
	}
	for tick := 0; tick < 120; tick++ {
		frame, err := e.GetAudio()
		require.NoError(t, err)
		assert.Contains(t, []Operation{Normal, Expand}, frame.Operation)
		clk.Advance(10 * time.Millisecond)
	}

	snap := e.GetStatistics()
	assert.Zero(t, snap.OperationCount("Accelerate"))
	assert.Zero(t, snap.OperationCount("FastAccelerate"))
	assert.Zero(t, snap.OperationCount("PreemptiveExpand"))
	assert.Positive(t, snap.OperationCount("Expand"))
}

func TestFrameLengthInEveryState(t *testing.T) {
	tests := []struct {
		name      string
		configure func(*Options)
		prepare   func(t *testing.T, e *Engine)
		wantLen   int
	}{
		{
			name:    "empty",
			prepare: func(*testing.T, *Engine) {},
			wantLen: 160,
		},
		{
			name: "single packet",
			prepare: func(t *testing.T, e *Engine) {
				require.NoError(t, e.InsertPacket(tonePacket(t, 0, 0, 16000)))
			},
			wantLen: 160,
		},
		{
			name: "overfull",
			prepare: func(t *testing.T, e *Engine) {
				for i := uint32(0); i < 60; i++ {
					require.NoError(t, e.InsertPacket(silentPacket(t, i, i*320, 16000)))
				}
			},
			wantLen: 160,
		},
		{
			name: "stereo 48 kHz",
			configure: func(o *Options) {
				o.SampleRate = 48000
				o.Channels = 2
			},
			prepare: func(t *testing.T, e *Engine) {
				p, err := packet.New(0, 0, make([]float32, 1920), 48000, 2)
				require.NoError(t, err)
				require.NoError(t, e.InsertPacket(p))
			},
			wantLen: 960,
		},
		{
			name:      "bypass",
			configure: func(o *Options) { o.BypassMode = true },
			prepare: func(t *testing.T, e *Engine) {
				require.NoError(t, e.InsertPacket(tonePacket(t, 0, 0, 16000)))
			},
			wantLen: 160,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, tt.configure)
			tt.prepare(t, e)
			for i := 0; i < 30; i++ {
				frame, err := e.GetAudio()
				require.NoError(t, err)
				require.Len(t, frame.Samples, tt.wantLen)
				assert.Equal(t, uint32(FrameDurationMs), frame.DurationMs())
			}
		})
	}
}

func TestInsertAndPlayRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) {
		o.ForTestNoTimeStretching = true
	})
	p := tonePacket(t, 0, 0, 16000)
	require.NoError(t, e.InsertPacket(p))

	first, err := e.GetAudio()
	require.NoError(t, err)
	second, err := e.GetAudio()
	require.NoError(t, err)

	assert.Equal(t, p.Payload[:160], first.Samples)
	assert.Equal(t, p.Payload[160:], second.Samples)
	assert.True(t, e.IsEmpty())
}

func TestDuplicateInsertIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	p := tonePacket(t, 7, 2240, 16000)

	require.NoError(t, e.InsertPacket(p))
	require.NoError(t, e.InsertPacket(p))

	assert.Equal(t, 1, e.PacketCount())
	assert.Equal(t, uint64(1), e.GetStatistics().Lifetime.DuplicatePackets)
}

// levelPacket returns a 10 ms mono packet at 16 kHz holding a constant value.
func levelPacket(t *testing.T, seq, ts uint32, value float32) *packet.AudioPacket {
	t.Helper()
	payload := make([]float32, 160)
	for i := range payload {
		payload[i] = value
	}
	p, err := packet.New(seq, ts, payload, 16000, 1)
	require.NoError(t, err)
	return p
}

func TestPlayedPacketIsNotReplayed(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) {
		o.ForTestNoTimeStretching = true
	})
	first := levelPacket(t, 0, 0, 0.5)
	require.NoError(t, e.InsertPacket(first))
	require.NoError(t, e.InsertPacket(levelPacket(t, 1, 160, 0.25)))

	frame, err := e.GetAudio()
	require.NoError(t, err)
	assert.Equal(t, float32(0.5), frame.Samples[0])

	require.NoError(t, e.InsertPacket(first))
	assert.Equal(t, 1, e.PacketCount())

	frame, err = e.GetAudio()
	require.NoError(t, err)
	assert.Equal(t, Normal, frame.Operation)
	assert.Equal(t, float32(0.25), frame.Samples[0])

	life := e.GetStatistics().Lifetime
	assert.Equal(t, uint64(1), life.DuplicatePackets)
	assert.Zero(t, life.LatePacketsDiscarded)
}

func TestPacketsBehindPlayoutAreDiscarded(t *testing.T) {
	tests := []struct {
		name string
		// late is inserted after two frames: one played from seq 0, one concealed.
		late *packet.AudioPacket
	}{
		{name: "older than played packet", late: &packet.AudioPacket{Sequence: 9, Timestamp: 4294967136, SampleRate: 16000, Channels: 1}},
		{name: "fully concealed span", late: &packet.AudioPacket{Sequence: 1, Timestamp: 160, SampleRate: 16000, Channels: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, func(o *Options) {
				o.ForTestNoTimeStretching = true
			})
			require.NoError(t, e.InsertPacket(levelPacket(t, 0, 0, 0.5)))
			for i := 0; i < 2; i++ {
				_, err := e.GetAudio()
				require.NoError(t, err)
			}

			tt.late.Payload = make([]float32, 160)
			require.NoError(t, e.InsertPacket(tt.late))

			assert.Zero(t, e.PacketCount())
			life := e.GetStatistics().Lifetime
			assert.Equal(t, uint64(1), life.LatePacketsDiscarded)
			assert.Zero(t, life.DuplicatePackets)
		})
	}
}

func TestDiscardedPacketsAreNotCountedLost(t *testing.T) {
	tests := []struct {
		name     string
		arrive   func(t *testing.T, e *Engine, clk *clock.MockTimeProvider)
		wantLost uint64
		wantLate uint64
	}{
		{
			name:     "never arrived",
			arrive:   func(t *testing.T, e *Engine, clk *clock.MockTimeProvider) {},
			wantLost: 1,
		},
		{
			name: "aged out of the buffer",
			arrive: func(t *testing.T, e *Engine, clk *clock.MockTimeProvider) {
				require.NoError(t, e.InsertPacket(levelPacket(t, 1, 160, 0.5)))
				clk.Advance(3 * time.Second)
			},
			wantLate: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, clk := newTestEngine(t, func(o *Options) {
				o.ForTestNoTimeStretching = true
			})
			require.NoError(t, e.InsertPacket(levelPacket(t, 0, 0, 0.5)))
			_, err := e.GetAudio()
			require.NoError(t, err)

			tt.arrive(t, e, clk)
			require.NoError(t, e.InsertPacket(levelPacket(t, 2, 320, 0.5)))

			var played bool
			for i := 0; i < 3 && !played; i++ {
				frame, err := e.GetAudio()
				require.NoError(t, err)
				played = frame.Operation == Normal
			}
			require.True(t, played)

			life := e.GetStatistics().Lifetime
			assert.Equal(t, tt.wantLost, life.LostPackets)
			assert.Equal(t, tt.wantLate, life.LatePacketsDiscarded)
		})
	}
}

func TestInsertPacketErrors(t *testing.T) {
	wrongRate, err := packet.New(0, 0, make([]float32, 160), 8000, 1)
	require.NoError(t, err)

	tests := []struct {
		name string
		pkt  *packet.AudioPacket
		want error
	}{
		{name: "nil packet", pkt: nil, want: ErrNilPacket},
		{name: "empty payload", pkt: &packet.AudioPacket{SampleRate: 16000, Channels: 1}, want: limits.ErrPayloadEmpty},
		{
			name: "oversized payload",
			pkt:  &packet.AudioPacket{Payload: make([]float32, limits.MaxSamplesPerPacket+1), SampleRate: 16000, Channels: 1},
			want: limits.ErrPayloadTooLarge,
		},
		{name: "format mismatch", pkt: wrongRate, want: ErrFormatMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t, nil)
			err := e.InsertPacket(tt.pkt)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var insertErr *InsertError
			assert.ErrorAs(t, err, &insertErr)
		})
	}
}

func TestUninitializedEngine(t *testing.T) {
	var e Engine

	frame, err := e.GetAudio()
	assert.Nil(t, frame)
	assert.ErrorIs(t, err, ErrNotInitialized)
	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, "GetAudio", engineErr.Op)

	assert.ErrorIs(t, e.InsertPacket(tonePacket(t, 0, 0, 16000)), ErrNotInitialized)
}

func TestAccelerateDrainsOverfullBuffer(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	for i := uint32(0); i < 20; i++ {
		require.NoError(t, e.InsertPacket(silentPacket(t, i, i*320, 16000)))
	}

	frame, err := e.GetAudio()
	require.NoError(t, err)
	assert.Equal(t, Accelerate, frame.Operation)
	assert.Len(t, frame.Samples, 160)

	snap := e.GetStatistics()
	assert.Equal(t, uint64(48), snap.Lifetime.RemovedSamplesForAcceleration)
	assert.Positive(t, snap.Network.AccelerateRate)
}

func TestFastAccelerateFarAboveTarget(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) {
		o.EnableFastAccelerate = true
	})
	for i := uint32(0); i < 20; i++ {
		require.NoError(t, e.InsertPacket(silentPacket(t, i, i*320, 16000)))
	}

	frame, err := e.GetAudio()
	require.NoError(t, err)
	assert.Equal(t, FastAccelerate, frame.Operation)
	assert.Positive(t, e.GetStatistics().Lifetime.RemovedSamplesForAcceleration)
}

func TestPreemptiveExpandFillsLowBuffer(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) {
		o.MinDelayMs = 100
	})
	require.NoError(t, e.InsertPacket(tonePacket(t, 0, 0, 16000)))
	require.NoError(t, e.InsertPacket(tonePacket(t, 1, 320, 16000)))
	before := e.CurrentBufferSizeSamples()

	frame, err := e.GetAudio()
	require.NoError(t, err)
	assert.Equal(t, PreemptiveExpand, frame.Operation)
	assert.Len(t, frame.Samples, 160)

	added := e.GetStatistics().Lifetime.InsertedSamplesForDeceleration
	assert.Positive(t, added)
	assert.Equal(t, before-160+int(added), e.CurrentBufferSizeSamples())
}

func TestMutedStateAfterConcealmentDecays(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) {
		o.EnableMutedState = true
	})
	require.NoError(t, e.InsertPacket(tonePacket(t, 0, 0, 16000)))

	var muted *Frame
	for i := 0; i < 42; i++ {
		frame, err := e.GetAudio()
		require.NoError(t, err)
		if frame.Muted && muted == nil {
			muted = frame
		}
	}
	require.NotNil(t, muted)
	assert.Equal(t, Expand, muted.Operation)
	assert.Equal(t, make([]float32, 160), muted.Samples)
	assert.Positive(t, e.GetStatistics().Lifetime.SilentConcealedSamples)

	// 2 played frames and 40 concealed frames later the cursor is at 6720.
	require.NoError(t, e.InsertPacket(tonePacket(t, 1, 6720, 16000)))
	frame, err := e.GetAudio()
	require.NoError(t, err)
	assert.False(t, frame.Muted)
	assert.Equal(t, SpeechNormal, frame.SpeechType)
}

func TestSustainedConcealmentFlushes(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	require.NoError(t, e.InsertPacket(tonePacket(t, 0, 0, 16000)))

	for i := 0; i < 605; i++ {
		_, err := e.GetAudio()
		require.NoError(t, err)
	}

	// After the flush the engine resynchronizes on any timestamp.
	require.NoError(t, e.InsertPacket(tonePacket(t, 1, 999680, 16000)))
	frame, err := e.GetAudio()
	require.NoError(t, err)
	assert.Equal(t, Normal, frame.Operation)
}

func TestGapAboveHighLimitIsSkipped(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) {
		o.ForTestNoTimeStretching = true
	})
	for i := uint32(0); i < 20; i++ {
		if i == 1 {
			continue
		}
		require.NoError(t, e.InsertPacket(tonePacket(t, i, i*320, 16000)))
	}

	for i := 0; i < 3; i++ {
		frame, err := e.GetAudio()
		require.NoError(t, err)
		assert.Equal(t, Normal, frame.Operation)
	}

	life := e.GetStatistics().Lifetime
	assert.Equal(t, uint64(320), life.SkippedSamples)
	assert.Equal(t, uint64(1), life.LostPackets)
	assert.Zero(t, life.ConcealmentEvents)
}

func TestLatePacketIsDiscarded(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) {
		o.ForTestNoTimeStretching = true
	})
	for i := uint32(0); i < 3; i++ {
		require.NoError(t, e.InsertPacket(tonePacket(t, i+10, (i+10)*320, 16000)))
	}
	for i := 0; i < 4; i++ {
		_, err := e.GetAudio()
		require.NoError(t, err)
	}

	require.NoError(t, e.InsertPacket(tonePacket(t, 2, 640, 16000)))

	assert.Equal(t, uint64(1), e.GetStatistics().Lifetime.LatePacketsDiscarded)
	assert.Equal(t, 1, e.PacketCount())
}

func TestBypassModePlaysInArrivalOrder(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) {
		o.BypassMode = true
	})
	p := tonePacket(t, 5, 1600, 16000)
	require.NoError(t, e.InsertPacket(p))

	first, err := e.GetAudio()
	require.NoError(t, err)
	second, err := e.GetAudio()
	require.NoError(t, err)
	third, err := e.GetAudio()
	require.NoError(t, err)

	assert.Equal(t, p.Payload[:160], first.Samples)
	assert.Equal(t, p.Payload[160:], second.Samples)
	assert.Equal(t, Expand, third.Operation)
	assert.Equal(t, make([]float32, 160), third.Samples)
	assert.Equal(t, Expand, e.LastOperation())
}

func TestResetRatesOnRead(t *testing.T) {
	e, _ := newTestEngine(t, func(o *Options) {
		o.ResetRatesOnRead = true
	})
	for i := 0; i < 5; i++ {
		_, err := e.GetAudio()
		require.NoError(t, err)
	}

	first := e.GetStatistics()
	second := e.GetStatistics()

	assert.Positive(t, first.Network.ExpandRate)
	assert.Zero(t, second.Network.ExpandRate)
	assert.Equal(t, first.Lifetime.ConcealedSamples, second.Lifetime.ConcealedSamples)
}

func TestFlushAndReset(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	for i := uint32(0); i < 5; i++ {
		require.NoError(t, e.InsertPacket(tonePacket(t, i, i*320, 16000)))
	}
	_, err := e.GetAudio()
	require.NoError(t, err)

	e.Flush()
	assert.True(t, e.IsEmpty())
	assert.Equal(t, uint32(0), e.CurrentBufferSizeMs())
	assert.Equal(t, uint64(1), e.GetStatistics().Lifetime.BufferFlushes)

	e.Reset()
	snap := e.GetStatistics()
	assert.Zero(t, snap.Lifetime.BufferFlushes)
	assert.Zero(t, snap.Lifetime.EmittedFrames)
}

func TestRuntimeDelayBounds(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	assert.Equal(t, uint32(80), e.SetMinimumDelay(80))
	assert.Equal(t, uint32(80), e.TargetDelayMs())

	assert.Equal(t, uint32(120), e.SetMaximumDelay(120))
	assert.Equal(t, uint32(80), e.SetMinimumDelay(80))
	assert.Equal(t, uint32(500), e.SetMinimumDelay(500))
	assert.Equal(t, uint32(500), e.TargetDelayMs())
	assert.Equal(t, uint32(2000), e.SetMinimumDelay(5000))
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name      string
		configure func(*Options)
		field     string
		want      error
	}{
		{name: "zero sample rate", configure: func(o *Options) { o.SampleRate = 0 }, field: "SampleRate", want: ErrInvalidSampleRate},
		{name: "fractional frame", configure: func(o *Options) { o.SampleRate = 22050 }, field: "SampleRate", want: ErrInvalidSampleRate},
		{name: "zero channels", configure: func(o *Options) { o.Channels = 0 }, field: "Channels", want: ErrInvalidChannels},
		{name: "too many channels", configure: func(o *Options) { o.Channels = 9 }, field: "Channels", want: ErrInvalidChannels},
		{name: "zero capacity", configure: func(o *Options) { o.MaxPacketsInBuffer = 0 }, field: "MaxPacketsInBuffer", want: ErrInvalidCapacity},
		{
			name:      "min above max",
			configure: func(o *Options) { o.MinDelayMs = 200; o.MaxDelayMs = 100 },
			field:     "MinDelayMs",
			want:      ErrInvalidDelayBounds,
		},
		{
			name:      "min above delay ceiling",
			configure: func(o *Options) { o.MinDelayMs = 2500 },
			field:     "MinDelayMs",
			want:      ErrInvalidDelayBounds,
		},
		{
			name:      "max above custom ceiling",
			configure: func(o *Options) { o.Delay.BaseMaximumDelayMs = 500; o.MaxDelayMs = 600 },
			field:     "MaxDelayMs",
			want:      ErrInvalidDelayBounds,
		},
		{name: "zero acceleration margin", configure: func(o *Options) { o.AccelerationMarginMs = 0 }, field: "AccelerationMarginMs", want: ErrInvalidMargins},
		{name: "zero fast factor", configure: func(o *Options) { o.FastAccelerateFactor = 0 }, field: "FastAccelerateFactor", want: ErrInvalidMargins},
		{name: "zero quantile", configure: func(o *Options) { o.Delay.Quantile = 0 }, field: "Delay.Quantile", want: ErrInvalidQuantile},
		{name: "forget factor one", configure: func(o *Options) { o.Delay.ForgetFactor = 1 }, field: "Delay.ForgetFactor", want: ErrInvalidForgetFactor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			tt.configure(opts)

			e, err := New(opts)
			assert.Nil(t, e)
			assert.ErrorIs(t, err, tt.want)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestNewWithNilOptionsUsesDefaults(t *testing.T) {
	e, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(16000), e.Options().SampleRate)
	assert.Equal(t, 200, e.Options().MaxPacketsInBuffer)
}

func TestPreemptiveWindowFrames(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		want       int
	}{
		{name: "8 kHz needs three frames", sampleRate: 8000, want: 3},
		{name: "16 kHz", sampleRate: 16000, want: 2},
		{name: "48 kHz", sampleRate: 48000, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions()
			opts.SampleRate = uint32(tt.sampleRate)
			e, err := New(opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.preemptiveFrames)
		})
	}
}
