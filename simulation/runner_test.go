package simulation

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/neteq"
	"github.com/opd-ai/neteq/rtp"
)

func testConfig(duration time.Duration, network NetworkConfig) Config {
	config := DefaultConfig()
	config.Engine = neteq.NewOptions()
	config.Network = network
	config.Duration = duration
	return config
}

func TestRunnerCleanStream(t *testing.T) {
	config := testConfig(2*time.Second, NetworkConfig{Seed: 1})
	runner, err := NewRunner(config, NewToneSource(440, 0.3, 16000, 1))
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(200), result.Frames)
	assert.Equal(t, 2*time.Second, result.Duration)
	assert.Equal(t, uint64(100), result.Network.Sent)
	assert.Zero(t, result.Network.Lost)
	assert.Zero(t, result.DecodeErrors)
	assert.Zero(t, result.InsertErrors)
	assert.Zero(t, result.Statistics.Lifetime.LostPackets)
	assert.Equal(t, uint64(200), result.Statistics.Lifetime.EmittedFrames)
}

func TestRunnerResamplesSource(t *testing.T) {
	config := testConfig(time.Second, NetworkConfig{Seed: 1})
	config.Engine.SampleRate = 16000
	config.Encoding = rtp.EncodingL16
	config.CollectOutput = true

	runner, err := NewRunner(config, NewToneSource(440, 0.3, 48000, 2))
	require.NoError(t, err)

	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Output, 100*160)
	assert.Zero(t, result.DecodeErrors)
	assert.Positive(t, result.Statistics.Lifetime.JitterBufferPacketsReceived)
}

func TestRunnerSameSeedSameOutput(t *testing.T) {
	network := NetworkConfig{
		MaxJitterMs:        80,
		ReorderWindowMs:    60,
		ReorderProbability: 0.5,
		LossProbability:    0.1,
		Seed:               7,
	}

	run := func() *Result {
		config := testConfig(3*time.Second, network)
		config.CollectOutput = true
		runner, err := NewRunner(config, NewToneSource(300, 0.4, 16000, 1))
		require.NoError(t, err)
		result, err := runner.Run(context.Background())
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()
	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, first.Network, second.Network)
	assert.Equal(t, first.Statistics.Lifetime, second.Statistics.Lifetime)
}

func TestRunnerStatsLines(t *testing.T) {
	var buf bytes.Buffer
	var callbacks []StatsLine

	config := testConfig(2*time.Second, NetworkConfig{MaxJitterMs: 30, Seed: 3})
	config.StatsInterval = 500 * time.Millisecond
	config.StatsWriter = &buf
	config.OnStats = func(line StatsLine) { callbacks = append(callbacks, line) }

	runner, err := NewRunner(config, NewToneSource(440, 0.3, 16000, 1))
	require.NoError(t, err)
	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	var lines []StatsLine
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var line StatsLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 4)
	assert.Equal(t, lines, callbacks)
	for i, line := range lines {
		assert.Equal(t, int64(500*(i+1)), line.TimestampMs)
		assert.NotEmpty(t, line.Operation)
	}
}

func TestRunnerStopsAfterSourceDrains(t *testing.T) {
	config := testConfig(0, NetworkConfig{MaxJitterMs: 20, Seed: 5})
	source := NewPCMSource(make([]float32, 16000), 16000, 1)

	runner, err := NewRunner(config, source)
	require.NoError(t, err)
	result, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(50), result.Network.Sent)
	assert.GreaterOrEqual(t, result.Frames, uint64(100))
	assert.LessOrEqual(t, result.Frames, uint64(400))
}

func TestRunnerTraceReplayMatchesRecording(t *testing.T) {
	var buf bytes.Buffer
	writer := NewTraceWriter(&buf)

	network := NetworkConfig{MaxJitterMs: 60, LossProbability: 0.05, DuplicateProbability: 0.05, Seed: 3}
	config := testConfig(1500*time.Millisecond, network)
	config.CollectOutput = true
	config.Trace = writer

	recorder, err := NewRunner(config, NewToneSource(440, 0.3, 16000, 1))
	require.NoError(t, err)
	recorded, err := recorder.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	trace, err := ReadTrace(&buf)
	require.NoError(t, err)
	assert.Equal(t, recorded.StreamID, trace.Header.StreamID)
	assert.NotEmpty(t, trace.Events)
	assert.LessOrEqual(t, uint64(len(trace.Events)), recorded.Network.Delivered)

	replayConfig := testConfig(1500*time.Millisecond, NetworkConfig{})
	replayConfig.CollectOutput = true
	replayer, err := NewReplayRunner(replayConfig, trace)
	require.NoError(t, err)
	assert.Nil(t, replayer.Network())

	replayed, err := replayer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, recorded.StreamID, replayed.StreamID)
	assert.Equal(t, recorded.Output, replayed.Output)
	assert.Equal(t, recorded.Statistics.Lifetime, replayed.Statistics.Lifetime)
}

func TestRunnerBypassMode(t *testing.T) {
	config := testConfig(time.Second, NetworkConfig{MaxJitterMs: 10, Seed: 2})
	config.Engine.BypassMode = true

	runner, err := NewRunner(config, NewToneSource(440, 0.3, 16000, 1))
	require.NoError(t, err)
	result, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), result.Frames)
}

func TestRunnerHonorsCancellation(t *testing.T) {
	runner, err := NewRunner(testConfig(time.Minute, NetworkConfig{Seed: 1}), NewToneSource(440, 0.3, 16000, 1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Zero(t, result.Frames)
}

func TestNewRunnerErrors(t *testing.T) {
	tone := NewToneSource(440, 0.3, 16000, 1)

	tests := []struct {
		name    string
		config  func() Config
		source  Source
		wantErr error
	}{
		{
			name:    "nil source",
			config:  DefaultConfig,
			wantErr: ErrNilSource,
		},
		{
			name: "packet duration not a frame multiple",
			config: func() Config {
				c := DefaultConfig()
				c.PacketMs = 15
				return c
			},
			source:  tone,
			wantErr: ErrInvalidPacketDuration,
		},
		{
			name: "invalid network",
			config: func() Config {
				c := DefaultConfig()
				c.Network.ReorderWindowMs = 300
				return c
			},
			source:  tone,
			wantErr: ErrReorderWindowTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner, err := NewRunner(tt.config(), tt.source)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, runner)
		})
	}
}

func TestNewReplayRunnerErrors(t *testing.T) {
	_, err := NewReplayRunner(DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrNilTrace)

	trace := &Trace{Header: TraceHeader{SampleRate: 16000, Channels: 1, Encoding: "opus"}}
	_, err = NewReplayRunner(DefaultConfig(), trace)
	assert.Error(t, err)
}
