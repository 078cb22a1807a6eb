package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/neteq"
	"github.com/opd-ai/neteq/dashboard"
	"github.com/opd-ai/neteq/simulation"
)

// createSimConfig converts CLI configuration to a simulation configuration.
func createSimConfig(config *CLIConfig) simulation.Config {
	options := neteq.NewOptions()
	options.SampleRate = uint32(config.sampleRate)
	options.Channels = uint8(config.channels)
	options.MinDelayMs = uint32(config.minDelayMs)
	options.MaxDelayMs = uint32(config.maxDelayMs)
	options.BypassMode = config.noNetEQ
	options.EnableFastAccelerate = config.fastAccelerate

	sim := simulation.DefaultConfig()
	sim.Engine = options
	sim.Network = simulation.NetworkConfig{
		MaxJitterMs:              uint32(config.maxJitterMs),
		ReorderWindowMs:          uint32(config.reorderWindowMs),
		ReorderProbability:       config.reorderProbability,
		LossProbability:          config.loss,
		BurstStartProbability:    config.burstStart,
		BurstContinueProbability: config.burstContinue,
		DuplicateProbability:     config.duplicate,
		Seed:                     config.seed,
	}
	sim.Duration = config.duration
	sim.StatsInterval = config.statsInterval
	return sim
}

// run executes one simulation and returns the rendered summary.
func run(ctx context.Context, config *CLIConfig) (string, error) {
	simConfig := createSimConfig(config)
	streamID := uuid.NewString()

	if config.jsonStats != "" {
		f, err := os.Create(config.jsonStats)
		if err != nil {
			return "", fmt.Errorf("failed to create stats file: %w", err)
		}
		defer f.Close()
		simConfig.StatsWriter = f
	}

	if config.recordPath != "" {
		f, err := os.Create(config.recordPath)
		if err != nil {
			return "", fmt.Errorf("failed to create trace file: %w", err)
		}
		defer f.Close()
		writer := simulation.NewTraceWriter(f)
		defer writer.Close()
		simConfig.Trace = writer
	}

	var hub *dashboard.Hub
	if config.dashboardAddr != "" {
		hub = dashboard.NewHub(time.Second)
		if err := hub.Start(); err != nil {
			return "", err
		}
		defer hub.Stop()

		server := &http.Server{
			Addr:              config.dashboardAddr,
			Handler:           hub.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithFields(logrus.Fields{
					"function": "run",
					"address":  config.dashboardAddr,
					"error":    err.Error(),
				}).Error("Dashboard server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	if config.realtime {
		start := time.Now()
		var frames int64
		simConfig.OnFrame = func(*neteq.Frame) {
			frames++
			if d := time.Until(start.Add(time.Duration(frames) * neteq.FrameDurationMs * time.Millisecond)); d > 0 {
				time.Sleep(d)
			}
		}
	}

	var engine *neteq.Engine
	if hub != nil {
		simConfig.OnStats = func(simulation.StatsLine) {
			hub.Publish(streamID, engine.GetStatistics())
		}
	}

	runner, err := createRunner(config, &simConfig)
	if err != nil {
		return "", err
	}
	engine = runner.Engine()
	if id := runner.StreamID(); id != "" {
		streamID = id
	}

	logrus.WithFields(logrus.Fields{
		"function":  "run",
		"stream_id": streamID,
		"duration":  simConfig.Duration,
	}).Info("Starting playout")

	result, err := runner.Run(ctx)
	if result == nil {
		return "", err
	}
	if result.StreamID == "" {
		result.StreamID = streamID
	}
	return renderSummary(result, config), err
}

// createRunner builds a replay runner for -replay, otherwise a runner over
// the input file or the tone generator.
func createRunner(config *CLIConfig, simConfig *simulation.Config) (*simulation.Runner, error) {
	if config.replayPath != "" {
		f, err := os.Open(config.replayPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open trace: %w", err)
		}
		defer f.Close()
		trace, err := simulation.ReadTrace(f)
		if err != nil {
			return nil, err
		}
		return simulation.NewReplayRunner(*simConfig, trace)
	}

	var source simulation.Source
	if config.inputPath != "" {
		pcm, err := loadMP3(config.inputPath)
		if err != nil {
			return nil, err
		}
		source = pcm
	} else {
		source = simulation.NewToneSource(440, 0.3, uint32(config.sampleRate), uint8(config.channels))
		if simConfig.Duration == 0 {
			simConfig.Duration = defaultToneDuration
		}
	}
	return simulation.NewRunner(*simConfig, source)
}
