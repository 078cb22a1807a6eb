package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a YAML scenario file. Only keys present in the file override
// the command-line configuration.
type Scenario struct {
	Input          *string          `yaml:"input"`
	Duration       *time.Duration   `yaml:"duration"`
	SampleRate     *uint            `yaml:"sample_rate"`
	Channels       *uint            `yaml:"channels"`
	MinDelayMs     *uint            `yaml:"min_delay_ms"`
	MaxDelayMs     *uint            `yaml:"max_delay_ms"`
	NoNetEQ        *bool            `yaml:"no_neteq"`
	FastAccelerate *bool            `yaml:"fast_accelerate"`
	StatsInterval  *time.Duration   `yaml:"stats_interval"`
	JSONStats      *string          `yaml:"json_stats"`
	Network        *NetworkScenario `yaml:"network"`
}

// NetworkScenario holds the network keys of a Scenario.
type NetworkScenario struct {
	MaxJitterMs        *uint    `yaml:"max_jitter_ms"`
	ReorderWindowMs    *uint    `yaml:"reorder_window_ms"`
	ReorderProbability *float64 `yaml:"reorder_probability"`
	Loss               *float64 `yaml:"loss"`
	BurstStart         *float64 `yaml:"burst_start"`
	BurstContinue      *float64 `yaml:"burst_continue"`
	Duplicate          *float64 `yaml:"duplicate"`
	Seed               *uint64  `yaml:"seed"`
}

// loadScenario reads a YAML scenario file.
func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	return &scenario, nil
}

// apply overrides config with every key set in the scenario.
func (s *Scenario) apply(config *CLIConfig) {
	setValue(&config.inputPath, s.Input)
	setValue(&config.duration, s.Duration)
	setValue(&config.sampleRate, s.SampleRate)
	setValue(&config.channels, s.Channels)
	setValue(&config.minDelayMs, s.MinDelayMs)
	setValue(&config.maxDelayMs, s.MaxDelayMs)
	setValue(&config.noNetEQ, s.NoNetEQ)
	setValue(&config.fastAccelerate, s.FastAccelerate)
	setValue(&config.statsInterval, s.StatsInterval)
	setValue(&config.jsonStats, s.JSONStats)

	if n := s.Network; n != nil {
		setValue(&config.maxJitterMs, n.MaxJitterMs)
		setValue(&config.reorderWindowMs, n.ReorderWindowMs)
		setValue(&config.reorderProbability, n.ReorderProbability)
		setValue(&config.loss, n.Loss)
		setValue(&config.burstStart, n.BurstStart)
		setValue(&config.burstContinue, n.BurstContinue)
		setValue(&config.duplicate, n.Duplicate)
		setValue(&config.seed, n.Seed)
	}
}

func setValue[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
