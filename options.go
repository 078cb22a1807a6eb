package neteq

import (
	"fmt"

	"github.com/opd-ai/neteq/buffer"
	"github.com/opd-ai/neteq/clock"
	"github.com/opd-ai/neteq/delay"
	"github.com/opd-ai/neteq/limits"
)

// FrameDurationMs is the duration of every frame returned by GetAudio.
const FrameDurationMs = 10

// Options contains configuration options for creating an Engine.
type Options struct {
	SampleRate         uint32
	Channels           uint8
	MaxPacketsInBuffer int
	MinDelayMs         uint32
	MaxDelayMs         uint32 // zero leaves the delay ceiling at its base value

	EnableFastAccelerate    bool
	EnableMutedState        bool
	ForTestNoTimeStretching bool
	// BypassMode plays packets in arrival order without buffering decisions.
	BypassMode bool
	// ResetRatesOnRead clears the statistics rate window on every
	// GetStatistics call.
	ResetRatesOnRead bool
	// MinDwellFrames is the number of frames that must follow a stretch
	// before a stretch in the opposite direction is allowed.
	MinDwellFrames int

	// DecelerationOffsetMs caps how far the low limit sits below the target.
	DecelerationOffsetMs uint32
	// AccelerationMarginMs is the minimum distance from the low limit to the
	// high limit.
	AccelerationMarginMs uint32
	// FastAccelerateFactor is the multiple of the high limit above which
	// FastAccelerate is chosen.
	FastAccelerateFactor int

	Delay      delay.Config
	SmartFlush buffer.SmartFlushConfig

	TimeProvider clock.TimeProvider
}

// NewOptions returns Options with the defaults: 16 kHz mono, 200 packets,
// no delay bounds, 0.95 delay quantile.
func NewOptions() *Options {
	return &Options{
		SampleRate:         16000,
		Channels:           1,
		MaxPacketsInBuffer: 200,
		MinDwellFrames:     3,

		DecelerationOffsetMs: DefaultDecelerationOffsetMs,
		AccelerationMarginMs: DefaultAccelerationMarginMs,
		FastAccelerateFactor: DefaultFastAccelerateFactor,

		Delay:      delay.DefaultConfig(),
		SmartFlush: buffer.DefaultConfig(1).SmartFlush,
	}
}

// Validate checks the options and returns a *ConfigError for the first
// invalid field.
func (o *Options) Validate() error {
	if o.SampleRate == 0 || o.SampleRate > limits.MaxSampleRate || o.SampleRate*FrameDurationMs%1000 != 0 {
		return newConfigError("SampleRate", fmt.Errorf("%w: %d", ErrInvalidSampleRate, o.SampleRate))
	}
	if o.Channels == 0 || o.Channels > limits.MaxChannels {
		return newConfigError("Channels", fmt.Errorf("%w: %d", ErrInvalidChannels, o.Channels))
	}
	if o.MaxPacketsInBuffer <= 0 {
		return newConfigError("MaxPacketsInBuffer", fmt.Errorf("%w: %d", ErrInvalidCapacity, o.MaxPacketsInBuffer))
	}
	if o.MaxDelayMs > 0 && o.MinDelayMs > o.MaxDelayMs {
		return newConfigError("MinDelayMs", fmt.Errorf("%w: min %d > max %d", ErrInvalidDelayBounds, o.MinDelayMs, o.MaxDelayMs))
	}
	ceiling := o.delayCeiling()
	if o.MinDelayMs > ceiling {
		return newConfigError("MinDelayMs", fmt.Errorf("%w: min %d > ceiling %d", ErrInvalidDelayBounds, o.MinDelayMs, ceiling))
	}
	if o.MaxDelayMs > ceiling {
		return newConfigError("MaxDelayMs", fmt.Errorf("%w: max %d > ceiling %d", ErrInvalidDelayBounds, o.MaxDelayMs, ceiling))
	}
	if o.AccelerationMarginMs == 0 {
		return newConfigError("AccelerationMarginMs", fmt.Errorf("%w: high limit must exceed low limit", ErrInvalidMargins))
	}
	if o.FastAccelerateFactor < 1 {
		return newConfigError("FastAccelerateFactor", fmt.Errorf("%w: factor %d", ErrInvalidMargins, o.FastAccelerateFactor))
	}
	if q := o.Delay.Quantile; q <= 0 || q > 1 {
		return newConfigError("Delay.Quantile", fmt.Errorf("%w: %v", ErrInvalidQuantile, q))
	}
	if f := o.Delay.ForgetFactor; f <= 0 || f >= 1 {
		return newConfigError("Delay.ForgetFactor", fmt.Errorf("%w: %v", ErrInvalidForgetFactor, f))
	}
	if err := o.Delay.Validate(); err != nil {
		return newConfigError("Delay", err)
	}
	return nil
}

// delayCeiling is the largest delay the delay manager can target.
func (o *Options) delayCeiling() uint32 {
	if o.Delay.BaseMaximumDelayMs > 0 {
		return o.Delay.BaseMaximumDelayMs
	}
	return delay.DefaultConfig().BaseMaximumDelayMs
}

// Margins returns the decision margins configured in o.
func (o *Options) Margins() Margins {
	return Margins{
		DecelerationOffsetMs: o.DecelerationOffsetMs,
		AccelerationMarginMs: o.AccelerationMarginMs,
		FastAccelerateFactor: o.FastAccelerateFactor,
	}
}

// FrameSamples returns the samples per channel in one output frame.
func (o *Options) FrameSamples() int {
	return int(o.SampleRate) * FrameDurationMs / 1000
}
