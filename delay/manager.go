package delay

import (
	"fmt"
	"time"

	"github.com/opd-ai/neteq/clock"
	"github.com/opd-ai/neteq/packet"
	"github.com/sirupsen/logrus"
)

// Config holds the delay estimator parameters.
type Config struct {
	Quantile           float64
	ForgetFactor       float64
	StartForgetWeight  float64 // zero disables the start-up ramp
	ResampleIntervalMs uint32  // zero registers every packet
	MaxHistoryMs       uint32
	BaseMinimumDelayMs uint32
	BaseMaximumDelayMs uint32
	NumBuckets         int
	BucketSizeMs       int
}

// DefaultConfig returns the estimator defaults.
func DefaultConfig() Config {
	return Config{
		Quantile:           0.95,
		ForgetFactor:       0.9993,
		StartForgetWeight:  2.0,
		ResampleIntervalMs: 500,
		MaxHistoryMs:       2000,
		BaseMinimumDelayMs: 0,
		BaseMaximumDelayMs: 2000,
		NumBuckets:         100,
		BucketSizeMs:       20,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Quantile <= 0 || c.Quantile > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidQuantile, c.Quantile)
	}
	if c.ForgetFactor <= 0 || c.ForgetFactor >= 1 {
		return fmt.Errorf("%w: %v", ErrInvalidForgetFactor, c.ForgetFactor)
	}
	if c.NumBuckets <= 0 || c.BucketSizeMs <= 0 {
		return fmt.Errorf("%w: %d buckets of %d ms", ErrInvalidBuckets, c.NumBuckets, c.BucketSizeMs)
	}
	if c.BaseMaximumDelayMs > 0 && c.BaseMinimumDelayMs > c.BaseMaximumDelayMs {
		return fmt.Errorf("%w: %d > %d", ErrInvalidBounds, c.BaseMinimumDelayMs, c.BaseMaximumDelayMs)
	}
	return nil
}

// Manager tracks packet arrival jitter and derives the target buffer delay.
type Manager struct {
	config       Config
	timeProvider clock.TimeProvider

	tracker   *arrivalTracker
	histogram *Histogram

	targetLevelMs     uint32
	observed          bool
	minimumDelayMs    uint32
	maximumDelayMs    uint32
	effectiveMinimum  uint32
	effectiveMaximum  uint32
	resampledDelayMs  int
	lastResample      time.Time
	resampleStarted   bool
	newestTimestamp   uint32
	hasNewest         bool
	reorderedCount    uint64
	lastRelativeDelay int
}

// NewManager creates a Manager. A nil TimeProvider uses the system clock.
func NewManager(config Config, tp clock.TimeProvider) (*Manager, error) {
	if err := config.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "delay.NewManager",
			"error":    err.Error(),
		}).Error("Invalid delay configuration")
		return nil, err
	}

	m := &Manager{
		config:       config,
		timeProvider: clock.OrDefault(tp),
		tracker:      newArrivalTracker(config.MaxHistoryMs),
		histogram:    NewHistogram(config.NumBuckets, config.ForgetFactor, config.StartForgetWeight),
	}
	m.updateEffectiveBounds()
	m.targetLevelMs = m.fallbackTarget()
	return m, nil
}

// SetTimeProvider replaces the clock used for arrival times.
func (m *Manager) SetTimeProvider(tp clock.TimeProvider) {
	m.timeProvider = clock.OrDefault(tp)
}

// Update records the arrival of a packet with the given timestamp.
func (m *Manager) Update(timestamp, sampleRate uint32, isReordered bool) error {
	if sampleRate == 0 {
		return ErrInvalidSampleRate
	}

	if isReordered || (m.hasNewest && !packet.IsTimestampNewer(timestamp, m.newestTimestamp)) {
		m.reorderedCount++
		logrus.WithFields(logrus.Fields{
			"function":  "Manager.Update",
			"timestamp": timestamp,
			"newest":    m.newestTimestamp,
		}).Debug("Reordered packet excluded from delay history")
		return nil
	}
	m.newestTimestamp = timestamp
	m.hasNewest = true

	now := m.timeProvider.Now()
	relative := m.tracker.update(timestamp, sampleRate, now)
	m.lastRelativeDelay = relative

	if m.config.ResampleIntervalMs > 0 {
		interval := time.Duration(m.config.ResampleIntervalMs) * time.Millisecond
		if !m.resampleStarted {
			m.lastResample = now
			m.resampleStarted = true
		} else if elapsed := now.Sub(m.lastResample); elapsed >= interval {
			m.register(m.resampledDelayMs)
			m.resampledDelayMs = 0
			m.lastResample = m.lastResample.Add(elapsed / interval * interval)
		}
		m.resampledDelayMs = max(m.resampledDelayMs, relative)
	} else {
		m.register(relative)
	}

	m.updateTarget()
	return nil
}

func (m *Manager) register(relativeDelayMs int) {
	index := relativeDelayMs / m.config.BucketSizeMs
	if index < 0 || index >= m.histogram.NumBuckets() {
		return
	}
	m.histogram.Add(index)
	m.observed = true
}

func (m *Manager) updateTarget() {
	if !m.observed {
		m.targetLevelMs = m.fallbackTarget()
		return
	}
	bucket := m.histogram.Quantile(m.config.Quantile)
	target := uint32(1+bucket) * uint32(m.config.BucketSizeMs)
	target = m.clamp(target)
	if target != m.targetLevelMs {
		logrus.WithFields(logrus.Fields{
			"function": "Manager.updateTarget",
			"target":   target,
			"previous": m.targetLevelMs,
			"min":      m.effectiveMinimum,
			"max":      m.effectiveMaximum,
		}).Debug("Target delay updated")
	}
	m.targetLevelMs = target
}

func (m *Manager) fallbackTarget() uint32 {
	return m.clamp(max(m.effectiveMinimum, uint32(m.config.BucketSizeMs)))
}

func (m *Manager) clamp(v uint32) uint32 {
	return min(max(v, m.effectiveMinimum), m.effectiveMaximum)
}

// TargetDelayMs returns the target delay clamped to the effective bounds.
func (m *Manager) TargetDelayMs() uint32 {
	if !m.observed {
		return m.fallbackTarget()
	}
	return m.clamp(m.targetLevelMs)
}

// SetMinimumDelay sets the requested minimum delay and returns the effective minimum.
func (m *Manager) SetMinimumDelay(delayMs uint32) uint32 {
	m.minimumDelayMs = delayMs
	m.updateEffectiveBounds()
	return m.effectiveMinimum
}

// SetMaximumDelay sets the requested maximum delay (0 = no limit) and returns
// the effective maximum.
func (m *Manager) SetMaximumDelay(delayMs uint32) uint32 {
	m.maximumDelayMs = delayMs
	m.updateEffectiveBounds()
	return m.effectiveMaximum
}

// SetBaseMinimumDelay changes the floor that SetMinimumDelay cannot go below.
func (m *Manager) SetBaseMinimumDelay(delayMs uint32) {
	m.config.BaseMinimumDelayMs = delayMs
	m.updateEffectiveBounds()
}

// SetBaseMaximumDelay changes the ceiling that SetMaximumDelay cannot exceed.
func (m *Manager) SetBaseMaximumDelay(delayMs uint32) {
	m.config.BaseMaximumDelayMs = delayMs
	m.updateEffectiveBounds()
}

// EffectiveBounds returns the current effective minimum and maximum delay.
func (m *Manager) EffectiveBounds() (uint32, uint32) {
	return m.effectiveMinimum, m.effectiveMaximum
}

func (m *Manager) updateEffectiveBounds() {
	upper := m.config.BaseMaximumDelayMs
	if upper == 0 {
		upper = DefaultConfig().BaseMaximumDelayMs
	}
	lower := min(m.config.BaseMinimumDelayMs, upper)

	if m.minimumDelayMs > 0 {
		m.effectiveMinimum = min(max(m.minimumDelayMs, lower), upper)
	} else {
		m.effectiveMinimum = lower
	}

	if m.maximumDelayMs > 0 {
		m.effectiveMaximum = min(max(m.maximumDelayMs, m.effectiveMinimum), upper)
	} else {
		m.effectiveMaximum = upper
	}
}

// ReorderedCount returns the number of reordered packets seen.
func (m *Manager) ReorderedCount() uint64 {
	return m.reorderedCount
}

// RelativeDelayMs returns the relative arrival delay of the latest in-order packet.
func (m *Manager) RelativeDelayMs() int {
	return m.lastRelativeDelay
}

// Histogram exposes the underlying histogram.
func (m *Manager) Histogram() *Histogram {
	return m.histogram
}

// Reset clears the arrival history and returns the target to the start-up
// fallback. The histogram keeps its learned distribution.
func (m *Manager) Reset() {
	m.tracker.reset()
	m.resampledDelayMs = 0
	m.resampleStarted = false
	m.lastResample = time.Time{}
	m.hasNewest = false
	m.newestTimestamp = 0
	m.lastRelativeDelay = 0
	m.observed = false
	m.targetLevelMs = m.fallbackTarget()

	logrus.WithFields(logrus.Fields{
		"function": "Manager.Reset",
		"target":   m.targetLevelMs,
	}).Info("Delay manager reset")
}
