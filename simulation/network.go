package simulation

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// MaxJitterMs caps NetworkConfig.MaxJitterMs.
	MaxJitterMs = 500
	// MaxReorderWindowMs caps NetworkConfig.ReorderWindowMs.
	MaxReorderWindowMs = 200
)

// NetworkConfig describes the impairments applied to each datagram.
type NetworkConfig struct {
	// MaxJitterMs bounds the uniform one-way delay added to every datagram.
	MaxJitterMs uint32 `yaml:"max_jitter_ms"`
	// ReorderWindowMs bounds the extra hold-back of a reordered datagram.
	// Zero disables reordering.
	ReorderWindowMs    uint32  `yaml:"reorder_window_ms"`
	ReorderProbability float64 `yaml:"reorder_probability"`
	// LossProbability drops independent datagrams.
	LossProbability float64 `yaml:"loss"`
	// BurstStartProbability and BurstContinueProbability form a two-state
	// loss model: once a burst starts every datagram is dropped until a
	// continue draw fails.
	BurstStartProbability    float64 `yaml:"burst_start"`
	BurstContinueProbability float64 `yaml:"burst_continue"`
	DuplicateProbability     float64 `yaml:"duplicate"`
	Seed                     uint64  `yaml:"seed"`
}

// DefaultNetworkConfig returns a lossless network with 40 ms of jitter.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		MaxJitterMs:        40,
		ReorderProbability: 0.5,
		Seed:               1,
	}
}

// Validate checks the bounds of every field.
func (c NetworkConfig) Validate() error {
	if c.MaxJitterMs > MaxJitterMs {
		return fmt.Errorf("%w: %d", ErrJitterTooLarge, c.MaxJitterMs)
	}
	if c.ReorderWindowMs > MaxReorderWindowMs {
		return fmt.Errorf("%w: %d", ErrReorderWindowTooLarge, c.ReorderWindowMs)
	}
	probabilities := []struct {
		name  string
		value float64
	}{
		{"reorder", c.ReorderProbability},
		{"loss", c.LossProbability},
		{"burst start", c.BurstStartProbability},
		{"burst continue", c.BurstContinueProbability},
		{"duplicate", c.DuplicateProbability},
	}
	for _, p := range probabilities {
		if p.value < 0 || p.value > 1 {
			return fmt.Errorf("%w: %s %v", ErrInvalidProbability, p.name, p.value)
		}
	}
	return nil
}

// DeliveryRecord describes the fate of one datagram.
type DeliveryRecord struct {
	Index  uint64
	SentAt time.Duration
	// Delays holds one entry per delivered copy; empty when lost.
	Delays     []time.Duration
	Lost       bool
	BurstLoss  bool
	Reordered  bool
	Duplicated bool
}

// NetworkStats counts datagram outcomes.
type NetworkStats struct {
	Sent       uint64 `json:"sent"`
	Delivered  uint64 `json:"delivered"`
	Lost       uint64 `json:"lost"`
	BurstLost  uint64 `json:"burst_lost"`
	Reordered  uint64 `json:"reordered"`
	Duplicated uint64 `json:"duplicated"`
}

// Network is a seeded model of a lossy, jittery one-way path.
type Network struct {
	mu          sync.Mutex
	config      NetworkConfig
	rng         *rand.Rand
	burst       bool
	stats       NetworkStats
	deliveryLog []DeliveryRecord
}

// NewNetwork validates config and creates a Network.
func NewNetwork(config NetworkConfig) (*Network, error) {
	if err := config.Validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "NewNetwork",
			"error":    err.Error(),
		}).Error("Invalid network configuration")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":          "NewNetwork",
		"max_jitter_ms":     config.MaxJitterMs,
		"reorder_window_ms": config.ReorderWindowMs,
		"loss":              config.LossProbability,
		"seed":              config.Seed,
	}).Info("Creating simulated network")

	return &Network{
		config:      config,
		rng:         rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
		deliveryLog: make([]DeliveryRecord, 0),
	}, nil
}

// Schedule decides the fate of a datagram sent at sentAt and returns the
// delay of every copy that arrives. A nil result means the datagram is lost.
func (n *Network) Schedule(sentAt time.Duration) []time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()

	record := DeliveryRecord{Index: n.stats.Sent, SentAt: sentAt}
	n.stats.Sent++

	if dropped, burst := n.drop(); dropped {
		record.Lost = true
		record.BurstLoss = burst
		n.stats.Lost++
		if burst {
			n.stats.BurstLost++
		}
		n.deliveryLog = append(n.deliveryLog, record)
		return nil
	}

	first := n.jitter()
	if n.config.ReorderWindowMs > 0 && n.rng.Float64() < n.config.ReorderProbability {
		first += n.uniformMs(n.config.ReorderWindowMs)
		record.Reordered = true
		n.stats.Reordered++
	}
	record.Delays = append(record.Delays, first)

	if n.config.DuplicateProbability > 0 && n.rng.Float64() < n.config.DuplicateProbability {
		record.Delays = append(record.Delays, n.jitter())
		record.Duplicated = true
		n.stats.Duplicated++
	}
	n.stats.Delivered += uint64(len(record.Delays))
	n.deliveryLog = append(n.deliveryLog, record)

	logrus.WithFields(logrus.Fields{
		"function":  "Network.Schedule",
		"index":     record.Index,
		"delay":     first,
		"reordered": record.Reordered,
		"copies":    len(record.Delays),
	}).Debug("Scheduled datagram")

	return record.Delays
}

func (n *Network) drop() (dropped, burst bool) {
	if n.burst {
		if n.rng.Float64() < n.config.BurstContinueProbability {
			return true, true
		}
		n.burst = false
	}
	if n.config.LossProbability > 0 && n.rng.Float64() < n.config.LossProbability {
		return true, false
	}
	if n.config.BurstStartProbability > 0 && n.rng.Float64() < n.config.BurstStartProbability {
		n.burst = true
		return true, true
	}
	return false, false
}

func (n *Network) jitter() time.Duration {
	return n.uniformMs(n.config.MaxJitterMs)
}

// uniformMs draws from [0, maxMs) at microsecond resolution, the resolution
// of trace files.
func (n *Network) uniformMs(maxMs uint32) time.Duration {
	if maxMs == 0 {
		return 0
	}
	d := time.Duration(n.rng.Float64() * float64(maxMs) * float64(time.Millisecond))
	return d.Truncate(time.Microsecond)
}

// Stats returns the outcome counters.
func (n *Network) Stats() NetworkStats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stats
}

// GetDeliveryLog returns a copy of the delivery log.
func (n *Network) GetDeliveryLog() []DeliveryRecord {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]DeliveryRecord, len(n.deliveryLog))
	copy(out, n.deliveryLog)
	return out
}

// ClearDeliveryLog drops all delivery records.
func (n *Network) ClearDeliveryLog() {
	n.mu.Lock()
	defer n.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"function": "Network.ClearDeliveryLog",
		"records":  len(n.deliveryLog),
	}).Debug("Clearing delivery log")
	n.deliveryLog = n.deliveryLog[:0]
}
