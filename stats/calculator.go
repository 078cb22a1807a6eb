package stats

import (
	"slices"

	"github.com/gammazero/deque"
)

// waitingTimeWindow is the number of recent packets kept for waiting time statistics.
const waitingTimeWindow = 100

// NetworkStatistics is the rolling, rate-oriented view.
type NetworkStatistics struct {
	CurrentBufferSizeMs   uint16 `json:"current_buffer_size_ms"`
	PreferredBufferSizeMs uint16 `json:"preferred_buffer_size_ms"`
	ExpandRate            uint16 `json:"expand_rate"`
	SpeechExpandRate      uint16 `json:"speech_expand_rate"`
	PreemptiveRate        uint16 `json:"preemptive_rate"`
	AccelerateRate        uint16 `json:"accelerate_rate"`
	MeanWaitingTimeMs     int    `json:"mean_waiting_time_ms"`
	MedianWaitingTimeMs   int    `json:"median_waiting_time_ms"`
	MinWaitingTimeMs      int    `json:"min_waiting_time_ms"`
	MaxWaitingTimeMs      int    `json:"max_waiting_time_ms"`
	ReorderedPackets      uint32 `json:"reordered_packets"`
	TotalPacketsReceived  uint32 `json:"total_packets_received"`
	ReorderRatePermyriad  uint16 `json:"reorder_rate_permyriad"`
	MaxReorderDistance    uint16 `json:"max_reorder_distance"`
}

// LifetimeStatistics are monotonically increasing counters.
type LifetimeStatistics struct {
	TotalSamplesReceived           uint64 `json:"total_samples_received"`
	ConcealedSamples               uint64 `json:"concealed_samples"`
	SilentConcealedSamples         uint64 `json:"silent_concealed_samples"`
	ConcealmentEvents              uint64 `json:"concealment_events"`
	JitterBufferDelayMs            uint64 `json:"jitter_buffer_delay_ms"`
	JitterBufferEmittedCount       uint64 `json:"jitter_buffer_emitted_count"`
	JitterBufferTargetDelayMs      uint64 `json:"jitter_buffer_target_delay_ms"`
	InsertedSamplesForDeceleration uint64 `json:"inserted_samples_for_deceleration"`
	RemovedSamplesForAcceleration  uint64 `json:"removed_samples_for_acceleration"`
	RelativePacketArrivalDelayMs   uint64 `json:"relative_packet_arrival_delay_ms"`
	JitterBufferPacketsReceived    uint64 `json:"jitter_buffer_packets_received"`
	BufferFlushes                  uint64 `json:"buffer_flushes"`
	LatePacketsDiscarded           uint64 `json:"late_packets_discarded"`
	PacketsDiscarded               uint64 `json:"packets_discarded"`
	DuplicatePackets               uint64 `json:"duplicate_packets"`
	LostPackets                    uint64 `json:"lost_packets"`
	SkippedSamples                 uint64 `json:"skipped_samples"`
	EmittedFrames                  uint64 `json:"emitted_frames"`
}

// Snapshot is the statistics view returned to callers.
type Snapshot struct {
	Network               NetworkStatistics  `json:"network"`
	Lifetime              LifetimeStatistics `json:"lifetime"`
	Operations            map[string]uint64  `json:"operations"`
	CurrentBufferSizeMs   uint32             `json:"current_buffer_size_ms"`
	TargetDelayMs         uint32             `json:"target_delay_ms"`
	PacketsAwaitingDecode int                `json:"packets_awaiting_decode"`
}

// OperationCount returns how many frames were produced by the named operation.
func (s Snapshot) OperationCount(name string) uint64 {
	return s.Operations[name]
}

// Calculator collects statistics events for one stream.
type Calculator struct {
	network  NetworkStatistics
	lifetime LifetimeStatistics
	ops      map[string]uint64

	waitingTimes deque.Deque[int]

	// rate window
	outputSamples       uint64
	expandSamples       uint64
	speechExpandSamples uint64
	preemptiveSamples   uint64
	accelerateSamples   uint64
}

// NewCalculator returns an empty Calculator.
func NewCalculator() *Calculator {
	return &Calculator{ops: make(map[string]uint64)}
}

// UpdateBufferSize records the current and preferred buffer size.
func (c *Calculator) UpdateBufferSize(currentMs, preferredMs uint32) {
	c.network.CurrentBufferSizeMs = uint16(min(currentMs, 0xFFFF))
	c.network.PreferredBufferSizeMs = uint16(min(preferredMs, 0xFFFF))
}

// PacketReceived records an admitted packet carrying samples per channel.
func (c *Calculator) PacketReceived(samples int) {
	c.lifetime.JitterBufferPacketsReceived++
	c.lifetime.TotalSamplesReceived += uint64(samples)
}

// PacketInOrder records a packet that arrived in timestamp order.
func (c *Calculator) PacketInOrder() {
	c.network.TotalPacketsReceived++
	c.updateReorderRate()
}

// PacketReordered records a packet inserted distance slots before the tail.
func (c *Calculator) PacketReordered(distance int) {
	c.network.ReorderedPackets++
	c.network.TotalPacketsReceived++
	if d := uint16(min(distance, 0xFFFF)); d > c.network.MaxReorderDistance {
		c.network.MaxReorderDistance = d
	}
	c.updateReorderRate()
}

func (c *Calculator) updateReorderRate() {
	if c.network.TotalPacketsReceived == 0 {
		return
	}
	rate := float64(c.network.ReorderedPackets) / float64(c.network.TotalPacketsReceived) * 10000
	c.network.ReorderRatePermyriad = uint16(rate)
}

// PacketDuplicate records a rejected duplicate.
func (c *Calculator) PacketDuplicate() {
	c.lifetime.DuplicatePackets++
}

// PacketDiscarded records a packet removed without playout. late marks packets
// that arrived but could no longer be used.
func (c *Calculator) PacketDiscarded(late bool) {
	c.lifetime.PacketsDiscarded++
	if late {
		c.lifetime.LatePacketsDiscarded++
	}
}

// PacketsLost records packets that never arrived before their playout time.
func (c *Calculator) PacketsLost(n uint64) {
	c.lifetime.LostPackets += n
}

// SamplesSkipped records a playout gap that was jumped instead of concealed.
func (c *Calculator) SamplesSkipped(n int) {
	c.lifetime.SkippedSamples += uint64(n)
}

// BufferFlush records one flush of the packet buffer.
func (c *Calculator) BufferFlush() {
	c.lifetime.BufferFlushes++
}

// WaitingTime records how long a packet waited between arrival and decode.
func (c *Calculator) WaitingTime(ms int) {
	c.waitingTimes.PushBack(ms)
	for c.waitingTimes.Len() > waitingTimeWindow {
		c.waitingTimes.PopFront()
	}
	c.updateWaitingTimes()
}

func (c *Calculator) updateWaitingTimes() {
	n := c.waitingTimes.Len()
	if n == 0 {
		return
	}
	sorted := make([]int, n)
	sum := 0
	for i := 0; i < n; i++ {
		sorted[i] = c.waitingTimes.At(i)
		sum += sorted[i]
	}
	slices.Sort(sorted)

	c.network.MinWaitingTimeMs = sorted[0]
	c.network.MaxWaitingTimeMs = sorted[n-1]
	c.network.MeanWaitingTimeMs = sum / n
	c.network.MedianWaitingTimeMs = sorted[n/2]
}

// RelativeArrivalDelay accumulates the relative arrival delay of a packet.
func (c *Calculator) RelativeArrivalDelay(ms int) {
	if ms > 0 {
		c.lifetime.RelativePacketArrivalDelayMs += uint64(ms)
	}
}

// Concealed records synthesized samples. newEvent marks the start of a
// concealment run; silent marks output that was muted.
func (c *Calculator) Concealed(samples int, silent, newEvent bool) {
	if newEvent {
		c.lifetime.ConcealmentEvents++
	}
	c.lifetime.ConcealedSamples += uint64(samples)
	c.expandSamples += uint64(samples)
	if silent {
		c.lifetime.SilentConcealedSamples += uint64(samples)
	} else {
		c.speechExpandSamples += uint64(samples)
	}
}

// Accelerated records samples removed by time compression.
func (c *Calculator) Accelerated(removed int) {
	c.lifetime.RemovedSamplesForAcceleration += uint64(removed)
	c.accelerateSamples += uint64(removed)
}

// PreemptiveExpanded records samples inserted by time stretching.
func (c *Calculator) PreemptiveExpanded(added int) {
	c.lifetime.InsertedSamplesForDeceleration += uint64(added)
	c.preemptiveSamples += uint64(added)
}

// FrameEmitted records one output frame of samples per channel produced by
// the named operation at the given buffer and target delay.
func (c *Calculator) FrameEmitted(samples int, operation string, bufferDelayMs, targetDelayMs uint32) {
	c.outputSamples += uint64(samples)
	c.ops[operation]++
	c.lifetime.EmittedFrames++
	c.lifetime.JitterBufferEmittedCount += uint64(samples)
	c.lifetime.JitterBufferDelayMs += uint64(bufferDelayMs)
	c.lifetime.JitterBufferTargetDelayMs += uint64(targetDelayMs)
}

// ResetRates clears the rate window. Lifetime counters are untouched.
func (c *Calculator) ResetRates() {
	c.outputSamples = 0
	c.expandSamples = 0
	c.speechExpandSamples = 0
	c.preemptiveSamples = 0
	c.accelerateSamples = 0
}

// Reset returns the calculator to its initial state.
func (c *Calculator) Reset() {
	*c = Calculator{ops: make(map[string]uint64)}
}

func (c *Calculator) rate(samples uint64) uint16 {
	if c.outputSamples == 0 {
		return 0
	}
	return Q14FromFloat(float64(samples) / float64(c.outputSamples))
}

// Network returns the network statistics with rates for the current window.
func (c *Calculator) Network() NetworkStatistics {
	n := c.network
	n.ExpandRate = c.rate(c.expandSamples)
	n.SpeechExpandRate = c.rate(c.speechExpandSamples)
	n.PreemptiveRate = c.rate(c.preemptiveSamples)
	n.AccelerateRate = c.rate(c.accelerateSamples)
	return n
}

// Lifetime returns a copy of the lifetime counters.
func (c *Calculator) Lifetime() LifetimeStatistics {
	return c.lifetime
}

// Snapshot returns a detached copy of all statistics.
func (c *Calculator) Snapshot() Snapshot {
	ops := make(map[string]uint64, len(c.ops))
	for k, v := range c.ops {
		ops[k] = v
	}
	return Snapshot{
		Network:    c.Network(),
		Lifetime:   c.lifetime,
		Operations: ops,
	}
}
