package buffer

import (
	"fmt"
	"time"

	"github.com/gammazero/deque"
	"github.com/opd-ai/neteq/clock"
	"github.com/opd-ai/neteq/limits"
	"github.com/opd-ai/neteq/packet"
	"github.com/sirupsen/logrus"
)

// Observer receives buffer events. *stats.Calculator implements it.
type Observer interface {
	PacketReceived(samples int)
	PacketInOrder()
	PacketReordered(distance int)
	PacketDuplicate()
	PacketDiscarded(late bool)
	BufferFlush()
}

// SmartFlushConfig controls span-based flushing.
type SmartFlushConfig struct {
	ThresholdMs uint32
	Multiplier  uint32
}

// Config holds PacketBuffer parameters.
type Config struct {
	MaxPackets    int
	HighWaterMark int // zero selects three quarters of MaxPackets
	SmartFlush    SmartFlushConfig
	MaxPacketAge  time.Duration
}

// DefaultConfig returns the default configuration for a buffer of maxPackets.
func DefaultConfig(maxPackets int) Config {
	return Config{
		MaxPackets:   maxPackets,
		SmartFlush:   SmartFlushConfig{ThresholdMs: 500, Multiplier: 3},
		MaxPacketAge: 2 * time.Second,
	}
}

// Status describes the outcome of an insert.
type Status int

const (
	// Inserted means the packet is now resident
	Inserted Status = iota
	// Duplicate means a packet with the same timestamp was already resident
	Duplicate
)

// InsertResult reports what Insert did.
type InsertResult struct {
	Status    Status
	Reordered bool
	Distance  int
	Flushed   bool
	Discarded int
}

// PacketBuffer is the ordered packet store. It is not safe for concurrent use.
type PacketBuffer struct {
	config       Config
	highWater    int
	packets      deque.Deque[*packet.AudioPacket]
	timeProvider clock.TimeProvider
}

// NewPacketBuffer creates a PacketBuffer. A nil TimeProvider uses the system clock.
func NewPacketBuffer(config Config, tp clock.TimeProvider) (*PacketBuffer, error) {
	if config.MaxPackets <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, config.MaxPackets)
	}
	hw := config.HighWaterMark
	if hw <= 0 || hw > config.MaxPackets {
		hw = max(config.MaxPackets*3/4, 1)
	}
	b := &PacketBuffer{
		config:       config,
		highWater:    hw,
		timeProvider: clock.OrDefault(tp),
	}
	b.packets.Grow(config.MaxPackets)
	return b, nil
}

// SetTimeProvider replaces the clock used for packet age checks.
func (b *PacketBuffer) SetTimeProvider(tp clock.TimeProvider) {
	b.timeProvider = clock.OrDefault(tp)
}

// Insert admits pkt, flushing old audio if needed. Only malformed packets
// produce an error.
func (b *PacketBuffer) Insert(pkt *packet.AudioPacket, obs Observer, targetDelayMs uint32) (InsertResult, error) {
	var res InsertResult
	if pkt == nil {
		return res, ErrNilPacket
	}
	if err := limits.ValidatePayload(pkt.Payload); err != nil {
		return res, fmt.Errorf("insert packet %d: %w", pkt.Sequence, err)
	}
	obs = orNop(obs)

	res.Discarded += b.discardAged(obs)

	if b.shouldSmartFlush(targetDelayMs) {
		if n := b.partialFlush(targetDelayMs, obs); n > 0 {
			res.Discarded += n
			res.Flushed = true
			obs.BufferFlush()
			logrus.WithFields(logrus.Fields{
				"function":  "PacketBuffer.Insert",
				"discarded": n,
				"remaining": b.packets.Len(),
				"target_ms": targetDelayMs,
			}).Debug("Smart flush of excess span")
		}
	}

	if b.packets.Len() >= b.config.MaxPackets {
		n := b.partialFlush(targetDelayMs, obs)
		for b.packets.Len() >= b.highWater {
			b.packets.PopFront()
			obs.PacketDiscarded(false)
			n++
		}
		res.Discarded += n
		res.Flushed = true
		obs.BufferFlush()
		logrus.WithFields(logrus.Fields{
			"function":   "PacketBuffer.Insert",
			"discarded":  n,
			"remaining":  b.packets.Len(),
			"capacity":   b.config.MaxPackets,
			"high_water": b.highWater,
		}).Warn("Buffer overflow: flushed oldest packets")
	}

	pos := b.insertPosition(pkt.Timestamp)
	if pos > 0 && b.packets.At(pos-1).Timestamp == pkt.Timestamp {
		obs.PacketDuplicate()
		res.Status = Duplicate
		logrus.WithFields(logrus.Fields{
			"function":  "PacketBuffer.Insert",
			"sequence":  pkt.Sequence,
			"timestamp": pkt.Timestamp,
		}).Debug("Discarding duplicate packet")
		return res, nil
	}

	if pos < b.packets.Len() {
		res.Reordered = true
		res.Distance = b.packets.Len() - pos
		obs.PacketReordered(res.Distance)
		logrus.WithFields(logrus.Fields{
			"function":  "PacketBuffer.Insert",
			"sequence":  pkt.Sequence,
			"timestamp": pkt.Timestamp,
			"distance":  res.Distance,
		}).Debug("Reordered packet detected")
	} else {
		obs.PacketInOrder()
	}

	b.packets.Insert(pos, pkt)
	obs.PacketReceived(pkt.SamplesPerChannel())
	res.Status = Inserted
	return res, nil
}

// insertPosition returns the index after every resident packet with a
// timestamp at or before ts.
func (b *PacketBuffer) insertPosition(ts uint32) int {
	low, high := 0, b.packets.Len()
	for low < high {
		mid := (low + high) / 2
		if packet.IsTimestampNewer(b.packets.At(mid).Timestamp, ts) {
			high = mid
		} else {
			low = mid + 1
		}
	}
	return low
}

func (b *PacketBuffer) shouldSmartFlush(targetDelayMs uint32) bool {
	if b.packets.Len() == 0 || b.config.SmartFlush.Multiplier == 0 {
		return false
	}
	threshold := max(b.config.SmartFlush.ThresholdMs, targetDelayMs) * b.config.SmartFlush.Multiplier
	return b.SpanDurationMs() > threshold
}

// partialFlush drops the oldest packets, keeping the newest ones whose
// summed duration first reaches targetDelayMs. It returns the number removed.
func (b *PacketBuffer) partialFlush(targetDelayMs uint32, obs Observer) int {
	n := b.packets.Len()
	if n == 0 {
		return 0
	}

	var kept float64
	keep := 0
	for i := n - 1; i >= 0; i-- {
		kept += float64(b.packets.At(i).DurationMs)
		keep++
		if kept >= float64(targetDelayMs) {
			break
		}
	}

	remove := n - keep
	now := b.timeProvider.Now()
	for i := 0; i < remove; i++ {
		p := b.packets.PopFront()
		obs.PacketDiscarded(p.IsOlderThan(b.config.MaxPacketAge, now))
	}
	return remove
}

// discardAged removes packets that have waited longer than MaxPacketAge.
func (b *PacketBuffer) discardAged(obs Observer) int {
	if b.config.MaxPacketAge <= 0 {
		return 0
	}
	now := b.timeProvider.Now()
	removed := 0
	for i := b.packets.Len() - 1; i >= 0; i-- {
		if b.packets.At(i).IsOlderThan(b.config.MaxPacketAge, now) {
			b.packets.Remove(i)
			obs.PacketDiscarded(true)
			removed++
		}
	}
	if removed > 0 {
		logrus.WithFields(logrus.Fields{
			"function":  "PacketBuffer.discardAged",
			"discarded": removed,
			"max_age":   b.config.MaxPacketAge,
		}).Debug("Discarded stale packets")
	}
	return removed
}

// GetNextPacket removes and returns the packet with the lowest timestamp, or
// nil if the buffer is empty.
func (b *PacketBuffer) GetNextPacket() *packet.AudioPacket {
	if b.packets.Len() == 0 {
		return nil
	}
	return b.packets.PopFront()
}

// PushFront returns a packet to the head of the buffer. It is used when a
// decoded packet cannot be played yet.
func (b *PacketBuffer) PushFront(pkt *packet.AudioPacket) {
	b.packets.PushFront(pkt)
}

// Front returns the packet with the lowest timestamp without removing it.
func (b *PacketBuffer) Front() *packet.AudioPacket {
	if b.packets.Len() == 0 {
		return nil
	}
	return b.packets.Front()
}

// PeekNextTimestamp returns the lowest resident timestamp.
func (b *PacketBuffer) PeekNextTimestamp() (uint32, bool) {
	if b.packets.Len() == 0 {
		return 0, false
	}
	return b.packets.Front().Timestamp, true
}

// DiscardOlderThan evicts packets whose timestamp precedes ts. They arrived
// but too late to be played and are reported as late discards.
func (b *PacketBuffer) DiscardOlderThan(ts uint32, obs Observer) int {
	obs = orNop(obs)
	removed := 0
	for b.packets.Len() > 0 && packet.IsTimestampNewer(ts, b.packets.Front().Timestamp) {
		p := b.packets.PopFront()
		obs.PacketDiscarded(true)
		removed++
		logrus.WithFields(logrus.Fields{
			"function":  "PacketBuffer.DiscardOlderThan",
			"sequence":  p.Sequence,
			"timestamp": p.Timestamp,
			"limit":     ts,
		}).Debug("Discarded late packet")
	}
	return removed
}

// Flush removes every packet and reports a single flush if any were resident.
func (b *PacketBuffer) Flush(obs Observer) int {
	n := b.packets.Len()
	b.packets.Clear()
	if n > 0 {
		orNop(obs).BufferFlush()
		logrus.WithFields(logrus.Fields{
			"function": "PacketBuffer.Flush",
			"flushed":  n,
		}).Info("Flushed packet buffer")
	}
	return n
}

// Len returns the number of resident packets.
func (b *PacketBuffer) Len() int {
	return b.packets.Len()
}

// IsEmpty reports whether no packets are resident.
func (b *PacketBuffer) IsEmpty() bool {
	return b.packets.Len() == 0
}

// Capacity returns the configured maximum number of packets.
func (b *PacketBuffer) Capacity() int {
	return b.config.MaxPackets
}

// HighWaterMark returns the occupancy an overflow flush reduces below.
func (b *PacketBuffer) HighWaterMark() int {
	return b.highWater
}

// Utilization returns occupancy as a percentage of capacity.
func (b *PacketBuffer) Utilization() float32 {
	return float32(b.packets.Len()) / float32(b.config.MaxPackets) * 100
}

// SpanDurationMs returns the timestamp distance between the oldest and newest
// packets in milliseconds.
func (b *PacketBuffer) SpanDurationMs() uint32 {
	if b.packets.Len() == 0 {
		return 0
	}
	front := b.packets.Front()
	span := uint64(b.packets.Back().Timestamp - front.Timestamp)
	return uint32(span * 1000 / uint64(front.SampleRate))
}

// TotalContentDurationMs returns the summed duration of all resident packets.
func (b *PacketBuffer) TotalContentDurationMs() float64 {
	var total float64
	for i := 0; i < b.packets.Len(); i++ {
		total += float64(b.packets.At(i).DurationMs)
	}
	return total
}

// NumSamples returns the resident sample frames (per channel).
func (b *PacketBuffer) NumSamples() int {
	total := 0
	for i := 0; i < b.packets.Len(); i++ {
		total += b.packets.At(i).SamplesPerChannel()
	}
	return total
}

// Timestamps returns the resident timestamps in playout order.
func (b *PacketBuffer) Timestamps() []uint32 {
	out := make([]uint32, b.packets.Len())
	for i := range out {
		out[i] = b.packets.At(i).Timestamp
	}
	return out
}

type nopObserver struct{}

func (nopObserver) PacketReceived(int)   {}
func (nopObserver) PacketInOrder()       {}
func (nopObserver) PacketReordered(int)  {}
func (nopObserver) PacketDuplicate()     {}
func (nopObserver) PacketDiscarded(bool) {}
func (nopObserver) BufferFlush()         {}

func orNop(obs Observer) Observer {
	if obs == nil {
		return nopObserver{}
	}
	return obs
}
