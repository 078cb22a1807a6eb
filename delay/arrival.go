package delay

import (
	"time"

	"github.com/gammazero/deque"
)

type packetDelay struct {
	iatDelayMs int
	arrival    time.Time
}

// arrivalTracker computes the relative arrival delay of in-order packets.
type arrivalTracker struct {
	maxHistory time.Duration
	history    deque.Deque[packetDelay]

	lastTimestamp uint32
	lastArrival   time.Time
	started       bool
}

func newArrivalTracker(maxHistoryMs uint32) *arrivalTracker {
	return &arrivalTracker{maxHistory: time.Duration(maxHistoryMs) * time.Millisecond}
}

// update records a packet arriving at now and returns the relative delay in ms.
func (t *arrivalTracker) update(timestamp, sampleRate uint32, now time.Time) int {
	iatDelay := 0
	if t.started {
		expectedMs := int(uint64(timestamp-t.lastTimestamp) * 1000 / uint64(sampleRate))
		actualMs := int(now.Sub(t.lastArrival) / time.Millisecond)
		iatDelay = actualMs - expectedMs
	}

	t.history.PushBack(packetDelay{iatDelayMs: iatDelay, arrival: now})
	for t.history.Len() > 0 && now.Sub(t.history.Front().arrival) > t.maxHistory {
		t.history.PopFront()
	}

	t.lastTimestamp = timestamp
	t.lastArrival = now
	t.started = true

	return t.relativeDelay()
}

// relativeDelay is the running sum of inter-arrival deviations, floored at zero.
func (t *arrivalTracker) relativeDelay() int {
	if t.history.Len() < 2 {
		return 0
	}
	rel := 0
	for i := 0; i < t.history.Len(); i++ {
		rel += t.history.At(i).iatDelayMs
		if rel < 0 {
			rel = 0
		}
	}
	return rel
}

func (t *arrivalTracker) reset() {
	t.history.Clear()
	t.started = false
	t.lastTimestamp = 0
	t.lastArrival = time.Time{}
}
