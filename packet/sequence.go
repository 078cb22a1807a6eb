package packet

// IsTimestampNewer reports whether timestamp a is after b on the wrapping
// 32-bit sample clock.
func IsTimestampNewer(a, b uint32) bool {
	return a != b && a-b < 0x80000000
}

// TimestampDiff returns a-b interpreted as a signed distance.
func TimestampDiff(a, b uint32) int32 {
	return int32(a - b)
}

// IsSequenceNewer reports whether sequence a is after b for 32-bit counters.
func IsSequenceNewer(a, b uint32) bool {
	return a != b && a-b < 0x80000000
}

// IsSequenceNewer16 reports whether a is after b for raw 16-bit RTP sequence numbers.
func IsSequenceNewer16(a, b uint16) bool {
	return a != b && a-b < 0x8000
}

// SequenceUnwrapper extends 16-bit RTP sequence numbers into a monotonic
// 32-bit space.
type SequenceUnwrapper struct {
	last    uint16
	cycles  uint32
	started bool
}

// Unwrap returns the extended sequence number for seq. Late packets from the
// previous cycle map below the current cycle.
func (u *SequenceUnwrapper) Unwrap(seq uint16) uint32 {
	if !u.started {
		u.started = true
		u.last = seq
		return uint32(seq)
	}

	cycles := u.cycles
	if IsSequenceNewer16(seq, u.last) {
		if seq < u.last {
			u.cycles += 1 << 16
			cycles = u.cycles
		}
		u.last = seq
	} else if seq > u.last && cycles > 0 {
		cycles -= 1 << 16
	}
	return cycles | uint32(seq)
}

// Reset forgets the sequence history.
func (u *SequenceUnwrapper) Reset() {
	*u = SequenceUnwrapper{}
}
