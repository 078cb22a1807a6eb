// Package packet defines AudioPacket, the unit of decoded audio exchanged
// between the transport edge and the jitter buffer core.
//
// A packet carries interleaved float32 PCM plus the RTP-style sequence number
// and sample-clock timestamp used for ordering. Both counters wrap, so every
// ordering decision goes through the helpers in sequence.go:
//
//	if packet.IsTimestampNewer(a.Timestamp, b.Timestamp) {
//	    // a plays after b
//	}
//
// Packets are immutable once built with New. The engine stamps ArrivalTime
// on insertion; callers leave it zero.
package packet
