// Package buffer implements PacketBuffer, the ordered and deduplicated store
// of decoded audio packets awaiting playout.
//
// Packets are kept in a deque sorted by wraparound-aware timestamp. Insert
// applies the admission policy in this order:
//
//  1. packets that have waited longer than MaxPacketAge are evicted as late;
//  2. if the buffered timestamp span exceeds
//     max(SmartFlush.ThresholdMs, target) * SmartFlush.Multiplier the oldest
//     packets are dropped, keeping just enough recent audio to cover the target;
//  3. if the buffer is at capacity the same partial flush runs, then the
//     oldest packets are dropped until occupancy is below the high-water mark;
//  4. the packet is placed by binary search, a packet with a resident
//     timestamp is rejected as a duplicate.
//
// Each flush is reported once to the Observer as a buffer flush, separately
// from the per-packet discards it causes. The newest packet is never the one
// sacrificed.
package buffer
