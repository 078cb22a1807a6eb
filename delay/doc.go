// Package delay estimates how much audio the jitter buffer should hold.
//
// Manager consumes one Update per arriving packet. It measures each packet's
// inter-arrival time against the cadence implied by its timestamp, keeps a
// running sum of those deviations over a bounded history (the relative
// arrival delay), and registers the worst value of every resample interval
// into a forgetting Histogram. The target delay is the bucket holding the
// configured quantile (95th percentile by default), clamped to the effective
// minimum and maximum bounds.
//
// # Reordered packets
//
// A packet that is older than the newest timestamp already seen is counted
// in ReorderedCount but otherwise ignored: it does not enter the
// inter-arrival history and does not become the timing reference. The
// histogram therefore describes the jitter of in-order arrivals only, and a
// single late straggler cannot inflate the target.
//
// # Start of stream
//
// Until the first resample interval has been registered the target falls back
// to the effective minimum delay (at least one bucket).
package delay
