// Package stats aggregates jitter buffer events into lifetime counters and
// rate metrics.
//
// Calculator is a passive observer: the packet buffer and the engine report
// events (packet received, flush, late discard, concealment, time stretch,
// frame emitted) and Snapshot derives the network view on demand. Rates are
// fractions of emitted output samples in Q14 fixed point (16384 == 1.0),
// accumulated over a window that only ResetRates or Reset clears.
//
// Assess maps a Snapshot onto a coarse QualityLevel for dashboards and logs.
package stats
