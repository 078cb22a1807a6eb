// Package clock abstracts wall-clock reads so that packet arrival timing,
// waiting times and staleness checks can be driven deterministically.
//
// Production code uses DefaultTimeProvider. Tests and the network simulator
// inject a MockTimeProvider and advance it in lockstep with the 10 ms playout
// cadence:
//
//	clk := clock.NewMockTimeProvider(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
//	engine.SetTimeProvider(clk)
//	clk.Advance(10 * time.Millisecond)
package clock
