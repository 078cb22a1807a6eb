// Package simulation drives a neteq Engine through an impaired, in-memory
// network for deterministic testing and offline experiments.
//
// # Overview
//
// A Runner reads 20 ms frames from a Source, wraps them in RTP datagrams,
// passes every datagram through a seeded Network that applies jitter,
// reordering, loss, burst loss and duplication, and delivers the survivors
// to an rtp.Depacketizer feeding the Engine. Playout is pulled every 10 ms
// of virtual time. No real sleeping takes place; a clock.MockTimeProvider is
// advanced instead, so a ten minute scenario runs in well under a second and
// produces the same output for the same seed.
//
// # Usage
//
//	options := neteq.NewOptions()
//	options.SampleRate = 48000
//
//	config := simulation.DefaultConfig()
//	config.Engine = options
//	config.Network.MaxJitterMs = 120
//	config.Network.LossProbability = 0.05
//	config.Duration = 30 * time.Second
//
//	runner, err := simulation.NewRunner(config, simulation.NewToneSource(440, 0.3, 48000, 1))
//	if err != nil {
//	    return err
//	}
//	result, err := runner.Run(ctx)
//
// # Statistics
//
// When Config.StatsWriter is set the runner writes one JSON object per line
// every Config.StatsInterval, carrying the buffer level, target delay, packet
// count and the expand, accelerate and reorder rates at that moment.
//
// # Traces
//
// Config.Trace records every datagram that left the network together with
// its delivery time. A recorded Trace replays through NewReplayRunner
// without the network model, which makes a failing scenario reproducible
// across engine changes.
//
// # Delivery Logs
//
// Network keeps a DeliveryRecord per datagram it was handed. Use
// GetDeliveryLog to inspect it and ClearDeliveryLog to reset it.
//
// # Thread Safety
//
// Network is safe for concurrent use. A Runner owns its engine and must be
// driven from a single goroutine.
package simulation
