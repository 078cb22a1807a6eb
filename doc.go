// Package neteq implements an adaptive jitter buffer for real-time audio.
//
// An Engine sits between a packet transport and an audio sink that pulls a
// fixed 10 ms frame at a steady cadence. Decoded packets are pushed with
// InsertPacket as they arrive, in any order. GetAudio always returns a full
// frame: it plays buffered audio, stretches it to steer the buffer toward a
// target delay, or conceals missing audio when nothing is ready.
//
// # Getting Started
//
//	options := neteq.NewOptions()
//	options.SampleRate = 48000
//	options.MinDelayMs = 40
//
//	engine, err := neteq.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Transport goroutine hands packets to the audio goroutine, which owns
//	// the engine.
//	pkt, _ := packet.New(seq, timestamp, pcm, 48000, 1)
//	if err := engine.InsertPacket(pkt); err != nil {
//	    log.Printf("dropped malformed packet: %v", err)
//	}
//
//	frame, err := engine.GetAudio()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sink.Write(frame.Samples)
//
// # Decisions
//
// Each GetAudio call picks one Operation. The target delay comes from the
// delay package's arrival histogram; the buffer level is smoothed by a
// BufferLevelFilter. Above the target the engine accelerates, below it the
// engine preemptively expands, and with nothing to play it expands
// (conceals). Decide is the pure decision function and can be used on its
// own.
//
// # Concurrency
//
// An Engine is not safe for concurrent use. It owns no goroutines and takes
// no locks; callers that insert from a network goroutine must serialize
// access themselves.
package neteq
