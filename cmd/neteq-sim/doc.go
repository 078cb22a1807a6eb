// Package main provides neteq-sim, a command-line player that streams audio
// through a simulated impaired network into the neteq jitter buffer.
//
// # Overview
//
// neteq-sim reads an MP3 file (or generates a tone), packetizes it into RTP,
// applies jitter, reordering, loss and duplication, and plays the result
// through a neteq Engine in virtual time. At the end it prints a summary of
// the playout statistics. Runs are deterministic for a given -seed.
//
// # Usage
//
// Run a ten second tone over a mildly jittery network:
//
//	go run ./cmd/neteq-sim
//
// Play an MP3 through a hostile network and write JSONL statistics:
//
//	go run ./cmd/neteq-sim -input song.mp3 -max-jitter-ms 200 -reorder-window-ms 80 -loss 0.05 -json-stats neteq_stats.jsonl
//
// Record a run and replay it later:
//
//	go run ./cmd/neteq-sim -loss 0.1 -record run.trace
//	go run ./cmd/neteq-sim -replay run.trace -min-delay-ms 60
//
// Watch live statistics in a browser-side client at ws://localhost:8080/ws:
//
//	go run ./cmd/neteq-sim -dashboard :8080 -realtime -duration 5m
//
// # Scenario Files
//
// -config loads a YAML scenario. Every key present in the file overrides
// the corresponding flag:
//
//	duration: 30s
//	sample_rate: 48000
//	min_delay_ms: 40
//	network:
//	  max_jitter_ms: 120
//	  reorder_window_ms: 50
//	  loss: 0.05
//	  seed: 7
//
// # Exit Codes
//
//   - 0: the run completed
//   - 1: invalid configuration or a failed run
package main
