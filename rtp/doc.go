// Package rtp bridges RTP datagrams and the jitter buffer.
//
// A Depacketizer parses datagrams with github.com/pion/rtp, locks onto the
// first SSRC it sees, extends 16-bit sequence numbers, decodes the payload
// through a codec.Registry and converts the audio to the engine format:
//
//	reg := codec.NewRegistry()
//	_ = reg.Register(96, codec.NewOpusDecoder())
//	depack, _ := rtp.NewDepacketizer(rtp.DepacketizerConfig{
//	    Registry:   reg,
//	    SampleRate: 48000,
//	    Channels:   1,
//	})
//	pkt, err := depack.Process(datagram)
//	if err == nil {
//	    _ = engine.InsertPacket(pkt)
//	}
//
// A Packetizer produces datagrams carrying L16 or float payloads, for
// senders and for the simulator.
//
// Depacketizer and Packetizer are safe for concurrent use.
package rtp
