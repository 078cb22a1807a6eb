package buffer

import "errors"

var (
	// ErrNilPacket indicates Insert was called without a packet
	ErrNilPacket = errors.New("nil packet")
	// ErrInvalidCapacity indicates a buffer configured without room for packets
	ErrInvalidCapacity = errors.New("buffer capacity must be positive")
)
