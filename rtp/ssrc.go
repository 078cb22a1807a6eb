package rtp

import "github.com/pion/randutil"

// fallbackSSRC is used when the system random source fails.
const fallbackSSRC = 0x6e657471

// randomSSRC returns a non-zero random stream identifier.
func randomSSRC() uint32 {
	for {
		v, err := randutil.CryptoUint64()
		if err != nil {
			return fallbackSSRC
		}
		if ssrc := uint32(v); ssrc != 0 {
			return ssrc
		}
	}
}
