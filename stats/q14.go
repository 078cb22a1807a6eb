package stats

// Q14Scale is the fixed-point scale of rate values.
const Q14Scale = 16384.0

// Q14FromFloat converts a ratio to Q14, clamped to [0, 1].
func Q14FromFloat(ratio float64) uint16 {
	return uint16(min(max(ratio*Q14Scale, 0), Q14Scale))
}

// Q14ToFloat converts a Q14 value to a ratio.
func Q14ToFloat(v uint16) float64 {
	return float64(v) / Q14Scale
}

// Q14ToPerMille converts a Q14 value to parts per thousand.
func Q14ToPerMille(v uint16) float32 {
	return float32(v) / (Q14Scale / 1000)
}

// Q14FromPerMille converts parts per thousand to Q14.
func Q14FromPerMille(perMille float32) uint16 {
	return Q14FromFloat(float64(perMille) / 1000)
}
