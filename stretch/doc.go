// Package stretch implements the sample-domain time stretching used by the
// playout engine.
//
// Accelerate shortens playout by cutting the longest quiet region out of a
// window of decoded audio. PreemptiveExpand lengthens playout by repeating
// the segment that best correlates with its predecessor. Both splice the cut
// edges with a short linear crossfade (OverlapLength, 3 ms) and both are
// deterministic: identical input always yields identical output.
//
// Expand synthesizes audio when nothing is available to play. It repeats the
// most recent pitch cycle with decaying gain and crossfades back into real
// audio when packets resume.
//
// All processors take interleaved PCM. Searches run on the mono downmix and
// the resulting cut points are applied to every channel.
package stretch
