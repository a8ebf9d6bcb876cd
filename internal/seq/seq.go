// Package seq provides a seeded pseudo-random scalar stream.
// Every piece of motion that needs "natural" jitter draws from it, so a
// given seed reproduces a given performance exactly.
package seq

// New returns a generator producing values in [0, 1). The stream is a pure
// function of the seed: the same seed always yields the same sequence.
// Calls are allocation-free, cheap enough for once-or-more per frame.
func New(seed uint32) func() float64 {
	state := seed
	return func() float64 {
		state += 0x6D2B79F5
		t := state
		t = (t ^ (t >> 15)) * (t | 1)
		t ^= t + (t^(t>>7))*(t|61)
		return float64(t^(t>>14)) / 4294967296.0
	}
}

// Derive folds a scalar into a seed. The compositor uses it to re-key
// secondary-motion jitter when the emotion profile changes.
func Derive(seed uint32, bias float64) uint32 {
	return seed + uint32(bias)
}
