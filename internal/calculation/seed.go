package calculation

import "math/rand/v2"

const golden = 0x9e3779b97f4a7c15

// splitmix64 is the SplitMix64 output function.
func splitmix64(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// DeriveSeed returns the seed of trial index under seedBase. It depends on
// nothing else, so a trial draws the same numbers whichever worker runs it.
func DeriveSeed(seedBase uint64, index int) uint64 {
	return splitmix64(seedBase ^ splitmix64(uint64(index)+1))
}

func newTrialRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, splitmix64(seed)))
}
