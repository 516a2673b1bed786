// Package mathx holds the deterministic helpers every generator builds on:
// coordinate hashing, position-local random sources and block snapping.
// Nothing in here may depend on call order.
package mathx

import "math/rand"

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash1 returns a stable hash for a horizontal coordinate and seed.
func Hash1(seed int64, x int) uint64 {
	return mix64(uint64(seed) ^ (uint64(x) * 0x9e3779b97f4a7c15))
}

// Hash2 returns a stable hash for a 2D coordinate and seed.
func Hash2(seed int64, x, y int) uint64 {
	v := uint64(seed) ^ (uint64(x) * 0x9e3779b97f4a7c15) ^ (uint64(y) * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// SourceAt returns a fresh random source derived only from (seed, x).
// Two calls with the same arguments always produce the same stream.
func SourceAt(seed int64, x int) *rand.Rand {
	return rand.New(rand.NewSource(int64(Hash1(seed, x))))
}

// SourceAt2 is SourceAt for 2D coordinates.
func SourceAt2(seed int64, x, y int) *rand.Rand {
	return rand.New(rand.NewSource(int64(Hash2(seed, x, y))))
}

// Salt derives a sub-seed so independent generators sharing a world seed do
// not share streams.
func Salt(seed int64, salt uint64) int64 {
	return int64(mix64(uint64(seed) ^ salt))
}
