// Package seed provides seed generation for the game randomness sources.
//
// Games never use the global generator: every board and sequence is drawn
// from a *rand.Rand built here, so tests and daily challenges can replay
// them exactly.
package seed

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// pcgStream is the fixed second PCG word; the seed alone selects the stream.
const pcgStream = 0x9e3779b97f4a7c15

// New generates a random seed using crypto/rand.
func New() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Rand returns a deterministic generator for seed.
func Rand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, pcgStream))
}
