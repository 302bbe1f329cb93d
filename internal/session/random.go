package session

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Shuffler is the random source used for deck and choice permutations.
// *math/rand.Rand satisfies it.
type Shuffler interface {
	// Intn returns a uniform integer in [0, n).
	Intn(n int) int
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// NewRand returns a Shuffler seeded with seed. A zero seed draws a fresh one
// from crypto/rand.
func NewRand(seed int64) (*rand.Rand, error) {
	if seed == 0 {
		s, err := NewSeed()
		if err != nil {
			return nil, err
		}
		seed = s
	}
	return rand.New(rand.NewSource(seed)), nil
}

// fisherYates permutes s in place: i runs from the last index down to 1 and
// is swapped with j drawn uniformly from [0, i].
func fisherYates[T any](rng Shuffler, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
