// Package entropy provides the goroutine-safe random source used for
// scenario draws. A zero seed is replaced with one read from crypto/rand.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"time"
)

// Source is a seeded math/rand generator safe for concurrent use.
type Source struct {
	seed int64

	mu  sync.Mutex
	rng *mathrand.Rand
}

// New creates a Source. seed 0 draws a fresh seed.
func New(seed int64) *Source {
	if seed == 0 {
		seed = cryptoSeed()
	}
	return &Source{seed: seed, rng: mathrand.New(mathrand.NewSource(seed))}
}

// Seed returns the effective seed, for logging and replay.
func (s *Source) Seed() int64 {
	return s.seed
}

// Intn returns a value in [0, n). It panics if n <= 0, like math/rand.
func (s *Source) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// cryptoSeed reads a non-zero seed from crypto/rand, falling back to the
// clock if the system source fails.
func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		slog.Warn("crypto/rand unavailable, seeding from clock", "error", err)
		return time.Now().UnixNano() | 1
	}
	// Drop the sign bit so seeds log as positive numbers.
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
