// Package rng provides the production domain.RNG implementation over
// math/rand, and a deterministic sequence-driven fake for tests of quiz
// interleaving.
package rng

import (
	"math/rand"
	"sync"
)

// System is domain.RNG backed by a process-local *rand.Rand, safe for
// concurrent use across learners: a *rand.Rand built from NewSource is not,
// so Intn serializes access with its own mutex.
type System struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSystem seeds a new System RNG.
func NewSystem(seed int64) *System {
	return &System{r: rand.New(rand.NewSource(seed))}
}

func (s *System) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Sequence is a domain.RNG fake that returns values from a fixed list in
// order, cycling once exhausted — enough determinism to assert a specific
// interleaving outcome in tests without reimplementing the shuffle.
type Sequence struct {
	values []int
	pos    int
}

// NewSequence returns a Sequence RNG that will emit values in order,
// wrapping around once exhausted.
func NewSequence(values ...int) *Sequence {
	return &Sequence{values: values}
}

func (s *Sequence) Intn(n int) int {
	if len(s.values) == 0 || n <= 0 {
		return 0
	}
	v := s.values[s.pos%len(s.values)] % n
	s.pos++
	if v < 0 {
		v += n
	}
	return v
}
