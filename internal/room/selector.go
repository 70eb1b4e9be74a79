package room

import (
	"fmt"
	rand "math/rand/v2"
	"sync"
)

// Selector draws winners uniformly at random. The source is injected so
// tests can pin outcomes with a fixed seed (see randutil.New). A single
// selector is shared by all rooms, so draws are serialized.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector over the given source.
func NewSelector(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

// Pick returns a uniformly random index in [0, n). It fails only on an
// empty input; callers guarantee n >= 1 via the readiness pre-check.
func (s *Selector) Pick(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("cannot pick from %d participants", n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n), nil
}
