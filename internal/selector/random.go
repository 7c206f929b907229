package selector

import (
	"math/rand"
	"time"

	"github.com/queuewise/backend/internal/types"
)

// RandSource provides the randomness for the Random strategy. Injected so
// tests can pin the sequence.
type RandSource interface {
	Intn(n int) int
}

// Random picks a uniformly random candidate
type Random struct {
	rnd RandSource
}

// NewRandom creates a random strategy. A nil source gets a time-seeded one.
func NewRandom(rnd RandSource) *Random {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Random{rnd: rnd}
}

// SelectAgent returns a uniformly random candidate
func (r *Random) SelectAgent(candidates []types.Agent, _ []types.AgentPerformance, _ *types.QueueItem) *types.Agent {
	if len(candidates) == 0 {
		return nil
	}
	return &candidates[r.rnd.Intn(len(candidates))]
}
