package selector

import (
	"sync"

	"github.com/queuewise/backend/internal/types"
)

// RoundRobin cycles through the candidate pool using a shared atomic counter
// keyed by department, so two concurrent sweeps never claim the same slot
type RoundRobin struct {
	counter Counter
}

// NewRoundRobin creates a round-robin strategy. A nil counter falls back to
// an in-process one.
func NewRoundRobin(counter Counter) *RoundRobin {
	if counter == nil {
		counter = NewMemoryCounter()
	}
	return &RoundRobin{counter: counter}
}

// SelectAgent picks candidate (counter mod N)
func (r *RoundRobin) SelectAgent(candidates []types.Agent, _ []types.AgentPerformance, item *types.QueueItem) *types.Agent {
	if len(candidates) == 0 {
		return nil
	}

	poolID := "global"
	if item != nil && item.DepartmentID != "" {
		poolID = item.DepartmentID
	}

	next, err := r.counter.Next(poolID)
	if err != nil {
		// Counter unavailable: degrade to the head of the pool rather than
		// failing the whole distribution attempt
		return &candidates[0]
	}

	idx := int(next % int64(len(candidates)))
	if idx < 0 {
		idx += len(candidates)
	}
	return &candidates[idx]
}

// MemoryCounter is the in-process Counter used when redis is absent
type MemoryCounter struct {
	counts map[string]int64
	mu     sync.Mutex
}

// NewMemoryCounter creates an empty in-process counter
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

// Next increments and returns the counter for a pool. The first call for a
// pool returns 0 so a fresh pool starts at its first agent.
func (c *MemoryCounter) Next(poolID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := c.counts[poolID]
	c.counts[poolID] = v + 1
	return v, nil
}
