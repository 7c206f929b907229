package cache

import (
	"sync"

	"github.com/queuewise/backend/internal/types"
)

// AssignmentHistory keeps the most recent assignments in a bounded ring.
// The cap prevents unbounded growth in a long-running process; older entries
// live only in the redis history list and the durable store.
type AssignmentHistory struct {
	records []types.AssignmentRecord
	max     int
	mu      sync.RWMutex
}

// NewAssignmentHistory creates a history bounded to max entries
func NewAssignmentHistory(max int) *AssignmentHistory {
	if max <= 0 {
		max = 1000
	}
	return &AssignmentHistory{
		records: make([]types.AssignmentRecord, 0, max),
		max:     max,
	}
}

// Add appends a record, evicting the oldest when the ring is full
func (h *AssignmentHistory) Add(record types.AssignmentRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.records) == h.max {
		copy(h.records, h.records[1:])
		h.records = h.records[:h.max-1]
	}
	h.records = append(h.records, record)
}

// Recent returns up to limit records, newest last
func (h *AssignmentHistory) Recent(limit int) []types.AssignmentRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if limit <= 0 || limit > len(h.records) {
		limit = len(h.records)
	}
	out := make([]types.AssignmentRecord, limit)
	copy(out, h.records[len(h.records)-limit:])
	return out
}

// Size returns the current number of records
func (h *AssignmentHistory) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}
