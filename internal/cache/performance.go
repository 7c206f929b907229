package cache

import (
	"sync"
	"time"

	"github.com/queuewise/backend/internal/types"
)

const (
	// StaleThreshold is the duration after which an agent snapshot without
	// updates is treated as offline
	StaleThreshold = 90 * time.Second
)

// PerformanceStore maintains the live performance snapshot of every agent.
// Writers are external events (presence, chat open/close, surveys); readers
// are the selector strategies and the metrics aggregator.
type PerformanceStore struct {
	agents map[string]*types.AgentPerformance // agentID -> snapshot
	mu     sync.RWMutex
}

// NewPerformanceStore creates an empty performance store
func NewPerformanceStore() *PerformanceStore {
	return &PerformanceStore{
		agents: make(map[string]*types.AgentPerformance),
	}
}

// Apply merges a performance event into an agent's snapshot, creating the
// snapshot if the agent is unknown. Nil fields leave the current value.
func (s *PerformanceStore) Apply(event types.PerformanceEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perf, exists := s.agents[event.AgentID]
	if !exists {
		perf = &types.AgentPerformance{
			AgentID: event.AgentID,
			Status:  types.AgentOffline,
		}
		s.agents[event.AgentID] = perf
	}

	if event.ActiveChats != nil {
		perf.ActiveChats = *event.ActiveChats
	}
	if event.AverageResponseTime != nil {
		perf.AverageResponseTime = *event.AverageResponseTime
	}
	if event.ResolutionRate != nil {
		perf.ResolutionRate = *event.ResolutionRate
	}
	if event.SatisfactionScore != nil {
		perf.SatisfactionScore = clamp(*event.SatisfactionScore, 0, 5)
	}
	if event.CurrentLoad != nil {
		perf.CurrentLoad = clamp(*event.CurrentLoad, 0, 1)
	}
	if event.Status != "" {
		perf.Status = event.Status
	}
	if event.Skills != nil {
		perf.Skills = event.Skills
	}
	perf.UpdatedAt = time.Now()
}

// RecordAssignment bumps an agent's active chat count after a successful
// distribution so the next selection in the same sweep sees the new load
func (s *PerformanceStore) RecordAssignment(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perf, exists := s.agents[agentID]
	if !exists {
		return
	}
	now := time.Now()
	perf.ActiveChats++
	perf.LastAssignment = &now
	perf.UpdatedAt = now
}

// RecordRelease decrements an agent's active chat count when a chat closes
func (s *PerformanceStore) RecordRelease(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perf, exists := s.agents[agentID]
	if !exists || perf.ActiveChats == 0 {
		return
	}
	perf.ActiveChats--
	perf.UpdatedAt = time.Now()
}

// Get returns a copy of one agent's snapshot
func (s *PerformanceStore) Get(agentID string) (types.AgentPerformance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	perf, ok := s.agents[agentID]
	if !ok {
		return types.AgentPerformance{}, false
	}
	return *perf, true
}

// GetMany returns snapshots for the given agent ids. Agents without a
// snapshot are omitted.
func (s *PerformanceStore) GetMany(agentIDs []string) []types.AgentPerformance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.AgentPerformance, 0, len(agentIDs))
	for _, id := range agentIDs {
		if perf, ok := s.agents[id]; ok {
			out = append(out, *perf)
		}
	}
	return out
}

// GetAll returns every agent's snapshot
func (s *PerformanceStore) GetAll() []types.AgentPerformance {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.AgentPerformance, 0, len(s.agents))
	for _, perf := range s.agents {
		out = append(out, *perf)
	}
	return out
}

// MarkStale flips agents without recent updates to offline so the selector
// stops considering them. Returns the number of agents marked.
func (s *PerformanceStore) MarkStale() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := time.Now().Add(-StaleThreshold)
	marked := 0
	for _, perf := range s.agents {
		if perf.Status != types.AgentOffline && perf.UpdatedAt.Before(threshold) {
			perf.Status = types.AgentOffline
			marked++
		}
	}
	return marked
}

// Count returns the number of tracked agents
func (s *PerformanceStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
