package selector

import (
	"fmt"

	"github.com/queuewise/backend/internal/types"
)

// maxLoadForSelection is the normalized load above which an agent is not
// considered for new assignments
const maxLoadForSelection = 0.8

// Strategy selects the best agent for a queue item from an already-filtered
// candidate list. Returns nil when no candidate qualifies.
type Strategy interface {
	SelectAgent(candidates []types.Agent, performances []types.AgentPerformance, item *types.QueueItem) *types.Agent
}

// Counter provides an atomically-incremented counter per pool, shared across
// concurrent sweeps. Backed by redis in production, in-memory in tests.
type Counter interface {
	Next(poolID string) (int64, error)
}

// FilterAvailable keeps agents that are online, below their personal
// concurrent-chat cap, and under the load ceiling. Agents without a
// performance snapshot are considered available.
func FilterAvailable(agents []types.Agent, performances []types.AgentPerformance) []types.Agent {
	out := make([]types.Agent, 0, len(agents))
	for _, agent := range agents {
		perf, ok := perfFor(performances, agent.ID)
		if !ok {
			out = append(out, agent)
			continue
		}
		if perf.Status == types.AgentOnline &&
			perf.ActiveChats < agent.MaxConcurrentChats &&
			perf.CurrentLoad < maxLoadForSelection {
			out = append(out, agent)
		}
	}
	return out
}

// ForMethod returns the strategy configured for a department. The hybrid
// strategy composes skill-based and performance-based by delegation.
func ForMethod(method types.DistributionMethod, counter Counter, rnd RandSource) (Strategy, error) {
	switch method {
	case types.MethodRoundRobin, "":
		return NewRoundRobin(counter), nil
	case types.MethodLeastBusy:
		return &LeastBusy{}, nil
	case types.MethodRandom:
		return NewRandom(rnd), nil
	case types.MethodPerformance:
		return &PerformanceBased{}, nil
	case types.MethodSkillBased:
		return &SkillBased{}, nil
	case types.MethodHybrid:
		return &Hybrid{Skill: &SkillBased{}, Fallback: &PerformanceBased{}}, nil
	default:
		return nil, fmt.Errorf("unknown distribution method %q", method)
	}
}

func perfFor(performances []types.AgentPerformance, agentID string) (types.AgentPerformance, bool) {
	for _, p := range performances {
		if p.AgentID == agentID {
			return p, true
		}
	}
	return types.AgentPerformance{}, false
}
