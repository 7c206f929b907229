package selector

import "github.com/queuewise/backend/internal/types"

// LeastBusy selects the candidate with the fewest active chats, breaking
// ties in favor of the earlier list position. Candidates without a snapshot
// count as zero active chats.
type LeastBusy struct{}

// SelectAgent picks the candidate with the lowest active chat count
func (l *LeastBusy) SelectAgent(candidates []types.Agent, performances []types.AgentPerformance, _ *types.QueueItem) *types.Agent {
	if len(candidates) == 0 {
		return nil
	}

	best := 0
	bestChats := activeChats(performances, candidates[0].ID)
	for i := 1; i < len(candidates); i++ {
		chats := activeChats(performances, candidates[i].ID)
		if chats < bestChats {
			best = i
			bestChats = chats
		}
	}
	return &candidates[best]
}

func activeChats(performances []types.AgentPerformance, agentID string) int {
	if perf, ok := perfFor(performances, agentID); ok {
		return perf.ActiveChats
	}
	return 0
}
