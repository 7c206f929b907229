package selector

import "github.com/queuewise/backend/internal/types"

// Hybrid tries the skill-based strategy first and falls back to the
// performance-based one when no agent holds the required skills
type Hybrid struct {
	Skill    Strategy
	Fallback Strategy
}

// SelectAgent delegates to Skill, then Fallback
func (h *Hybrid) SelectAgent(candidates []types.Agent, performances []types.AgentPerformance, item *types.QueueItem) *types.Agent {
	if agent := h.Skill.SelectAgent(candidates, performances, item); agent != nil {
		return agent
	}
	return h.Fallback.SelectAgent(candidates, performances, item)
}
