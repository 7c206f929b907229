package selector

import (
	"strings"

	"github.com/queuewise/backend/internal/types"
)

// skillKeywords maps message keywords to the skill an agent needs to
// handle them
var skillKeywords = map[string]string{
	"refund":    "billing",
	"invoice":   "billing",
	"payment":   "billing",
	"charge":    "billing",
	"bug":       "technical",
	"error":     "technical",
	"crash":     "technical",
	"api":       "technical",
	"cancel":    "retention",
	"downgrade": "retention",
}

// SkillBased filters candidates to those whose skill set covers the skills
// the queue item requires, then picks the least loaded. Returns nil when no
// candidate qualifies, letting Hybrid fall back.
type SkillBased struct{}

// SelectAgent picks the least-loaded candidate holding all required skills
func (s *SkillBased) SelectAgent(candidates []types.Agent, performances []types.AgentPerformance, item *types.QueueItem) *types.Agent {
	required := RequiredSkills(item)

	qualified := make([]int, 0, len(candidates))
	for i := range candidates {
		perf, ok := perfFor(performances, candidates[i].ID)
		if !ok {
			continue
		}
		if hasAllSkills(perf.Skills, required) {
			qualified = append(qualified, i)
		}
	}
	if len(qualified) == 0 {
		return nil
	}

	best := qualified[0]
	bestLoad := loadFor(performances, candidates[best].ID)
	for _, i := range qualified[1:] {
		load := loadFor(performances, candidates[i].ID)
		if load < bestLoad {
			best = i
			bestLoad = load
		}
	}
	return &candidates[best]
}

// RequiredSkills derives the skills a queue item needs from its tags and the
// keywords of its latest message
func RequiredSkills(item *types.QueueItem) []string {
	if item == nil {
		return nil
	}

	seen := make(map[string]bool)
	var skills []string
	add := func(skill string) {
		if skill != "" && !seen[skill] {
			seen[skill] = true
			skills = append(skills, skill)
		}
	}

	for _, tag := range item.Metadata.Tags {
		if skill, ok := strings.CutPrefix(tag, "skill:"); ok {
			add(skill)
		}
	}

	content := strings.ToLower(item.Metadata.LastMessage.Content)
	for keyword, skill := range skillKeywords {
		if strings.Contains(content, keyword) {
			add(skill)
		}
	}

	return skills
}

func hasAllSkills(agentSkills, required []string) bool {
	for _, req := range required {
		found := false
		for _, have := range agentSkills {
			if have == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func loadFor(performances []types.AgentPerformance, agentID string) float64 {
	if perf, ok := perfFor(performances, agentID); ok {
		return perf.CurrentLoad
	}
	return 0
}
