package selector

import "github.com/queuewise/backend/internal/types"

// Score normalization caps
const (
	chatCap         = 10.0  // active chats above this score zero
	responseTimeCap = 300.0 // seconds
)

// PerformanceBased selects the candidate with the highest weighted
// performance score
type PerformanceBased struct{}

// SelectAgent scores every candidate with a snapshot and returns the maximum.
// When no candidate has a snapshot the head of the list wins.
func (p *PerformanceBased) SelectAgent(candidates []types.Agent, performances []types.AgentPerformance, _ *types.QueueItem) *types.Agent {
	if len(candidates) == 0 {
		return nil
	}

	best := -1
	bestScore := 0.0
	for i := range candidates {
		perf, ok := perfFor(performances, candidates[i].ID)
		if !ok {
			continue
		}
		score := performanceScore(perf)
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}

	if best == -1 {
		return &candidates[0]
	}
	return &candidates[best]
}

// performanceScore weighs chat load 0.2, response time 0.2, resolution rate
// 0.3, satisfaction 0.2 and current load 0.1. Higher is better.
func performanceScore(perf types.AgentPerformance) float64 {
	chatScore := (1 - clampUnit(float64(perf.ActiveChats)/chatCap)) * 0.2
	responseScore := (1 - clampUnit(perf.AverageResponseTime/responseTimeCap)) * 0.2
	resolutionScore := clampUnit(perf.ResolutionRate/100) * 0.3
	satisfactionScore := clampUnit(perf.SatisfactionScore/5) * 0.2
	loadScore := (1 - clampUnit(perf.CurrentLoad)) * 0.1

	return chatScore + responseScore + resolutionScore + satisfactionScore + loadScore
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
