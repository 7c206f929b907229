package selector

import (
	"errors"
	"testing"

	"github.com/queuewise/backend/internal/types"
)

func agents(ids ...string) []types.Agent {
	out := make([]types.Agent, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.Agent{ID: id, DepartmentID: "billing", MaxConcurrentChats: 5})
	}
	return out
}

func TestFilterAvailable(t *testing.T) {
	pool := agents("a1", "a2", "a3", "a4", "a5")
	performances := []types.AgentPerformance{
		{AgentID: "a1", Status: types.AgentOnline, ActiveChats: 2, CurrentLoad: 0.3},
		{AgentID: "a2", Status: types.AgentOffline, ActiveChats: 0, CurrentLoad: 0},
		{AgentID: "a3", Status: types.AgentOnline, ActiveChats: 5, CurrentLoad: 0.5}, // at personal cap
		{AgentID: "a4", Status: types.AgentOnline, ActiveChats: 1, CurrentLoad: 0.9}, // over load ceiling
		// a5 has no snapshot and counts as available
	}

	got := FilterAvailable(pool, performances)

	want := map[string]bool{"a1": true, "a5": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d available agents, got %d", len(want), len(got))
	}
	for _, agent := range got {
		if !want[agent.ID] {
			t.Errorf("agent %s should have been filtered out", agent.ID)
		}
	}
}

func TestFilterAvailableLoadBoundary(t *testing.T) {
	pool := agents("a1")
	performances := []types.AgentPerformance{
		{AgentID: "a1", Status: types.AgentOnline, ActiveChats: 0, CurrentLoad: 0.8},
	}

	// Load exactly at the ceiling excludes the agent
	if got := FilterAvailable(pool, performances); len(got) != 0 {
		t.Errorf("expected agent at load 0.8 to be excluded, got %d agents", len(got))
	}
}

func TestRoundRobinCycles(t *testing.T) {
	pool := agents("a1", "a2", "a3")
	rr := NewRoundRobin(NewMemoryCounter())
	item := &types.QueueItem{DepartmentID: "billing"}

	var picks []string
	for i := 0; i < 7; i++ {
		agent := rr.SelectAgent(pool, nil, item)
		if agent == nil {
			t.Fatal("expected an agent")
		}
		picks = append(picks, agent.ID)
	}

	want := []string{"a1", "a2", "a3", "a1", "a2", "a3", "a1"}
	for i := range want {
		if picks[i] != want[i] {
			t.Fatalf("pick %d: expected %s, got %s (sequence %v)", i, want[i], picks[i], picks)
		}
	}
}

func TestRoundRobinSeparatePools(t *testing.T) {
	pool := agents("a1", "a2")
	rr := NewRoundRobin(NewMemoryCounter())

	billing := &types.QueueItem{DepartmentID: "billing"}
	sales := &types.QueueItem{DepartmentID: "sales"}

	if got := rr.SelectAgent(pool, nil, billing); got.ID != "a1" {
		t.Errorf("billing first pick: expected a1, got %s", got.ID)
	}
	// A different department starts its own cycle
	if got := rr.SelectAgent(pool, nil, sales); got.ID != "a1" {
		t.Errorf("sales first pick: expected a1, got %s", got.ID)
	}
	if got := rr.SelectAgent(pool, nil, billing); got.ID != "a2" {
		t.Errorf("billing second pick: expected a2, got %s", got.ID)
	}
}

type failingCounter struct{}

func (failingCounter) Next(string) (int64, error) {
	return 0, errors.New("counter down")
}

func TestRoundRobinCounterFailureDegrades(t *testing.T) {
	pool := agents("a1", "a2")
	rr := NewRoundRobin(failingCounter{})

	got := rr.SelectAgent(pool, nil, &types.QueueItem{DepartmentID: "billing"})
	if got == nil || got.ID != "a1" {
		t.Errorf("expected head of pool on counter failure, got %v", got)
	}
}

func TestRoundRobinEmptyPool(t *testing.T) {
	rr := NewRoundRobin(nil)
	if got := rr.SelectAgent(nil, nil, nil); got != nil {
		t.Errorf("expected nil for empty pool, got %v", got)
	}
}

func TestLeastBusy(t *testing.T) {
	pool := agents("a1", "a2", "a3")
	performances := []types.AgentPerformance{
		{AgentID: "a1", ActiveChats: 3},
		{AgentID: "a2", ActiveChats: 1},
		{AgentID: "a3", ActiveChats: 2},
	}

	got := (&LeastBusy{}).SelectAgent(pool, performances, nil)
	if got == nil || got.ID != "a2" {
		t.Errorf("expected a2 with fewest chats, got %v", got)
	}
}

func TestLeastBusyTieKeepsListOrder(t *testing.T) {
	pool := agents("a1", "a2")
	performances := []types.AgentPerformance{
		{AgentID: "a1", ActiveChats: 2},
		{AgentID: "a2", ActiveChats: 2},
	}

	got := (&LeastBusy{}).SelectAgent(pool, performances, nil)
	if got == nil || got.ID != "a1" {
		t.Errorf("expected earlier agent on tie, got %v", got)
	}
}

func TestLeastBusyMissingSnapshotCountsAsIdle(t *testing.T) {
	pool := agents("a1", "a2")
	performances := []types.AgentPerformance{
		{AgentID: "a1", ActiveChats: 1},
	}

	got := (&LeastBusy{}).SelectAgent(pool, performances, nil)
	if got == nil || got.ID != "a2" {
		t.Errorf("expected a2 (no snapshot, zero chats), got %v", got)
	}
}

type fixedRand struct{ n int }

func (f fixedRand) Intn(int) int { return f.n }

func TestRandomUsesSource(t *testing.T) {
	pool := agents("a1", "a2", "a3")

	got := NewRandom(fixedRand{n: 2}).SelectAgent(pool, nil, nil)
	if got == nil || got.ID != "a3" {
		t.Errorf("expected a3 from pinned source, got %v", got)
	}
}

func TestPerformanceBasedPicksHighestScore(t *testing.T) {
	pool := agents("slacker", "star")
	performances := []types.AgentPerformance{
		{AgentID: "slacker", ActiveChats: 8, AverageResponseTime: 280, ResolutionRate: 40, SatisfactionScore: 2.5, CurrentLoad: 0.7},
		{AgentID: "star", ActiveChats: 1, AverageResponseTime: 30, ResolutionRate: 95, SatisfactionScore: 4.8, CurrentLoad: 0.2},
	}

	got := (&PerformanceBased{}).SelectAgent(pool, performances, nil)
	if got == nil || got.ID != "star" {
		t.Errorf("expected star, got %v", got)
	}
}

func TestPerformanceScoreWeights(t *testing.T) {
	// A perfect agent scores the full weight sum
	perfect := types.AgentPerformance{
		ActiveChats:         0,
		AverageResponseTime: 0,
		ResolutionRate:      100,
		SatisfactionScore:   5,
		CurrentLoad:         0,
	}
	if score := performanceScore(perfect); score < 0.999 || score > 1.001 {
		t.Errorf("expected perfect score 1.0, got %f", score)
	}

	// A maxed-out agent scores zero
	worst := types.AgentPerformance{
		ActiveChats:         15,
		AverageResponseTime: 600,
		ResolutionRate:      0,
		SatisfactionScore:   0,
		CurrentLoad:         1,
	}
	if score := performanceScore(worst); score > 0.001 {
		t.Errorf("expected zero score, got %f", score)
	}
}

func TestPerformanceBasedNoSnapshotsFallsBackToHead(t *testing.T) {
	pool := agents("a1", "a2")
	got := (&PerformanceBased{}).SelectAgent(pool, nil, nil)
	if got == nil || got.ID != "a1" {
		t.Errorf("expected head of pool, got %v", got)
	}
}

func TestRequiredSkills(t *testing.T) {
	item := &types.QueueItem{
		Metadata: types.QueueMetadata{
			Tags:        []string{"skill:retention", "vip"},
			LastMessage: types.Message{Content: "I want a refund for this bug"},
		},
	}

	got := RequiredSkills(item)

	want := map[string]bool{"retention": true, "billing": true, "technical": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d skills, got %v", len(want), got)
	}
	for _, skill := range got {
		if !want[skill] {
			t.Errorf("unexpected skill %s", skill)
		}
	}
}

func TestSkillBasedRequiresAllSkills(t *testing.T) {
	pool := agents("generalist", "specialist")
	performances := []types.AgentPerformance{
		{AgentID: "generalist", Skills: []string{"billing"}, CurrentLoad: 0.1},
		{AgentID: "specialist", Skills: []string{"billing", "technical"}, CurrentLoad: 0.6},
	}
	item := &types.QueueItem{
		Metadata: types.QueueMetadata{
			LastMessage: types.Message{Content: "refund for the crash"},
		},
	}

	got := (&SkillBased{}).SelectAgent(pool, performances, item)
	if got == nil || got.ID != "specialist" {
		t.Errorf("expected specialist covering both skills, got %v", got)
	}
}

func TestSkillBasedNilWhenNoneQualify(t *testing.T) {
	pool := agents("a1")
	performances := []types.AgentPerformance{
		{AgentID: "a1", Skills: []string{"billing"}},
	}
	item := &types.QueueItem{
		Metadata: types.QueueMetadata{
			LastMessage: types.Message{Content: "the api keeps crashing"},
		},
	}

	if got := (&SkillBased{}).SelectAgent(pool, performances, item); got != nil {
		t.Errorf("expected nil when no agent qualifies, got %v", got)
	}
}

func TestSkillBasedPrefersLowestLoadAmongQualified(t *testing.T) {
	pool := agents("busy", "idle")
	performances := []types.AgentPerformance{
		{AgentID: "busy", Skills: []string{"billing"}, CurrentLoad: 0.7},
		{AgentID: "idle", Skills: []string{"billing"}, CurrentLoad: 0.2},
	}
	item := &types.QueueItem{
		Metadata: types.QueueMetadata{
			LastMessage: types.Message{Content: "invoice question"},
		},
	}

	got := (&SkillBased{}).SelectAgent(pool, performances, item)
	if got == nil || got.ID != "idle" {
		t.Errorf("expected idle agent, got %v", got)
	}
}

func TestHybridFallsBackToPerformance(t *testing.T) {
	pool := agents("a1", "a2")
	performances := []types.AgentPerformance{
		{AgentID: "a1", ResolutionRate: 50, SatisfactionScore: 3},
		{AgentID: "a2", ResolutionRate: 90, SatisfactionScore: 5},
	}
	// Requires a technical skill nobody has
	item := &types.QueueItem{
		Metadata: types.QueueMetadata{
			LastMessage: types.Message{Content: "error in the api"},
		},
	}

	hybrid := &Hybrid{Skill: &SkillBased{}, Fallback: &PerformanceBased{}}
	got := hybrid.SelectAgent(pool, performances, item)
	if got == nil || got.ID != "a2" {
		t.Errorf("expected fallback to pick a2, got %v", got)
	}
}

func TestForMethod(t *testing.T) {
	methods := []types.DistributionMethod{
		types.MethodRoundRobin,
		types.MethodLeastBusy,
		types.MethodRandom,
		types.MethodPerformance,
		types.MethodSkillBased,
		types.MethodHybrid,
		"", // defaults to round robin
	}

	for _, method := range methods {
		if _, err := ForMethod(method, nil, nil); err != nil {
			t.Errorf("ForMethod(%q) returned error: %v", method, err)
		}
	}

	if _, err := ForMethod("fastest-finger", nil, nil); err == nil {
		t.Error("expected error for unknown method")
	}
}
