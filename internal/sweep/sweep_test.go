package sweep

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/queuewise/backend/internal/cache"
	"github.com/queuewise/backend/internal/engine"
	"github.com/queuewise/backend/internal/queuestore"
	"github.com/queuewise/backend/internal/retry"
	"github.com/queuewise/backend/internal/selector"
	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

type fakeDirectory struct {
	agents []types.Agent
	config types.QueueConfig
}

func (d *fakeDirectory) GetDepartmentAgents(ctx context.Context, departmentID string) ([]types.Agent, error) {
	return d.agents, nil
}

func (d *fakeDirectory) GetQueueConfig(ctx context.Context, departmentID string) (types.QueueConfig, error) {
	return d.config, nil
}

type fakeChannel struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *fakeChannel) AssignChat(ctx context.Context, ticketID, agentID, departmentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.err
}

func (c *fakeChannel) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeRules struct {
	rules []types.PriorityRule
}

func (r *fakeRules) PriorityRules(ctx context.Context) ([]types.PriorityRule, error) {
	return r.rules, nil
}

func (r *fakeRules) VIPConfig(ctx context.Context) (types.VIPConfig, error) {
	return types.VIPConfig{}, nil
}

type fixture struct {
	scheduler *Scheduler
	store     *queuestore.Store
	perf      *cache.PerformanceStore
	channel   *fakeChannel
}

func newFixture(dir *fakeDirectory, ch *fakeChannel, rules engine.RuleSource) *fixture {
	logger := zerolog.New(io.Discard)
	store := queuestore.New(logger)
	perf := cache.NewPerformanceStore()

	eng := engine.New(engine.Config{
		Store:     store,
		Perf:      perf,
		Directory: dir,
		Channel:   ch,
		Rules:     rules,
		Counter:   selector.NewMemoryCounter(),
		Retry: retry.Config{
			MaxAttempts:   2,
			InitialDelay:  time.Millisecond,
			BackoffFactor: 2,
		},
	}, logger)

	return &fixture{
		scheduler: New(store, eng, nil, time.Second, logger),
		store:     store,
		perf:      perf,
		channel:   ch,
	}
}

func (f *fixture) addOnlineAgent(id string) {
	zero := 0
	load := 0.1
	f.perf.Apply(types.PerformanceEvent{
		AgentID:     id,
		Status:      types.AgentOnline,
		ActiveChats: &zero,
		CurrentLoad: &load,
	})
}

func (f *fixture) insertWaiting(t *testing.T, id, ticket string, enteredAt time.Time) {
	t.Helper()
	err := f.store.Insert(&types.QueueItem{
		ID:           id,
		TicketID:     ticket,
		DepartmentID: "billing",
		Priority:     types.PriorityNormal,
		Status:       types.StatusWaiting,
		EnteredAt:    enteredAt,
		LastUpdate:   enteredAt,
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}

func TestTickAssignsWaitingItems(t *testing.T) {
	dir := &fakeDirectory{
		agents: []types.Agent{{ID: "agent-1", DepartmentID: "billing", MaxConcurrentChats: 5}},
		config: types.QueueConfig{Method: types.MethodRoundRobin, MaxCapacity: 50},
	}
	f := newFixture(dir, &fakeChannel{}, nil)
	f.addOnlineAgent("agent-1")
	f.insertWaiting(t, "q-1", "T-1", time.Now())
	f.insertWaiting(t, "q-2", "T-2", time.Now())

	if !f.scheduler.Tick(context.Background()) {
		t.Fatal("expected tick to run")
	}

	for _, id := range []string{"q-1", "q-2"} {
		item, _ := f.store.Get(id)
		if item.Status != types.StatusAssigned {
			t.Errorf("%s: expected assigned, got %s", id, item.Status)
		}
	}
	if f.channel.callCount() != 2 {
		t.Errorf("expected 2 outbound calls, got %d", f.channel.callCount())
	}
}

func TestTickSkippedWhileBusy(t *testing.T) {
	f := newFixture(&fakeDirectory{config: types.QueueConfig{Method: types.MethodRoundRobin}}, &fakeChannel{}, nil)

	f.scheduler.busy.Store(true)
	if f.scheduler.Tick(context.Background()) {
		t.Error("expected tick to be skipped while busy")
	}

	f.scheduler.busy.Store(false)
	if !f.scheduler.Tick(context.Background()) {
		t.Error("expected tick to run after busy flag cleared")
	}
}

func TestTickEscalatesBeforeDistribution(t *testing.T) {
	rules := &fakeRules{
		rules: []types.PriorityRule{{
			Name:     "normal tier",
			Priority: types.PriorityNormal,
			SLA:      &types.SLA{MaxWaitTime: 10, EscalateTo: types.PriorityHigh},
		}},
	}
	// No agents: distribution fails but escalation still applies
	f := newFixture(&fakeDirectory{config: types.QueueConfig{Method: types.MethodRoundRobin}}, &fakeChannel{}, rules)
	f.insertWaiting(t, "q-1", "T-1", time.Now().Add(-15*time.Minute))

	f.scheduler.Tick(context.Background())

	item, _ := f.store.Get("q-1")
	if item.Priority != types.PriorityHigh {
		t.Errorf("expected escalation to high, got %s", item.Priority)
	}
	if item.Status != types.StatusWaiting {
		t.Errorf("expected item still waiting, got %s", item.Status)
	}
}

func TestTickFailureDoesNotBlockOtherItems(t *testing.T) {
	dir := &fakeDirectory{
		agents: []types.Agent{{ID: "agent-1", DepartmentID: "billing", MaxConcurrentChats: 5}},
		config: types.QueueConfig{Method: types.MethodRoundRobin, MaxCapacity: 50},
	}
	ch := &fakeChannel{err: errors.New("channel down")}
	f := newFixture(dir, ch, nil)
	f.addOnlineAgent("agent-1")
	f.insertWaiting(t, "q-1", "T-1", time.Now())
	f.insertWaiting(t, "q-2", "T-2", time.Now())

	f.scheduler.Tick(context.Background())

	// Both items were attempted (2 retry attempts each) despite every call failing
	if ch.callCount() != 4 {
		t.Errorf("expected 4 outbound calls, got %d", ch.callCount())
	}
	for _, id := range []string{"q-1", "q-2"} {
		item, _ := f.store.Get(id)
		if item.Status != types.StatusWaiting {
			t.Errorf("%s: expected still waiting, got %s", id, item.Status)
		}
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	f := newFixture(&fakeDirectory{config: types.QueueConfig{Method: types.MethodRoundRobin}}, &fakeChannel{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.scheduler.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}
