package metrics

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/queuewise/backend/internal/cache"
	"github.com/queuewise/backend/internal/queuestore"
	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

type staticCapacity map[string]int

func (c staticCapacity) Capacity(departmentID string) int {
	return c[departmentID]
}

type capturePublisher struct {
	mu     sync.Mutex
	events []types.MetricsEvent
}

func (p *capturePublisher) Publish(topic, departmentID string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := payload.(types.MetricsEvent); ok {
		p.events = append(p.events, ev)
	}
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func newTestAggregator(capacity staticCapacity) (*Aggregator, *queuestore.Store, *cache.PerformanceStore, *capturePublisher) {
	logger := zerolog.New(io.Discard)
	store := queuestore.New(logger)
	perf := cache.NewPerformanceStore()
	pub := &capturePublisher{}
	agg := NewAggregator(store, perf, pub, capacity, nil, logger)
	return agg, store, perf, pub
}

func insertItem(t *testing.T, store *queuestore.Store, id, dept string, status types.QueueStatus, enteredAt time.Time) {
	t.Helper()
	item := &types.QueueItem{
		ID:           id,
		TicketID:     "ticket-" + id,
		DepartmentID: dept,
		Priority:     types.PriorityNormal,
		Status:       types.StatusWaiting,
		EnteredAt:    enteredAt,
		LastUpdate:   enteredAt,
	}
	if err := store.Insert(item); err != nil {
		t.Fatalf("insert %s failed: %v", id, err)
	}
	switch status {
	case types.StatusAssigned:
		if _, err := store.Assign(id, "agent-1"); err != nil {
			t.Fatalf("assign %s failed: %v", id, err)
		}
	case types.StatusProcessing:
		if _, err := store.Assign(id, "agent-1"); err != nil {
			t.Fatalf("assign %s failed: %v", id, err)
		}
		if _, err := store.MarkProcessing(id); err != nil {
			t.Fatalf("mark processing %s failed: %v", id, err)
		}
	case types.StatusClosed:
		if _, err := store.Close(id, "done"); err != nil {
			t.Fatalf("close %s failed: %v", id, err)
		}
	}
}

func TestComputeStatusCounts(t *testing.T) {
	agg, store, _, _ := newTestAggregator(staticCapacity{"billing": 50})
	now := time.Now()

	insertItem(t, store, "w1", "billing", types.StatusWaiting, now)
	insertItem(t, store, "w2", "billing", types.StatusWaiting, now)
	insertItem(t, store, "a1", "billing", types.StatusAssigned, now)
	insertItem(t, store, "p1", "billing", types.StatusProcessing, now)
	insertItem(t, store, "c1", "billing", types.StatusClosed, now)

	m := agg.Compute("billing")

	if m.TotalItems != 5 {
		t.Errorf("expected 5 total, got %d", m.TotalItems)
	}
	if m.WaitingItems != 2 {
		t.Errorf("expected 2 waiting, got %d", m.WaitingItems)
	}
	if m.AssignedItems != 1 {
		t.Errorf("expected 1 assigned, got %d", m.AssignedItems)
	}
	if m.ProcessingItems != 1 {
		t.Errorf("expected 1 processing, got %d", m.ProcessingItems)
	}
	if m.ClosedItems != 1 {
		t.Errorf("expected 1 closed, got %d", m.ClosedItems)
	}
}

func TestComputeAverageWaitOnlyCountsWaiting(t *testing.T) {
	agg, store, _, _ := newTestAggregator(staticCapacity{})
	now := time.Now()

	// Two waiting items at 60s and 120s; one assigned item much older,
	// which must not influence the average
	insertItem(t, store, "w1", "billing", types.StatusWaiting, now.Add(-60*time.Second))
	insertItem(t, store, "w2", "billing", types.StatusWaiting, now.Add(-120*time.Second))
	insertItem(t, store, "a1", "billing", types.StatusAssigned, now.Add(-time.Hour))

	m := agg.Compute("billing")

	if m.AverageWaitTime < 85 || m.AverageWaitTime > 95 {
		t.Errorf("expected average wait around 90s, got %f", m.AverageWaitTime)
	}
}

func TestComputeEmptyDepartment(t *testing.T) {
	agg, _, _, _ := newTestAggregator(staticCapacity{})

	m := agg.Compute("empty")
	if m.TotalItems != 0 || m.AverageWaitTime != 0 || m.CurrentLoad != 0 {
		t.Errorf("expected zero-valued snapshot, got %+v", m)
	}
}

func TestComputeCurrentLoad(t *testing.T) {
	agg, store, _, _ := newTestAggregator(staticCapacity{"billing": 10})
	now := time.Now()

	// 4 waiting + 1 processing = 5 active against capacity 10
	for i, id := range []string{"w1", "w2", "w3", "w4"} {
		insertItem(t, store, id, "billing", types.StatusWaiting, now.Add(time.Duration(i)*time.Second))
	}
	insertItem(t, store, "p1", "billing", types.StatusProcessing, now)
	// Assigned items do not count toward load
	insertItem(t, store, "a1", "billing", types.StatusAssigned, now)

	m := agg.Compute("billing")
	if m.CurrentLoad != 50 {
		t.Errorf("expected load 50%%, got %f", m.CurrentLoad)
	}
}

func TestComputeCurrentLoadCappedAt100(t *testing.T) {
	agg, store, _, _ := newTestAggregator(staticCapacity{"billing": 2})
	now := time.Now()

	for i := 0; i < 5; i++ {
		insertItem(t, store, "w"+string(rune('a'+i)), "billing", types.StatusWaiting, now)
	}

	m := agg.Compute("billing")
	if m.CurrentLoad != 100 {
		t.Errorf("expected load capped at 100, got %f", m.CurrentLoad)
	}
}

func TestComputeZeroCapacityMeansNoLoad(t *testing.T) {
	agg, store, _, _ := newTestAggregator(staticCapacity{})
	insertItem(t, store, "w1", "billing", types.StatusWaiting, time.Now())

	m := agg.Compute("billing")
	if m.CurrentLoad != 0 {
		t.Errorf("expected zero load without capacity, got %f", m.CurrentLoad)
	}
}

func TestComputeIncludesAgentMetrics(t *testing.T) {
	agg, _, perf, _ := newTestAggregator(staticCapacity{})

	chats := 3
	rate := 85.0
	perf.Apply(types.PerformanceEvent{
		AgentID:        "agent-1",
		Status:         types.AgentOnline,
		ActiveChats:    &chats,
		ResolutionRate: &rate,
	})

	m := agg.Compute("")
	if len(m.AgentMetrics) != 1 {
		t.Fatalf("expected 1 agent metric, got %d", len(m.AgentMetrics))
	}
	am := m.AgentMetrics[0]
	if am.AgentID != "agent-1" || am.ActiveChats != 3 || am.ResolutionRate != 85 {
		t.Errorf("unexpected agent metrics: %+v", am)
	}
}

func TestComputeAllDepartments(t *testing.T) {
	agg, store, _, _ := newTestAggregator(staticCapacity{})
	now := time.Now()

	insertItem(t, store, "b1", "billing", types.StatusWaiting, now)
	insertItem(t, store, "t1", "technical", types.StatusWaiting, now)

	m := agg.Compute("")
	if m.TotalItems != 2 {
		t.Errorf("expected cross-department total 2, got %d", m.TotalItems)
	}
	if m.DepartmentID != "" {
		t.Errorf("expected empty department id, got %s", m.DepartmentID)
	}
}

func TestPublishSnapshotEmitsEvent(t *testing.T) {
	agg, store, _, pub := newTestAggregator(staticCapacity{"billing": 10})
	insertItem(t, store, "w1", "billing", types.StatusWaiting, time.Now())

	agg.PublishSnapshot("billing")

	if pub.count() != 1 {
		t.Fatalf("expected 1 event, got %d", pub.count())
	}
	ev := pub.events[0]
	if ev.Type != types.TopicQueueMetrics {
		t.Errorf("expected topic %s, got %s", types.TopicQueueMetrics, ev.Type)
	}
	if ev.Metrics.WaitingItems != 1 {
		t.Errorf("expected 1 waiting in snapshot, got %d", ev.Metrics.WaitingItems)
	}
}
