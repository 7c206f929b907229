package metrics

import (
	"context"
	"time"

	"github.com/queuewise/backend/internal/cache"
	"github.com/queuewise/backend/internal/queuestore"
	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// Publisher delivers metrics events to the realtime fanout channel
type Publisher interface {
	Publish(topic string, departmentID string, payload any)
}

// CapacityResolver supplies the configured max capacity for a department.
// Capacity is a configuration input; it is never derived from agent counts.
type CapacityResolver interface {
	Capacity(departmentID string) int
}

// Aggregator derives queue metrics from store snapshots. It recomputes
// after every mutating operation (engine hook) and on a timer for drift
// correction; each recomputation publishes a queue:metrics event.
type Aggregator struct {
	store      *queuestore.Store
	perf       *cache.PerformanceStore
	publisher  Publisher
	capacity   CapacityResolver
	collectors *Collectors
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAggregator creates a metrics aggregator
func NewAggregator(store *queuestore.Store, perf *cache.PerformanceStore, publisher Publisher, capacity CapacityResolver, collectors *Collectors, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		store:      store,
		perf:       perf,
		publisher:  publisher,
		capacity:   capacity,
		collectors: collectors,
		logger:     logger.With().Str("component", "metrics").Logger(),
		now:        time.Now,
	}
}

// Compute derives a metrics snapshot for one department, or for every
// department when departmentID is empty. Computation never fails: a broken
// input degrades to a zero-valued snapshot.
func (a *Aggregator) Compute(departmentID string) types.QueueMetrics {
	items := a.store.List(queuestore.Filter{DepartmentID: departmentID})
	return a.computeFromItems(departmentID, items)
}

func (a *Aggregator) computeFromItems(departmentID string, items []*types.QueueItem) types.QueueMetrics {
	now := a.now()
	m := types.QueueMetrics{
		DepartmentID: departmentID,
		TotalItems:   len(items),
		Timestamp:    now,
	}

	var waitTotal float64
	for _, item := range items {
		switch item.Status {
		case types.StatusWaiting:
			m.WaitingItems++
			waitTotal += item.WaitDuration(now).Seconds()
		case types.StatusProcessing:
			m.ProcessingItems++
		case types.StatusAssigned:
			m.AssignedItems++
		case types.StatusClosed:
			m.ClosedItems++
		}
	}

	if m.WaitingItems > 0 {
		m.AverageWaitTime = waitTotal / float64(m.WaitingItems)
	}

	capacity := 0
	if a.capacity != nil {
		capacity = a.capacity.Capacity(departmentID)
	}
	if capacity > 0 {
		active := m.WaitingItems + m.ProcessingItems
		load := float64(active) / float64(capacity) * 100
		if load > 100 {
			load = 100
		}
		m.CurrentLoad = load
	}

	m.AgentMetrics = a.agentMetrics()
	return m
}

func (a *Aggregator) agentMetrics() []types.AgentMetrics {
	perfs := a.perf.GetAll()
	out := make([]types.AgentMetrics, 0, len(perfs))
	for _, p := range perfs {
		out = append(out, types.AgentMetrics{
			AgentID:             p.AgentID,
			ActiveChats:         p.ActiveChats,
			AverageResponseTime: p.AverageResponseTime,
			ResolutionRate:      p.ResolutionRate,
			Status:              p.Status,
		})
	}
	return out
}

// PublishSnapshot recomputes and publishes metrics for a department and
// refreshes the prometheus gauges
func (a *Aggregator) PublishSnapshot(departmentID string) {
	m := a.Compute(departmentID)
	a.updateGauges(departmentID, m)

	if a.publisher != nil {
		a.publisher.Publish(types.TopicQueueMetrics, departmentID, types.MetricsEvent{
			Type:         types.TopicQueueMetrics,
			DepartmentID: departmentID,
			Metrics:      m,
			Timestamp:    m.Timestamp,
		})
	}
}

func (a *Aggregator) updateGauges(departmentID string, m types.QueueMetrics) {
	if a.collectors == nil {
		return
	}
	label := departmentID
	if label == "" {
		label = "all"
	}
	a.collectors.QueueDepth.WithLabelValues(label, string(types.StatusWaiting)).Set(float64(m.WaitingItems))
	a.collectors.QueueDepth.WithLabelValues(label, string(types.StatusProcessing)).Set(float64(m.ProcessingItems))
	a.collectors.QueueDepth.WithLabelValues(label, string(types.StatusAssigned)).Set(float64(m.AssignedItems))
	a.collectors.QueueDepth.WithLabelValues(label, string(types.StatusClosed)).Set(float64(m.ClosedItems))
	a.collectors.AverageWait.WithLabelValues(label).Set(m.AverageWaitTime)
	a.collectors.CurrentLoad.WithLabelValues(label).Set(m.CurrentLoad)
}

// Start republishes metrics on a fixed interval until the context is
// cancelled. The timer corrects drift in wait-time figures between
// mutations; every mutation already publishes synchronously.
func (a *Aggregator) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.Info().Dur("interval", interval).Msg("metrics aggregator started")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("metrics aggregator stopped")
			return
		case <-ticker.C:
			a.PublishSnapshot("")
			for _, dept := range a.departments() {
				a.PublishSnapshot(dept)
			}
		}
	}
}

// departments lists the departments with resident items
func (a *Aggregator) departments() []string {
	items := a.store.List(queuestore.Filter{})
	seen := make(map[string]bool)
	var out []string
	for _, item := range items {
		if !seen[item.DepartmentID] {
			seen[item.DepartmentID] = true
			out = append(out, item.DepartmentID)
		}
	}
	return out
}
