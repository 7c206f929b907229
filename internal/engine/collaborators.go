package engine

import (
	"context"

	"github.com/queuewise/backend/internal/types"
)

// Directory is the read-only user/department directory. The core never
// caches or mutates what it returns.
type Directory interface {
	GetDepartmentAgents(ctx context.Context, departmentID string) ([]types.Agent, error)
	GetQueueConfig(ctx context.Context, departmentID string) (types.QueueConfig, error)
}

// OutboundChannel requests actions on the messaging channel. Calls carry a
// deadline and may legitimately be retried; the channel must tolerate
// duplicate assignment requests idempotently.
type OutboundChannel interface {
	AssignChat(ctx context.Context, ticketID, agentID, departmentID string) error
}

// Publisher delivers queue events to the realtime fanout channel
type Publisher interface {
	Publish(topic string, departmentID string, payload any)
}

// RuleSource supplies the configured priority rules and VIP allow-list,
// read-only at evaluation time
type RuleSource interface {
	PriorityRules(ctx context.Context) ([]types.PriorityRule, error)
	VIPConfig(ctx context.Context) (types.VIPConfig, error)
}

// HistorySink records successful assignments outside the process
// (redis list in production). Best-effort.
type HistorySink interface {
	AddAssignment(ctx context.Context, record types.AssignmentRecord) error
}

// MetricsNotifier triggers a metrics recomputation and publish after a
// mutating operation
type MetricsNotifier interface {
	PublishSnapshot(departmentID string)
}
