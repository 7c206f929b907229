package types

import "time"

// QueuePriority represents the urgency tier of a queue item
type QueuePriority string

const (
	PriorityLow    QueuePriority = "low"
	PriorityNormal QueuePriority = "normal"
	PriorityHigh   QueuePriority = "high"
	PriorityUrgent QueuePriority = "urgent"
)

// priorityRanks defines the escalation ordering: low < normal < high < urgent
var priorityRanks = map[QueuePriority]int{
	PriorityLow:    0,
	PriorityNormal: 1,
	PriorityHigh:   2,
	PriorityUrgent: 3,
}

// Rank returns the numeric ordering of a priority. Unknown priorities rank
// below low so they never win an escalation comparison.
func (p QueuePriority) Rank() int {
	if rank, ok := priorityRanks[p]; ok {
		return rank
	}
	return -1
}

// Valid reports whether p is one of the four known priority tiers
func (p QueuePriority) Valid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// QueueStatus represents the lifecycle state of a queue item
type QueueStatus string

const (
	StatusWaiting    QueueStatus = "waiting"    // In queue, not yet assigned
	StatusProcessing QueueStatus = "processing" // Agent actively engaged
	StatusAssigned   QueueStatus = "assigned"   // Matched to an agent
	StatusClosed     QueueStatus = "closed"     // Resolved or abandoned
)

// QueueItem represents a support ticket while it awaits or undergoes
// agent assignment
type QueueItem struct {
	ID           string        `json:"id"`
	TicketID     string        `json:"ticketId"`
	DepartmentID string        `json:"departmentId"`
	Priority     QueuePriority `json:"priority"`
	Status       QueueStatus   `json:"status"`
	EnteredAt    time.Time     `json:"enteredAt"`
	LastUpdate   time.Time     `json:"lastUpdate"`
	AssignedTo   string        `json:"assignedTo,omitempty"`
	Resolution   string        `json:"resolution,omitempty"`
	Metadata     QueueMetadata `json:"metadata"`
}

// WaitDuration returns how long the item has been in the queue relative to now
func (i *QueueItem) WaitDuration(now time.Time) time.Duration {
	return now.Sub(i.EnteredAt)
}

// QueueMetadata carries message context for a queue item. LastMessage and
// MessageCount are updated on every inbound message for the same open ticket;
// everything else is append-only.
type QueueMetadata struct {
	MessageCount int      `json:"messageCount"`
	FirstMessage Message  `json:"firstMessage"`
	LastMessage  Message  `json:"lastMessage"`
	Source       string   `json:"source"`
	Tags         []string `json:"tags"`
}

// DistributionResult describes the outcome of a single distribution attempt
type DistributionResult struct {
	Success    bool       `json:"success"`
	Item       *QueueItem `json:"queueItem"`
	AssignedTo string     `json:"assignedTo,omitempty"`
	Reason     string     `json:"reason,omitempty"`
}

// QueueMetrics is a derived snapshot of queue state for one department
// (or all departments when DepartmentID is empty). Never persisted as a
// source of truth.
type QueueMetrics struct {
	DepartmentID    string         `json:"departmentId,omitempty"`
	TotalItems      int            `json:"totalItems"`
	WaitingItems    int            `json:"waitingItems"`
	ProcessingItems int            `json:"processingItems"`
	AssignedItems   int            `json:"assignedItems"`
	ClosedItems     int            `json:"closedItems"`
	AverageWaitTime float64        `json:"averageWaitTime"` // seconds, WAITING items only
	CurrentLoad     float64        `json:"currentLoad"`     // percentage 0-100
	AgentMetrics    []AgentMetrics `json:"agentMetrics"`
	Timestamp       time.Time      `json:"timestamp"`
}

// AgentMetrics is the per-agent slice of a metrics snapshot
type AgentMetrics struct {
	AgentID             string      `json:"agentId"`
	ActiveChats         int         `json:"activeChats"`
	AverageResponseTime float64     `json:"averageResponseTime"` // seconds
	ResolutionRate      float64     `json:"resolutionRate"`      // percentage
	Status              AgentStatus `json:"status"`
}
