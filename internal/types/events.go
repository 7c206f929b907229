package types

import "time"

// Event topics published to the realtime fanout channel
const (
	TopicQueueAdded    = "queue:added"
	TopicQueueAssigned = "queue:assigned"
	TopicQueueUpdated  = "queue:updated"
	TopicQueueClosed   = "queue:closed"
	TopicQueueMetrics  = "queue:metrics"
)

// QueueEvent is the payload for item-level topics. Events for a given item
// are published in the order its mutations were committed.
type QueueEvent struct {
	Type         string     `json:"type"`
	Item         *QueueItem `json:"queueItem"`
	DepartmentID string     `json:"departmentId"`
	AgentID      string     `json:"agentId,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// MetricsEvent is the payload for the queue:metrics topic
type MetricsEvent struct {
	Type         string       `json:"type"`
	DepartmentID string       `json:"departmentId,omitempty"`
	Metrics      QueueMetrics `json:"metrics"`
	Timestamp    time.Time    `json:"timestamp"`
}

// AssignmentRecord is one entry of the distribution history
type AssignmentRecord struct {
	ItemID       string    `json:"itemId"`
	TicketID     string    `json:"ticketId"`
	AgentID      string    `json:"agentId"`
	DepartmentID string    `json:"departmentId"`
	Timestamp    time.Time `json:"timestamp"`
}
