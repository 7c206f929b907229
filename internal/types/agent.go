package types

import "time"

// AgentStatus represents an agent's presence status
type AgentStatus string

const (
	AgentOnline  AgentStatus = "online"
	AgentBusy    AgentStatus = "busy"
	AgentAway    AgentStatus = "away"
	AgentOffline AgentStatus = "offline"
)

// Agent is a directory entry for a human agent
type Agent struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	DepartmentID       string `json:"departmentId"`
	MaxConcurrentChats int    `json:"maxConcurrentChats"`
}

// AgentPerformance is the live per-agent snapshot used during selection.
// Updated from external events, read by the selector strategies.
type AgentPerformance struct {
	AgentID             string      `json:"agentId"`
	ActiveChats         int         `json:"activeChats"`
	AverageResponseTime float64     `json:"averageResponseTime"` // seconds
	ResolutionRate      float64     `json:"resolutionRate"`      // percentage 0-100
	SatisfactionScore   float64     `json:"satisfactionScore"`   // 0-5
	CurrentLoad         float64     `json:"currentLoad"`         // normalized 0-1
	Status              AgentStatus `json:"status"`
	Skills              []string    `json:"skills,omitempty"`
	LastAssignment      *time.Time  `json:"lastAssignment,omitempty"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

// PerformanceEvent is an external update to an agent's live metrics,
// posted by the surrounding system (presence changes, chat opened/closed,
// survey results).
type PerformanceEvent struct {
	AgentID             string      `json:"agentId"`
	ActiveChats         *int        `json:"activeChats,omitempty"`
	AverageResponseTime *float64    `json:"averageResponseTime,omitempty"`
	ResolutionRate      *float64    `json:"resolutionRate,omitempty"`
	SatisfactionScore   *float64    `json:"satisfactionScore,omitempty"`
	CurrentLoad         *float64    `json:"currentLoad,omitempty"`
	Status              AgentStatus `json:"status,omitempty"`
	Skills              []string    `json:"skills,omitempty"`
	Timestamp           time.Time   `json:"timestamp"`
}
