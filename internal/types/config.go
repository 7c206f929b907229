package types

import "time"

// DistributionMethod selects the agent-selection strategy for a department
type DistributionMethod string

const (
	MethodRoundRobin  DistributionMethod = "roundRobin"
	MethodLeastBusy   DistributionMethod = "leastBusy"
	MethodRandom      DistributionMethod = "random"
	MethodPerformance DistributionMethod = "performance"
	MethodSkillBased  DistributionMethod = "skillBased"
	MethodHybrid      DistributionMethod = "hybrid"
)

// WorkingHours defines when a department accepts distribution
type WorkingHours struct {
	Start    string         `json:"start"` // HH:MM
	End      string         `json:"end"`   // HH:MM
	Timezone string         `json:"timezone"`
	WorkDays []time.Weekday `json:"workDays"`
}

// QueueConfig is a department's queue configuration, owned by the directory
// and read-only to the core
type QueueConfig struct {
	DepartmentID string             `json:"departmentId"`
	Method       DistributionMethod `json:"method"`
	WorkingHours WorkingHours       `json:"workingHours"`
	// MaxCapacity bounds the load-percentage calculation. It is an explicit
	// configuration input, not derived from agent counts.
	MaxCapacity int `json:"maxCapacity"`
}
