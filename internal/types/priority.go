package types

// ConditionType identifies the kind of check a priority condition performs
type ConditionType string

const (
	ConditionKeyword       ConditionType = "keyword"
	ConditionVIP           ConditionType = "vip"
	ConditionBusinessHours ConditionType = "businessHours"
	ConditionMessageCount  ConditionType = "messageCount"
	ConditionWaitTime      ConditionType = "waitTime"
)

// CompareOp is the comparison operator for threshold conditions
type CompareOp string

const (
	OpGreaterThan CompareOp = "greaterThan"
	OpLessThan    CompareOp = "lessThan"
	OpEquals      CompareOp = "equals"
)

// HoursWindow is a [Start,End) hour-of-day window for businessHours conditions
type HoursWindow struct {
	Start int `json:"start"` // 0-23 inclusive
	End   int `json:"end"`   // exclusive
}

// PriorityCondition is a single check within a rule. Which fields apply
// depends on Type: Keywords for keyword, Senders for vip, Hours for
// businessHours, Operator/Threshold for messageCount and waitTime.
type PriorityCondition struct {
	Type      ConditionType `json:"type"`
	Keywords  []string      `json:"keywords,omitempty"`
	Senders   []string      `json:"senders,omitempty"`
	Hours     *HoursWindow  `json:"hours,omitempty"`
	Operator  CompareOp     `json:"operator,omitempty"`
	Threshold int           `json:"threshold,omitempty"`
}

// SLA defines the maximum wait (minutes) for a priority tier and the tier
// an item escalates to once breached
type SLA struct {
	MaxWaitTime int           `json:"maxWaitTime"` // minutes
	EscalateTo  QueuePriority `json:"escalateTo,omitempty"`
}

// PriorityRule is an ordered, named condition set. Conditions are ANDed;
// the first rule whose conditions all match wins.
type PriorityRule struct {
	Name       string              `json:"name"`
	Priority   QueuePriority       `json:"priority"`
	Conditions []PriorityCondition `json:"conditions"`
	SLA        *SLA                `json:"sla,omitempty"`
}

// VIPConfig is the global allow-list of senders guaranteed a minimum
// priority, checked before any rule evaluation
type VIPConfig struct {
	Senders         []string      `json:"senders"`
	DefaultPriority QueuePriority `json:"defaultPriority"`
}

// IsVIP reports whether the sender is on the allow-list
func (c VIPConfig) IsVIP(sender string) bool {
	for _, s := range c.Senders {
		if s == sender {
			return true
		}
	}
	return false
}
