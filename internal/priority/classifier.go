package priority

import (
	"strings"
	"time"

	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// Classifier computes queue item priorities from configured rules.
// It never fails upward: anything unexpected degrades to NORMAL.
type Classifier struct {
	logger zerolog.Logger
	now    func() time.Time
}

// NewClassifier creates a classifier using the wall clock
func NewClassifier(logger zerolog.Logger) *Classifier {
	return &Classifier{
		logger: logger.With().Str("component", "priority").Logger(),
		now:    time.Now,
	}
}

// NewClassifierWithClock creates a classifier with an injected clock for tests
func NewClassifierWithClock(logger zerolog.Logger, now func() time.Time) *Classifier {
	c := NewClassifier(logger)
	c.now = now
	return c
}

// Classify returns the priority for a message. The global VIP allow-list is
// checked first; otherwise rules are evaluated in list order and the first
// rule whose conditions all match wins. No match returns NORMAL.
func (c *Classifier) Classify(msg types.Message, item *types.QueueItem, rules []types.PriorityRule, vip types.VIPConfig) types.QueuePriority {
	if vip.IsVIP(msg.From) {
		if vip.DefaultPriority.Valid() {
			return vip.DefaultPriority
		}
		c.logger.Warn().
			Str("sender", msg.From).
			Str("priority", string(vip.DefaultPriority)).
			Msg("VIP config has invalid priority, falling back to high")
		return types.PriorityHigh
	}

	for _, rule := range rules {
		if c.ruleMatches(rule, msg, item) {
			if !rule.Priority.Valid() {
				c.logger.Warn().
					Str("rule", rule.Name).
					Str("priority", string(rule.Priority)).
					Msg("rule has invalid priority, skipping")
				continue
			}
			return rule.Priority
		}
	}

	return types.PriorityNormal
}

// CheckEscalation computes whether the item's SLA is breached and returns the
// escalated priority. The caller applies the change; escalation is strictly
// monotonic upward, so a rule escalating downward is ignored.
func (c *Classifier) CheckEscalation(item *types.QueueItem, rules []types.PriorityRule) (types.QueuePriority, bool) {
	var current *types.PriorityRule
	for i := range rules {
		if rules[i].Priority == item.Priority {
			current = &rules[i]
			break
		}
	}

	if current == nil || current.SLA == nil || current.SLA.EscalateTo == "" {
		return item.Priority, false
	}

	waitMinutes := int(c.now().Sub(item.EnteredAt).Minutes())
	if waitMinutes <= current.SLA.MaxWaitTime {
		return item.Priority, false
	}

	target := current.SLA.EscalateTo
	if target.Rank() <= item.Priority.Rank() {
		c.logger.Warn().
			Str("rule", current.Name).
			Str("from", string(item.Priority)).
			Str("to", string(target)).
			Msg("rule escalates downward, ignoring")
		return item.Priority, false
	}

	return target, true
}

// ruleMatches reports whether every condition of the rule holds. A rule
// with no conditions matches everything, which lets operators install a
// catch-all rule at the end of the list.
func (c *Classifier) ruleMatches(rule types.PriorityRule, msg types.Message, item *types.QueueItem) bool {
	for _, cond := range rule.Conditions {
		if !c.conditionMatches(cond, msg, item) {
			return false
		}
	}
	return true
}

func (c *Classifier) conditionMatches(cond types.PriorityCondition, msg types.Message, item *types.QueueItem) bool {
	switch cond.Type {
	case types.ConditionKeyword:
		return c.matchKeyword(cond.Keywords, msg.Content)
	case types.ConditionVIP:
		for _, s := range cond.Senders {
			if s == msg.From {
				return true
			}
		}
		return false
	case types.ConditionBusinessHours:
		if cond.Hours == nil {
			return false
		}
		hour := c.now().Hour()
		return hour >= cond.Hours.Start && hour < cond.Hours.End
	case types.ConditionMessageCount:
		if item == nil {
			return false
		}
		return compare(item.Metadata.MessageCount, cond.Operator, cond.Threshold)
	case types.ConditionWaitTime:
		if item == nil {
			return false
		}
		waitMinutes := int(c.now().Sub(item.EnteredAt).Minutes())
		return compare(waitMinutes, cond.Operator, cond.Threshold)
	default:
		c.logger.Warn().Str("type", string(cond.Type)).Msg("unknown condition type")
		return false
	}
}

func (c *Classifier) matchKeyword(keywords []string, content string) bool {
	text := strings.ToLower(content)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func compare(value int, op types.CompareOp, threshold int) bool {
	switch op {
	case types.OpGreaterThan:
		return value > threshold
	case types.OpLessThan:
		return value < threshold
	case types.OpEquals:
		return value == threshold
	default:
		return false
	}
}
