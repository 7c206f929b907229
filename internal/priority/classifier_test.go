package priority

import (
	"bytes"
	"testing"
	"time"

	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

func testClassifier(now time.Time) *Classifier {
	logger := zerolog.New(&bytes.Buffer{})
	return NewClassifierWithClock(logger, func() time.Time { return now })
}

func urgentKeywordRules() []types.PriorityRule {
	return []types.PriorityRule{
		{
			Name:     "urgent keywords",
			Priority: types.PriorityUrgent,
			Conditions: []types.PriorityCondition{
				{Type: types.ConditionKeyword, Keywords: []string{"outage", "down", "critical"}},
			},
		},
		{
			Name:     "help keywords",
			Priority: types.PriorityHigh,
			Conditions: []types.PriorityCondition{
				{Type: types.ConditionKeyword, Keywords: []string{"urgent", "help"}},
			},
		},
	}
}

func TestClassifyVIPWinsOverRules(t *testing.T) {
	c := testClassifier(time.Now())

	vip := types.VIPConfig{
		Senders:         []string{"ceo@bigcorp.example"},
		DefaultPriority: types.PriorityUrgent,
	}

	// Message content would only match the HIGH rule, but the sender is VIP
	msg := types.Message{From: "ceo@bigcorp.example", Content: "please help"}
	got := c.Classify(msg, nil, urgentKeywordRules(), vip)

	if got != types.PriorityUrgent {
		t.Errorf("expected urgent for VIP sender, got %s", got)
	}
}

func TestClassifyVIPInvalidPriorityFallsBackToHigh(t *testing.T) {
	c := testClassifier(time.Now())

	vip := types.VIPConfig{
		Senders:         []string{"vip@example.com"},
		DefaultPriority: "platinum",
	}

	got := c.Classify(types.Message{From: "vip@example.com"}, nil, nil, vip)
	if got != types.PriorityHigh {
		t.Errorf("expected high for invalid VIP priority, got %s", got)
	}
}

func TestClassifyFirstMatchingRuleWins(t *testing.T) {
	c := testClassifier(time.Now())

	msg := types.Message{From: "user@example.com", Content: "the site is DOWN and I need urgent help"}
	got := c.Classify(msg, nil, urgentKeywordRules(), types.VIPConfig{})

	// Both rules match; the first one in list order decides
	if got != types.PriorityUrgent {
		t.Errorf("expected urgent from first matching rule, got %s", got)
	}
}

func TestClassifyKeywordCaseInsensitive(t *testing.T) {
	c := testClassifier(time.Now())

	msg := types.Message{From: "user@example.com", Content: "URGENT help needed"}
	got := c.Classify(msg, nil, urgentKeywordRules(), types.VIPConfig{})

	if got != types.PriorityHigh {
		t.Errorf("expected high, got %s", got)
	}
}

func TestClassifyNoMatchReturnsNormal(t *testing.T) {
	c := testClassifier(time.Now())

	msg := types.Message{From: "user@example.com", Content: "how do I change my address?"}
	got := c.Classify(msg, nil, urgentKeywordRules(), types.VIPConfig{})

	if got != types.PriorityNormal {
		t.Errorf("expected normal fallback, got %s", got)
	}
}

func TestClassifyEmptyConditionsActAsCatchAll(t *testing.T) {
	c := testClassifier(time.Now())

	// A trailing rule without conditions matches every message, so operators
	// can route leftovers to a tier other than the NORMAL fallback.
	rules := append(urgentKeywordRules(), types.PriorityRule{
		Name:       "everything else",
		Priority:   types.PriorityLow,
		Conditions: nil,
	})

	got := c.Classify(types.Message{Content: "how do I change my address?"}, nil, rules, types.VIPConfig{})
	if got != types.PriorityLow {
		t.Errorf("expected low from catch-all rule, got %s", got)
	}

	// Earlier rules still win when their conditions hold
	got = c.Classify(types.Message{Content: "the site is down"}, nil, rules, types.VIPConfig{})
	if got != types.PriorityUrgent {
		t.Errorf("expected urgent before the catch-all, got %s", got)
	}
}

func TestClassifyInvalidRulePrioritySkipped(t *testing.T) {
	c := testClassifier(time.Now())

	rules := []types.PriorityRule{
		{
			Name:     "broken",
			Priority: "extreme",
			Conditions: []types.PriorityCondition{
				{Type: types.ConditionKeyword, Keywords: []string{"refund"}},
			},
		},
		{
			Name:     "billing",
			Priority: types.PriorityHigh,
			Conditions: []types.PriorityCondition{
				{Type: types.ConditionKeyword, Keywords: []string{"refund"}},
			},
		},
	}

	got := c.Classify(types.Message{Content: "I want a refund"}, nil, rules, types.VIPConfig{})
	if got != types.PriorityHigh {
		t.Errorf("expected high after skipping invalid rule, got %s", got)
	}
}

func TestClassifyConditionsAreANDed(t *testing.T) {
	c := testClassifier(time.Now())

	rules := []types.PriorityRule{
		{
			Name:     "vip billing complaints",
			Priority: types.PriorityUrgent,
			Conditions: []types.PriorityCondition{
				{Type: types.ConditionKeyword, Keywords: []string{"refund"}},
				{Type: types.ConditionVIP, Senders: []string{"vip@example.com"}},
			},
		},
	}

	// Keyword matches, sender does not
	got := c.Classify(types.Message{From: "user@example.com", Content: "refund please"}, nil, rules, types.VIPConfig{})
	if got != types.PriorityNormal {
		t.Errorf("expected normal when only one condition matches, got %s", got)
	}

	// Both match
	got = c.Classify(types.Message{From: "vip@example.com", Content: "refund please"}, nil, rules, types.VIPConfig{})
	if got != types.PriorityUrgent {
		t.Errorf("expected urgent when all conditions match, got %s", got)
	}
}

func TestClassifyMessageCountCondition(t *testing.T) {
	c := testClassifier(time.Now())

	rules := []types.PriorityRule{
		{
			Name:     "repeat contact",
			Priority: types.PriorityHigh,
			Conditions: []types.PriorityCondition{
				{Type: types.ConditionMessageCount, Operator: types.OpGreaterThan, Threshold: 3},
			},
		},
	}

	item := &types.QueueItem{Metadata: types.QueueMetadata{MessageCount: 5}}
	if got := c.Classify(types.Message{}, item, rules, types.VIPConfig{}); got != types.PriorityHigh {
		t.Errorf("expected high for messageCount 5 > 3, got %s", got)
	}

	item.Metadata.MessageCount = 2
	if got := c.Classify(types.Message{}, item, rules, types.VIPConfig{}); got != types.PriorityNormal {
		t.Errorf("expected normal for messageCount 2, got %s", got)
	}

	// Without an item the condition cannot hold
	if got := c.Classify(types.Message{}, nil, rules, types.VIPConfig{}); got != types.PriorityNormal {
		t.Errorf("expected normal without item context, got %s", got)
	}
}

func TestClassifyBusinessHoursCondition(t *testing.T) {
	noon := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	midnight := time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)

	rules := []types.PriorityRule{
		{
			Name:     "after hours",
			Priority: types.PriorityLow,
			Conditions: []types.PriorityCondition{
				{Type: types.ConditionBusinessHours, Hours: &types.HoursWindow{Start: 9, End: 17}},
			},
		},
	}

	if got := testClassifier(noon).Classify(types.Message{}, nil, rules, types.VIPConfig{}); got != types.PriorityLow {
		t.Errorf("expected low at noon, got %s", got)
	}
	if got := testClassifier(midnight).Classify(types.Message{}, nil, rules, types.VIPConfig{}); got != types.PriorityNormal {
		t.Errorf("expected normal at midnight, got %s", got)
	}
}

func TestCheckEscalationBreachedSLA(t *testing.T) {
	now := time.Now()
	c := testClassifier(now)

	rules := []types.PriorityRule{
		{
			Name:     "normal tier",
			Priority: types.PriorityNormal,
			SLA:      &types.SLA{MaxWaitTime: 10, EscalateTo: types.PriorityHigh},
		},
	}

	item := &types.QueueItem{
		Priority:  types.PriorityNormal,
		EnteredAt: now.Add(-15 * time.Minute),
	}

	got, escalated := c.CheckEscalation(item, rules)
	if !escalated {
		t.Fatal("expected escalation after SLA breach")
	}
	if got != types.PriorityHigh {
		t.Errorf("expected high, got %s", got)
	}
}

func TestCheckEscalationWithinSLA(t *testing.T) {
	now := time.Now()
	c := testClassifier(now)

	rules := []types.PriorityRule{
		{
			Name:     "normal tier",
			Priority: types.PriorityNormal,
			SLA:      &types.SLA{MaxWaitTime: 10, EscalateTo: types.PriorityHigh},
		},
	}

	item := &types.QueueItem{
		Priority:  types.PriorityNormal,
		EnteredAt: now.Add(-5 * time.Minute),
	}

	if _, escalated := c.CheckEscalation(item, rules); escalated {
		t.Error("expected no escalation within SLA")
	}
}

func TestCheckEscalationNeverGoesDown(t *testing.T) {
	now := time.Now()
	c := testClassifier(now)

	rules := []types.PriorityRule{
		{
			Name:     "weird rule",
			Priority: types.PriorityHigh,
			SLA:      &types.SLA{MaxWaitTime: 1, EscalateTo: types.PriorityLow},
		},
	}

	item := &types.QueueItem{
		Priority:  types.PriorityHigh,
		EnteredAt: now.Add(-1 * time.Hour),
	}

	got, escalated := c.CheckEscalation(item, rules)
	if escalated {
		t.Error("expected downward escalation to be ignored")
	}
	if got != types.PriorityHigh {
		t.Errorf("expected priority unchanged, got %s", got)
	}
}

func TestCheckEscalationNoRuleForTier(t *testing.T) {
	c := testClassifier(time.Now())

	item := &types.QueueItem{
		Priority:  types.PriorityLow,
		EnteredAt: time.Now().Add(-2 * time.Hour),
	}

	if _, escalated := c.CheckEscalation(item, nil); escalated {
		t.Error("expected no escalation without a matching rule")
	}
}
