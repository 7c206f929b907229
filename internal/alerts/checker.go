package alerts

import (
	"fmt"
	"time"

	"github.com/queuewise/backend/internal/types"
)

// Severity grades a queue alert
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// QueueAlert flags an item that has been waiting too long for its priority
type QueueAlert struct {
	ItemID       string   `json:"itemId"`
	TicketID     string   `json:"ticketId"`
	DepartmentID string   `json:"departmentId"`
	Rule         string   `json:"rule"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
}

// Wait thresholds per priority. Items past the critical threshold escalate
// the alert severity.
var waitThresholds = map[types.QueuePriority]struct {
	warning  time.Duration
	critical time.Duration
}{
	types.PriorityUrgent: {warning: 2 * time.Minute, critical: 5 * time.Minute},
	types.PriorityHigh:   {warning: 5 * time.Minute, critical: 15 * time.Minute},
	types.PriorityNormal: {warning: 15 * time.Minute, critical: 30 * time.Minute},
	types.PriorityLow:    {warning: 30 * time.Minute, critical: 60 * time.Minute},
}

// CheckWaitAlerts evaluates wait-time alert rules over waiting items.
// Non-waiting items never alert.
func CheckWaitAlerts(items []*types.QueueItem, now time.Time) []QueueAlert {
	var alerts []QueueAlert

	for _, item := range items {
		if item.Status != types.StatusWaiting {
			continue
		}

		thresholds, ok := waitThresholds[item.Priority]
		if !ok {
			continue
		}

		wait := item.WaitDuration(now)
		switch {
		case wait > thresholds.critical:
			alerts = append(alerts, QueueAlert{
				ItemID:       item.ID,
				TicketID:     item.TicketID,
				DepartmentID: item.DepartmentID,
				Rule:         "wait_long",
				Severity:     SeverityCritical,
				Message:      fmt.Sprintf("waiting %s at %s priority", formatDuration(wait), item.Priority),
			})
		case wait > thresholds.warning:
			alerts = append(alerts, QueueAlert{
				ItemID:       item.ID,
				TicketID:     item.TicketID,
				DepartmentID: item.DepartmentID,
				Rule:         "wait_long",
				Severity:     SeverityWarning,
				Message:      fmt.Sprintf("waiting %s at %s priority", formatDuration(wait), item.Priority),
			})
		}
	}

	return alerts
}

func formatDuration(d time.Duration) string {
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if mins >= 60 {
		hours := mins / 60
		mins = mins % 60
		return fmt.Sprintf("%dh%dm", hours, mins)
	}
	return fmt.Sprintf("%dm%ds", mins, secs)
}
