package types

import "time"

// QueueItemRecord is the durable copy of a queue item written behind the
// in-memory store. Used for crash recovery and audit, never for hot-path
// decisions.
type QueueItemRecord struct {
	ID           string `dynamodbav:"ID" json:"id"`
	DepartmentID string `dynamodbav:"DepartmentID" json:"departmentId"`
	TicketID     string `dynamodbav:"TicketID" json:"ticketId"`
	Priority     string `dynamodbav:"Priority" json:"priority"`
	Status       string `dynamodbav:"Status" json:"status"`
	EnteredAt    string `dynamodbav:"EnteredAt" json:"enteredAt"` // RFC3339
	LastUpdate   string `dynamodbav:"LastUpdate" json:"lastUpdate"`
	AssignedTo   string `dynamodbav:"AssignedTo,omitempty" json:"assignedTo,omitempty"`
	Resolution   string `dynamodbav:"Resolution,omitempty" json:"resolution,omitempty"`
	Sender       string `dynamodbav:"Sender" json:"sender"`
	MessageCount int    `dynamodbav:"MessageCount" json:"messageCount"`
	LastMessage  string `dynamodbav:"LastMessage" json:"lastMessage"`
	Source       string `dynamodbav:"Source" json:"source"`
}

// ItemToRecord converts a queue item to its durable representation
func ItemToRecord(item *QueueItem) QueueItemRecord {
	return QueueItemRecord{
		ID:           item.ID,
		DepartmentID: item.DepartmentID,
		TicketID:     item.TicketID,
		Priority:     string(item.Priority),
		Status:       string(item.Status),
		EnteredAt:    item.EnteredAt.Format(time.RFC3339Nano),
		LastUpdate:   item.LastUpdate.Format(time.RFC3339Nano),
		AssignedTo:   item.AssignedTo,
		Resolution:   item.Resolution,
		Sender:       item.Metadata.FirstMessage.From,
		MessageCount: item.Metadata.MessageCount,
		LastMessage:  item.Metadata.LastMessage.Content,
		Source:       item.Metadata.Source,
	}
}

// RecordToItem restores a queue item from its durable representation.
// Message snapshots beyond sender and last content are not recoverable.
func RecordToItem(rec QueueItemRecord) *QueueItem {
	enteredAt, _ := time.Parse(time.RFC3339Nano, rec.EnteredAt)
	lastUpdate, _ := time.Parse(time.RFC3339Nano, rec.LastUpdate)

	return &QueueItem{
		ID:           rec.ID,
		TicketID:     rec.TicketID,
		DepartmentID: rec.DepartmentID,
		Priority:     QueuePriority(rec.Priority),
		Status:       QueueStatus(rec.Status),
		EnteredAt:    enteredAt,
		LastUpdate:   lastUpdate,
		AssignedTo:   rec.AssignedTo,
		Resolution:   rec.Resolution,
		Metadata: QueueMetadata{
			MessageCount: rec.MessageCount,
			FirstMessage: Message{From: rec.Sender},
			LastMessage:  Message{From: rec.Sender, Content: rec.LastMessage},
			Source:       rec.Source,
			Tags:         []string{},
		},
	}
}
