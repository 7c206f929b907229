package websocket

import "time"

// Publisher adapts the hub to the queue engine's event callback. The engine
// hands over topic, department and payload; the publisher wraps them in the
// wire envelope.
type Publisher struct {
	hub *Hub
}

// NewPublisher creates a hub-backed event publisher
func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

// Publish queues an event for fanout. Never blocks.
func (p *Publisher) Publish(topic string, departmentID string, payload any) {
	p.hub.Broadcast(Envelope{
		Topic:        topic,
		DepartmentID: departmentID,
		Payload:      payload,
		Timestamp:    time.Now(),
	})
}
