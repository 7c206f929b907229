package types

import "time"

// Message is an inbound chat message delivered by the messaging channel
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"` // sender identifier on the channel
	Content   string    `json:"content"`
	ChannelID string    `json:"channelId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
