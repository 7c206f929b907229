package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to the messaging-channel service that owns the actual chat
// sessions. Every call honors the caller's context deadline; retries are the
// caller's responsibility.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

// New creates a channel client. An empty baseURL yields a client whose
// calls succeed without doing anything, for local development.
func New(baseURL, token string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			// Per-call deadlines come from the context; this is a hard upper
			// bound against leaked requests
			Timeout: 30 * time.Second,
		},
		logger: logger.With().Str("component", "channel").Logger(),
	}
}

type assignRequest struct {
	TicketID     string `json:"ticketId"`
	AgentID      string `json:"agentId"`
	DepartmentID string `json:"departmentId"`
}

type messageRequest struct {
	TicketID string `json:"ticketId"`
	Content  string `json:"content"`
}

// AssignChat tells the channel service to hand the ticket's chat session to
// an agent. The channel service deduplicates repeated assignments of the
// same ticket to the same agent.
func (c *Client) AssignChat(ctx context.Context, ticketID, agentID, departmentID string) error {
	if c.baseURL == "" {
		c.logger.Debug().
			Str("ticket_id", ticketID).
			Str("agent_id", agentID).
			Msg("channel disabled, assignment not forwarded")
		return nil
	}

	return c.post(ctx, "/api/chats/assign", assignRequest{
		TicketID:     ticketID,
		AgentID:      agentID,
		DepartmentID: departmentID,
	})
}

// SendMessage posts a system message into the ticket's chat session
func (c *Client) SendMessage(ctx context.Context, ticketID, content string) error {
	if c.baseURL == "" {
		return nil
	}

	return c.post(ctx, "/api/chats/message", messageRequest{
		TicketID: ticketID,
		Content:  content,
	})
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal channel request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build channel request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("channel request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("channel returned %d for %s: %s", resp.StatusCode, path, string(snippet))
	}
	return nil
}
