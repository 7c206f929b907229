package event

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/queuewise/backend/internal/qerrors"
	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// Enqueuer is the engine operation the webhook feeds into
type Enqueuer interface {
	Enqueue(ctx context.Context, msg types.Message, departmentID, ticketID string, prio types.QueuePriority) (*types.QueueItem, error)
}

// WebhookMessage is the inbound payload from the messaging channel. A
// repeated webhook for an already-open ticket folds into the existing
// queue item rather than creating a duplicate.
type WebhookMessage struct {
	Message      types.Message       `json:"message"`
	DepartmentID string              `json:"departmentId"`
	TicketID     string              `json:"ticketId,omitempty"`
	Priority     types.QueuePriority `json:"priority,omitempty"`
}

// Receiver handles incoming message webhooks from the channel service
type Receiver struct {
	engine           Enqueuer
	logger           zerolog.Logger
	messagesReceived int64
	lastReceived     time.Time
	mu               sync.RWMutex
}

// NewReceiver creates a new webhook receiver
func NewReceiver(engine Enqueuer, logger zerolog.Logger) *Receiver {
	return &Receiver{
		engine: engine,
		logger: logger.With().Str("component", "webhook").Logger(),
	}
}

// HandleMessage receives a channel webhook and enqueues the message
func (r *Receiver) HandleMessage(w http.ResponseWriter, req *http.Request) {
	var hook WebhookMessage
	if err := json.NewDecoder(req.Body).Decode(&hook); err != nil {
		r.logger.Error().Err(err).Msg("failed to decode webhook")
		http.Error(w, "invalid webhook payload", http.StatusBadRequest)
		return
	}

	item, err := r.engine.Enqueue(req.Context(), hook.Message, hook.DepartmentID, hook.TicketID, hook.Priority)
	if err != nil {
		if qerrors.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.logger.Error().Err(err).Msg("failed to enqueue webhook message")
		http.Error(w, "enqueue failed", http.StatusInternalServerError)
		return
	}

	// Update stats
	atomic.AddInt64(&r.messagesReceived, 1)
	r.mu.Lock()
	r.lastReceived = time.Now()
	r.mu.Unlock()

	// Log periodically
	count := atomic.LoadInt64(&r.messagesReceived)
	if count%1000 == 0 {
		r.logger.Info().
			Int64("total_received", count).
			Msg("webhook messages received")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(item)
}

// GetStats returns receiver statistics
func (r *Receiver) GetStats(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	lastReceived := r.lastReceived
	r.mu.RUnlock()

	stats := map[string]interface{}{
		"messages_received": atomic.LoadInt64(&r.messagesReceived),
		"last_received":     lastReceived,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
