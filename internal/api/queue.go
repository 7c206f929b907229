package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/queuewise/backend/internal/alerts"
	"github.com/queuewise/backend/internal/engine"
	"github.com/queuewise/backend/internal/metrics"
	"github.com/queuewise/backend/internal/qerrors"
	"github.com/queuewise/backend/internal/queuestore"
	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// QueueHandler provides REST endpoints for queue operations
type QueueHandler struct {
	engine     *engine.Engine
	store      *queuestore.Store
	aggregator *metrics.Aggregator
	logger     zerolog.Logger
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(eng *engine.Engine, store *queuestore.Store, aggregator *metrics.Aggregator, logger zerolog.Logger) *QueueHandler {
	return &QueueHandler{
		engine:     eng,
		store:      store,
		aggregator: aggregator,
		logger:     logger.With().Str("component", "queue_api").Logger(),
	}
}

// EnqueueRequest is the payload for POST /api/queue/enqueue
type EnqueueRequest struct {
	Message      types.Message       `json:"message"`
	DepartmentID string              `json:"departmentId"`
	TicketID     string              `json:"ticketId,omitempty"`
	Priority     types.QueuePriority `json:"priority,omitempty"`
}

// Enqueue handles POST /api/queue/enqueue
func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	item, err := h.engine.Enqueue(r.Context(), req.Message, req.DepartmentID, req.TicketID, req.Priority)
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Distribution continues asynchronously; the item is accepted, not
	// necessarily assigned yet
	writeJSON(w, http.StatusAccepted, item)
}

// UpdatePriorityRequest is the payload for PUT /api/queue/{id}/priority
type UpdatePriorityRequest struct {
	DepartmentID string              `json:"departmentId"`
	Priority     types.QueuePriority `json:"priority"`
}

// UpdatePriority handles PUT /api/queue/{id}/priority
func (h *QueueHandler) UpdatePriority(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req UpdatePriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.engine.UpdatePriority(r.Context(), itemID, req.DepartmentID, req.Priority); err != nil {
		h.writeError(w, err)
		return
	}

	item, _ := h.store.Get(itemID)
	writeJSON(w, http.StatusOK, item)
}

// MarkProcessing handles POST /api/queue/{id}/processing
func (h *QueueHandler) MarkProcessing(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	if err := h.engine.MarkProcessing(r.Context(), itemID); err != nil {
		h.writeError(w, err)
		return
	}

	item, _ := h.store.Get(itemID)
	writeJSON(w, http.StatusOK, item)
}

// CloseRequest is the payload for POST /api/queue/{id}/close
type CloseRequest struct {
	Resolution string `json:"resolution"`
}

// CloseItem handles POST /api/queue/{id}/close
func (h *QueueHandler) CloseItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	var req CloseRequest
	if r.Body != nil {
		// Resolution is optional
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.engine.Close(r.Context(), itemID, req.Resolution); err != nil {
		h.writeError(w, err)
		return
	}

	item, _ := h.store.Get(itemID)
	writeJSON(w, http.StatusOK, item)
}

// GetItem handles GET /api/queue/{id}
func (h *QueueHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	item, ok := h.store.Get(itemID)
	if !ok {
		http.Error(w, `{"error":"item not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ListItems handles GET /api/queue/items?department=X&status=Y
func (h *QueueHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	filter := queuestore.Filter{
		DepartmentID: r.URL.Query().Get("department"),
		Status:       types.QueueStatus(r.URL.Query().Get("status")),
	}

	items := h.store.List(filter)
	if items == nil {
		items = []*types.QueueItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetMetrics handles GET /api/queue/metrics?department=X
func (h *QueueHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	departmentID := r.URL.Query().Get("department")
	writeJSON(w, http.StatusOK, h.aggregator.Compute(departmentID))
}

// GetHistory handles GET /api/queue/history?limit=N
func (h *QueueHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	records := h.engine.History(limit)
	if records == nil {
		records = []types.AssignmentRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetAlerts handles GET /api/queue/alerts?department=X
func (h *QueueHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	departmentID := r.URL.Query().Get("department")

	found := alerts.CheckWaitAlerts(h.store.ListWaiting(departmentID), time.Now())
	if found == nil {
		found = []alerts.QueueAlert{}
	}
	writeJSON(w, http.StatusOK, found)
}

// writeError maps core errors onto HTTP status codes
func (h *QueueHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case qerrors.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, qerrors.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
	case qerrors.IsInvalidTransition(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.logger.Error().Err(err).Msg("queue operation failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
