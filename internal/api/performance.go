package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/queuewise/backend/internal/cache"
	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// PerformanceHandler receives agent performance events from the surrounding
// system and exposes the live snapshots
type PerformanceHandler struct {
	perf   *cache.PerformanceStore
	logger zerolog.Logger
}

// NewPerformanceHandler creates a new PerformanceHandler
func NewPerformanceHandler(perf *cache.PerformanceStore, logger zerolog.Logger) *PerformanceHandler {
	return &PerformanceHandler{
		perf:   perf,
		logger: logger.With().Str("component", "performance_api").Logger(),
	}
}

// HandleEvents handles POST /internal/agents/performance. Accepts a batch
// of partial updates; fields left null keep their previous value.
func (h *PerformanceHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	var events []types.PerformanceEvent
	if err := json.NewDecoder(r.Body).Decode(&events); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	applied := 0
	for _, event := range events {
		if event.AgentID == "" {
			continue
		}
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now()
		}
		h.perf.Apply(event)
		applied++
	}

	h.logger.Debug().Int("applied", applied).Msg("performance events applied")

	writeJSON(w, http.StatusOK, map[string]int{"applied": applied})
}

// GetAll handles GET /api/agents/performance
func (h *PerformanceHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	snapshots := h.perf.GetAll()
	if snapshots == nil {
		snapshots = []types.AgentPerformance{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}
