package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/queuewise/backend/internal/directory"
	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// RosterHandler handles the agent roster registration endpoint
type RosterHandler struct {
	directory *directory.Directory
	logger    zerolog.Logger
}

// NewRosterHandler creates a new RosterHandler
func NewRosterHandler(dir *directory.Directory, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		directory: dir,
		logger:    logger.With().Str("component", "roster").Logger(),
	}
}

// HandleRoster handles POST /internal/agents/roster. The surrounding system
// pushes the full agent roster; entries are upserted into the directory.
func (h *RosterHandler) HandleRoster(w http.ResponseWriter, r *http.Request) {
	var roster []types.Agent
	if err := json.NewDecoder(r.Body).Decode(&roster); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	registered := 0
	for _, agent := range roster {
		if err := h.directory.UpsertAgent(agent); err != nil {
			h.logger.Warn().Err(err).Str("agent_id", agent.ID).Msg("skipping invalid roster entry")
			continue
		}
		registered++
	}

	h.logger.Info().Int("registered", registered).Msg("roster received")

	writeJSON(w, http.StatusOK, map[string]int{"registered": registered})
}

// HandleRemoveAgent handles DELETE /internal/agents/{departmentId}/{agentId}
func (h *RosterHandler) HandleRemoveAgent(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "departmentId")
	agentID := chi.URLParam(r, "agentId")
	if departmentID == "" || agentID == "" {
		http.Error(w, "departmentId and agentId are required", http.StatusBadRequest)
		return
	}

	h.directory.RemoveAgent(departmentID, agentID)
	writeJSON(w, http.StatusOK, map[string]string{"removed": agentID})
}
