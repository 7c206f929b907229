package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/queuewise/backend/internal/auth"
	"github.com/queuewise/backend/internal/directory"
	"github.com/queuewise/backend/internal/storage"
	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// AdminHandler handles queue configuration and durable-store maintenance
type AdminHandler struct {
	store     storage.Store
	directory *directory.Directory
	logger    zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(store storage.Store, dir *directory.Directory, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		store:     store,
		directory: dir,
		logger:    logger.With().Str("component", "admin_api").Logger(),
	}
}

// RequireAdmin middleware — only admin role allowed
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.GetUserFromContext(r.Context())
		if !ok || !auth.HasRole(claims, "admin") {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"admin role required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSupervisorOrAdmin middleware — supervisor or admin role allowed
func RequireSupervisorOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.GetUserFromContext(r.Context())
		if !ok || (claims.Role != "admin" && claims.Role != "supervisor") {
			w.Header().Set("Content-Type", "application/json")
			http.Error(w, `{"error":"supervisor or admin role required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListDepartments handles GET /api/departments
func (h *AdminHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.directory.Departments())
}

// GetQueueConfig handles GET /api/departments/{departmentId}/config
func (h *AdminHandler) GetQueueConfig(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "departmentId")

	cfg, err := h.directory.GetQueueConfig(r.Context(), departmentID)
	if err != nil {
		h.logger.Error().Err(err).Str("department", departmentID).Msg("failed to load queue config")
		http.Error(w, `{"error":"failed to load config"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PutQueueConfig handles PUT /api/departments/{departmentId}/config
func (h *AdminHandler) PutQueueConfig(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "departmentId")

	var cfg types.QueueConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	cfg.DepartmentID = departmentID

	h.directory.SetQueueConfig(cfg)

	h.logger.Info().
		Str("department", departmentID).
		Str("method", string(cfg.Method)).
		Msg("queue config updated")

	writeJSON(w, http.StatusOK, cfg)
}

// GetDepartmentRecords handles GET /api/departments/{departmentId}/records.
// Serves the durable audit trail, including closed items already evicted
// from the in-memory queue.
func (h *AdminHandler) GetDepartmentRecords(w http.ResponseWriter, r *http.Request) {
	departmentID := chi.URLParam(r, "departmentId")
	if departmentID == "" {
		http.Error(w, "departmentId is required", http.StatusBadRequest)
		return
	}

	records, err := h.store.GetDepartmentItems(r.Context(), departmentID)
	if err != nil {
		h.logger.Error().Err(err).Str("department", departmentID).Msg("failed to load department records")
		http.Error(w, `{"error":"failed to retrieve records"}`, http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []types.QueueItemRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// Reset handles POST /api/admin/reset — wipes the durable store. Intended
// for test environments only.
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TruncateAll(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to truncate durable store")
		http.Error(w, `{"error":"reset failed"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Warn().Msg("durable store truncated via admin API")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}
