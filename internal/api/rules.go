package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/queuewise/backend/internal/types"
	"github.com/rs/zerolog"
)

// RuleStore persists the priority classification configuration
type RuleStore interface {
	PriorityRules(ctx context.Context) ([]types.PriorityRule, error)
	SetPriorityRules(ctx context.Context, rules []types.PriorityRule) error
	VIPConfig(ctx context.Context) (types.VIPConfig, error)
	SetVIPConfig(ctx context.Context, cfg types.VIPConfig) error
}

// RulesHandler manages the priority rules and VIP configuration
type RulesHandler struct {
	rules  RuleStore
	logger zerolog.Logger
}

// NewRulesHandler creates a new RulesHandler
func NewRulesHandler(rules RuleStore, logger zerolog.Logger) *RulesHandler {
	return &RulesHandler{
		rules:  rules,
		logger: logger.With().Str("component", "rules_api").Logger(),
	}
}

// GetRules handles GET /api/queue/rules
func (h *RulesHandler) GetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.PriorityRules(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load priority rules")
		http.Error(w, `{"error":"failed to load rules"}`, http.StatusInternalServerError)
		return
	}
	if rules == nil {
		rules = []types.PriorityRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// PutRules handles PUT /api/queue/rules. The whole rule list is replaced;
// ordering in the payload is the evaluation order.
func (h *RulesHandler) PutRules(w http.ResponseWriter, r *http.Request) {
	var rules []types.PriorityRule
	if err := json.NewDecoder(r.Body).Decode(&rules); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	for _, rule := range rules {
		if !rule.Priority.Valid() {
			http.Error(w, `{"error":"unknown priority: `+string(rule.Priority)+`"}`, http.StatusBadRequest)
			return
		}
	}

	if err := h.rules.SetPriorityRules(r.Context(), rules); err != nil {
		h.logger.Error().Err(err).Msg("failed to store priority rules")
		http.Error(w, `{"error":"failed to store rules"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info().Int("rules", len(rules)).Msg("priority rules replaced")
	writeJSON(w, http.StatusOK, map[string]int{"rules": len(rules)})
}

// GetVIP handles GET /api/queue/rules/vip
func (h *RulesHandler) GetVIP(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.rules.VIPConfig(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load VIP config")
		http.Error(w, `{"error":"failed to load VIP config"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PutVIP handles PUT /api/queue/rules/vip
func (h *RulesHandler) PutVIP(w http.ResponseWriter, r *http.Request) {
	var cfg types.VIPConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if cfg.DefaultPriority == "" {
		cfg.DefaultPriority = types.PriorityHigh
	}
	if !cfg.DefaultPriority.Valid() {
		http.Error(w, `{"error":"unknown priority: `+string(cfg.DefaultPriority)+`"}`, http.StatusBadRequest)
		return
	}

	if err := h.rules.SetVIPConfig(r.Context(), cfg); err != nil {
		h.logger.Error().Err(err).Msg("failed to store VIP config")
		http.Error(w, `{"error":"failed to store VIP config"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info().Int("senders", len(cfg.Senders)).Msg("VIP config replaced")
	writeJSON(w, http.StatusOK, cfg)
}
