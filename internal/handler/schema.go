package handler

import (
	"log/slog"
	"net/http"

	"github.com/askdb/askdb/internal/chat"
	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/observability"
)

// SchemaHandler serves schema fetch and cache administration.
type SchemaHandler struct {
	orch   *chat.Orchestrator
	logger *slog.Logger
}

// NewSchemaHandler creates a SchemaHandler.
func NewSchemaHandler(orch *chat.Orchestrator, logger *slog.Logger) *SchemaHandler {
	return &SchemaHandler{orch: orch, logger: logger}
}

// HandleFetch handles POST /schema. With force_refresh the TTL is
// bypassed and introspection failures surface as errors.
func (h *SchemaHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	var req model.SchemaRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	cache := h.orch.Schemas()
	var snapshot *model.SchemaSnapshot
	if req.ForceRefresh {
		snap, err := cache.Refresh(r.Context(), req.Connection)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		snapshot = snap
	} else {
		snapshot = cache.Get(r.Context(), req.Connection)
	}
	observability.SetSchemaCacheSize(cache.Len())

	writeJSON(w, http.StatusOK, snapshot)
}

// HandleClearCache handles DELETE /schema/cache. With a connection body
// one entry is dropped; without one the whole cache is cleared.
func (h *SchemaHandler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	cache := h.orch.Schemas()

	var req model.SchemaRequest
	if err := readJSON(r, &req); err == nil && req.Connection.Database != "" {
		cache.Invalidate(req.Connection)
		writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": 1})
		return
	}

	cleared := cache.InvalidateAll()
	h.logger.Info("schema cache cleared", "entries", cleared)
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": cleared})
}
