package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/chat"
	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/observability"
)

// SQLHandler serves the raw SQL execution and simulation endpoints.
type SQLHandler struct {
	orch   *chat.Orchestrator
	logger *slog.Logger
}

// NewSQLHandler creates a SQLHandler.
func NewSQLHandler(orch *chat.Orchestrator, logger *slog.Logger) *SQLHandler {
	return &SQLHandler{orch: orch, logger: logger}
}

// HandleExecute handles POST /sql.
func (h *SQLHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req model.SQLRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(w, http.StatusBadRequest, "Field 'sql' is required")
		return
	}

	started := time.Now()
	result, err := h.orch.ExecuteSQL(r.Context(), req.SQL, req.Connection, req.AllowDestructive, req.Confirm)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.ObserveQuery(result, time.Since(started))

	writeJSON(w, http.StatusOK, result)
}

// HandleSimulate handles POST /sql/simulate: the statement is classified
// and validated but never executed.
func (h *SQLHandler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req model.SQLRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(w, http.StatusBadRequest, "Field 'sql' is required")
		return
	}

	writeJSON(w, http.StatusOK, h.orch.Simulate(r.Context(), req.SQL, req.Connection))
}
