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

// ChatHandler serves the chat and query endpoints.
type ChatHandler struct {
	orch   *chat.Orchestrator
	logger *slog.Logger
}

// NewChatHandler creates a ChatHandler.
func NewChatHandler(orch *chat.Orchestrator, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{orch: orch, logger: logger}
}

// HandleChat handles POST /chat.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Field 'message' is required")
		return
	}

	resp, err := h.orch.HandleMessage(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleQuery handles POST /query: a natural-language query without the
// conversational envelope.
func (h *ChatHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req model.QueryRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "Field 'prompt' is required")
		return
	}

	sess := h.orch.Sessions().GetOrCreate(req.SessionID)
	started := time.Now()
	result, err := h.orch.ProcessQuery(r.Context(), sess.ID, req.Prompt, req.Connection, req.AllowDestructive, req.Confirm)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	observability.ObserveQuery(result, time.Since(started))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"result":     result,
	})
}
