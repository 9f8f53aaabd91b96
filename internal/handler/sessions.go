package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/service"
	"github.com/askdb/askdb/internal/session"
)

// SessionHandler serves the session-admin endpoints and admin login.
type SessionHandler struct {
	store  *session.Store
	auth   *service.AuthService
	logger *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(store *session.Store, auth *service.AuthService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{store: store, auth: auth, logger: logger}
}

// HandleLogin handles POST /admin/session: the shared admin token is
// exchanged for a JWT.
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	token, err := h.auth.Login(req.Token)
	if err != nil {
		h.logger.Warn("admin login rejected", "remote_addr", r.RemoteAddr)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token})
}

// HandleList handles GET /sessions.
func (h *SessionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	sessions := h.store.ListAll()
	observability.SetSessionCount(len(sessions))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// HandleGet handles GET /sessions/{id}: the session summary plus its chat
// history.
func (h *SessionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	history, err := h.store.GetChatHistory(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	summary, err := h.store.Describe(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":    summary.SessionID,
		"created_at":    summary.CreatedAt,
		"last_activity": summary.LastActivity,
		"history":       history,
	})
}

// HandleDelete handles DELETE /sessions/{id}.
func (h *SessionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.Delete(id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": id})
}

// HandleCleanup handles POST /sessions/cleanup: an immediate sweep of
// expired sessions.
func (h *SessionHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	swept := h.store.CleanupExpired()
	observability.SetSessionCount(h.store.Count())
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleaned": swept})
}
