// Package handler holds the HTTP handlers for the chat, query, schema, and
// session-admin surfaces.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/askdb/askdb/internal/ai"
	"github.com/askdb/askdb/internal/connector"
	"github.com/askdb/askdb/internal/executor"
	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/service"
	"github.com/askdb/askdb/internal/session"
	"github.com/askdb/askdb/internal/sqlsafe"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryBool extracts a boolean query parameter. Returns false if the parameter
// is missing or not "true"/"1".
func queryBool(r *http.Request, key string) bool {
	val := r.URL.Query().Get(key)
	return val == "true" || val == "1"
}

// writeDomainError maps the typed errors of the inner packages to HTTP
// status codes and writes the error envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		unsafeErr   *sqlsafe.UnsafeQueryError
		timeoutErr  *executor.TimeoutError
		execErr     *executor.ExecError
		connectErr  *connector.ConnectError
		notFoundErr *session.NotFoundError
	)
	switch {
	case errors.As(err, &unsafeErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &timeoutErr):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &execErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &connectErr):
		writeError(w, http.StatusBadGateway, err.Error(),
			map[string]interface{}{"host": connectErr.Host, "database": connectErr.Database})
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ai.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAuthDisabled):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
