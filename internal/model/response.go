package model

import "time"

// ChatResponse is the uniform envelope returned for every chat turn.
type ChatResponse struct {
	SessionID string       `json:"session_id"`
	Mode      Mode         `json:"mode"`
	Response  string       `json:"response"`
	SQL       string       `json:"sql,omitempty"`
	Result    *QueryResult `json:"result,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// QueryResult wraps a QueryOutcome with the generated SQL and the safety
// gate's blocking state. Blocked results carry no outcome.
type QueryResult struct {
	QueryOutcome
	SQL          string `json:"sql,omitempty"`
	Blocked      bool   `json:"blocked,omitempty"`
	BlockMessage string `json:"message,omitempty"`
	Optimization string `json:"optimization,omitempty"`
}

// StreamEvent is one element of a streaming chat response.
type StreamEvent struct {
	Type      string `json:"type"` // "start", "chunk", "done", "error"
	SessionID string `json:"session_id,omitempty"`
	Content   string `json:"content,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SimulationResult is the canned envelope returned by the executor's
// dry-run path.
type SimulationResult struct {
	Mode       string               `json:"mode"` // always "simulation"
	QueryKind  QueryKind            `json:"query_kind"`
	SQL        string               `json:"sql"`
	Validation SimulationValidation `json:"validation"`
	Note       string               `json:"simulation_note"`
}

// SimulationValidation is the static validation block inside a
// SimulationResult.
type SimulationValidation struct {
	Syntax              string   `json:"syntax"`
	TablesAccessed      []string `json:"tables_accessed"`
	EstimatedComplexity string   `json:"estimated_complexity"`
}

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the structured error information returned by the API.
type ErrorDetail struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}
