package model

// ChatRequest is the payload for a chat turn.
type ChatRequest struct {
	Message          string           `json:"message"`
	Connection       ConnectionParams `json:"connection"`
	SessionID        string           `json:"session_id,omitempty"`
	Mode             string           `json:"mode,omitempty"`
	AllowDestructive bool             `json:"allow_destructive,omitempty"`
	Confirm          bool             `json:"confirm,omitempty"`
}

// QueryRequest is the payload for a natural-language query.
type QueryRequest struct {
	Prompt           string           `json:"prompt"`
	Connection       ConnectionParams `json:"connection"`
	SessionID        string           `json:"session_id,omitempty"`
	AllowDestructive bool             `json:"allow_destructive,omitempty"`
	Confirm          bool             `json:"confirm,omitempty"`
}

// SQLRequest is the payload for raw SQL execution.
type SQLRequest struct {
	SQL              string           `json:"sql"`
	Connection       ConnectionParams `json:"connection"`
	AllowDestructive bool             `json:"allow_destructive,omitempty"`
	Confirm          bool             `json:"confirm,omitempty"`
}

// SchemaRequest is the payload for a schema fetch.
type SchemaRequest struct {
	Connection   ConnectionParams `json:"connection"`
	ForceRefresh bool             `json:"force_refresh,omitempty"`
}

// LoginRequest is the payload for the admin session endpoint.
type LoginRequest struct {
	Token string `json:"token"`
}
