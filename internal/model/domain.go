// Package model holds the shared domain types for askdb: connection
// parameters, query outcomes, chat messages, and the request/response
// envelopes used by the HTTP and MCP surfaces.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// QueryKind classifies a SQL statement by its leading keyword.
type QueryKind string

const (
	KindRead  QueryKind = "READ"
	KindWrite QueryKind = "WRITE"
	KindDDL   QueryKind = "DDL"
	KindDCL   QueryKind = "DCL"
)

// Mode selects how the orchestrator handles a chat turn.
type Mode string

const (
	ModeAssistant    Mode = "assistant"
	ModeQuery        Mode = "query"
	ModeTeaching     Mode = "teaching"
	ModeDebug        Mode = "debug"
	ModeOptimization Mode = "optimization"
	ModeSearch       Mode = "search"
)

// ParseMode maps a mode string to a known Mode. Unknown or empty values
// fall back to assistant mode deterministically.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeQuery:
		return ModeQuery
	case ModeTeaching:
		return ModeTeaching
	case ModeDebug:
		return ModeDebug
	case ModeOptimization:
		return ModeOptimization
	case ModeSearch:
		return ModeSearch
	default:
		return ModeAssistant
	}
}

// ConnectionParams identifies a target database. The password is excluded
// from the identity key and must never be logged verbatim.
type ConnectionParams struct {
	Driver   string `json:"driver,omitempty"` // mysql (default), postgres, sqlite
	User     string `json:"user"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
}

// Normalize fills in defaults for omitted fields.
func (p ConnectionParams) Normalize() ConnectionParams {
	if p.Driver == "" {
		p.Driver = "mysql"
	}
	if p.Port == 0 && p.Driver == "mysql" {
		p.Port = 3306
	}
	if p.Port == 0 && p.Driver == "postgres" {
		p.Port = 5432
	}
	return p
}

// Key returns the identity key for the connection: driver, user, host,
// port and database joined deterministically. Passwords never participate.
func (p ConnectionParams) Key() string {
	p = p.Normalize()
	return fmt.Sprintf("%s@%s@%s:%d/%s", p.Driver, p.User, p.Host, p.Port, p.Database)
}

// HashKey returns the SHA-256 hex digest of Key, safe to expose in logs
// and API responses.
func (p ConnectionParams) HashKey() string {
	sum := sha256.Sum256([]byte(p.Key()))
	return hex.EncodeToString(sum[:])
}

// MaskedPassword returns the password with all but the first and last two
// characters replaced, for log output.
func (p ConnectionParams) MaskedPassword() string {
	if len(p.Password) <= 4 {
		return "****"
	}
	return p.Password[:2] + strings.Repeat("*", len(p.Password)-4) + p.Password[len(p.Password)-2:]
}

// QueryOutcome is the normalized result of one SQL execution. Built once
// per execution and never mutated afterwards.
type QueryOutcome struct {
	Success      bool             `json:"success"`
	QueryKind    QueryKind        `json:"query_kind"`
	Rows         []map[string]any `json:"rows,omitempty"`
	RowCount     int              `json:"row_count,omitempty"`
	RowsAffected int64            `json:"rows_affected,omitempty"`
	Columns      []string         `json:"columns,omitempty"`
	Message      string           `json:"message,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// ChatMessage is one entry in a session's chat transcript.
type ChatMessage struct {
	Role      string         `json:"role"` // "user" or "assistant"
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ConversationTurn records one query/outcome pair in a session's bounded
// conversation history.
type ConversationTurn struct {
	Timestamp time.Time     `json:"timestamp"`
	Query     string        `json:"query"`
	Outcome   *QueryOutcome `json:"outcome"`
}

// SessionSummary is the lightweight session view returned by admin
// endpoints.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}
