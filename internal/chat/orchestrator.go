// Package chat orchestrates a conversation turn: mode dispatch, the
// natural-language-to-SQL pipeline with its safety gates, and streaming
// delivery.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/askdb/askdb/internal/ai"
	"github.com/askdb/askdb/internal/connector"
	"github.com/askdb/askdb/internal/executor"
	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/schemacache"
	"github.com/askdb/askdb/internal/session"
)

// Orchestrator wires the stores and the generator into one chat turn.
type Orchestrator struct {
	registry *connector.Registry
	schemas  *schemacache.Cache
	executor *executor.Executor
	sessions *session.Store
	gen      ai.Generator
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(
	registry *connector.Registry,
	schemas *schemacache.Cache,
	exec *executor.Executor,
	sessions *session.Store,
	gen ai.Generator,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		schemas:  schemas,
		executor: exec,
		sessions: sessions,
		gen:      gen,
		logger:   logger,
	}
}

// Sessions exposes the underlying session store for admin surfaces.
func (o *Orchestrator) Sessions() *session.Store { return o.sessions }

// Schemas exposes the schema cache for admin surfaces.
func (o *Orchestrator) Schemas() *schemacache.Cache { return o.schemas }

// HandleMessage runs one chat turn and returns the response envelope.
func (o *Orchestrator) HandleMessage(ctx context.Context, req model.ChatRequest) (*model.ChatResponse, error) {
	mode := model.ParseMode(req.Mode)
	sess := o.sessions.GetOrCreate(req.SessionID)

	if err := o.sessions.AddMessage(sess.ID, "user", req.Message, map[string]any{"mode": string(mode)}); err != nil {
		return nil, err
	}

	snapshot := o.schemas.Get(ctx, req.Connection)

	var (
		response string
		sqlText  string
		result   *model.QueryResult
		err      error
	)
	switch mode {
	case model.ModeQuery:
		result, err = o.ProcessQuery(ctx, sess.ID, req.Message, req.Connection, req.AllowDestructive, req.Confirm)
		if err != nil {
			return nil, err
		}
		sqlText = result.SQL
		response = queryResponseText(result)
	case model.ModeSearch:
		response = o.searchSchema(req.Message, snapshot)
	case model.ModeOptimization:
		response, result, err = o.optimize(ctx, sess.ID, req, snapshot)
		if result != nil {
			sqlText = result.SQL
		}
	default:
		response, err = o.converse(ctx, mode, sess.ID, req.Message, snapshot)
	}
	if err != nil {
		return nil, err
	}

	metadata := map[string]any{"mode": string(mode)}
	if sqlText != "" {
		metadata["sql"] = sqlText
	}
	if err := o.sessions.AddMessage(sess.ID, "assistant", response, metadata); err != nil {
		return nil, err
	}

	return &model.ChatResponse{
		SessionID: sess.ID,
		Mode:      mode,
		Response:  response,
		SQL:       sqlText,
		Result:    result,
		Timestamp: time.Now().UTC(),
	}, nil
}

// converse runs a purely conversational mode through the generator with
// the session's chat history as context.
func (o *Orchestrator) converse(ctx context.Context, mode model.Mode, sessionID, message string, snapshot *model.SchemaSnapshot) (string, error) {
	history, err := o.sessions.GetChatHistory(sessionID)
	if err != nil {
		return "", err
	}
	// The just-added user message rides as the final prompt message.
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		history = history[:n-1]
	}

	messages := ai.BuildChatMessages(mode, message, snapshot, history)
	response, err := o.gen.Generate(ctx, messages)
	observability.ObserveGeneration(err)
	if err != nil {
		return "", fmt.Errorf("generate %s response: %w", mode, err)
	}
	return response, nil
}

// optimize runs the full query pipeline, then a second analysis-only pass
// over the executed outcome. Blocked or failed executions fall back to the
// plain query-mode response.
func (o *Orchestrator) optimize(ctx context.Context, sessionID string, req model.ChatRequest, snapshot *model.SchemaSnapshot) (string, *model.QueryResult, error) {
	result, err := o.ProcessQuery(ctx, sessionID, req.Message, req.Connection, req.AllowDestructive, req.Confirm)
	if err != nil {
		return "", nil, err
	}
	if !result.Success {
		return queryResponseText(result), result, nil
	}

	analysis, err := o.gen.Generate(ctx, ai.BuildOptimizationMessages(result.SQL, &result.QueryOutcome, snapshot))
	observability.ObserveGeneration(err)
	if err != nil {
		return "", nil, fmt.Errorf("generate optimization analysis: %w", err)
	}
	result.Optimization = analysis

	response := fmt.Sprintf("%s\n\nPerformance optimization analysis:\n\n%s", queryResponseText(result), analysis)
	return response, result, nil
}

// queryResponseText renders the human-readable summary for a query-mode
// turn.
func queryResponseText(result *model.QueryResult) string {
	switch {
	case result.Blocked:
		return result.BlockMessage
	case result.Success:
		if result.QueryKind == model.KindRead {
			return fmt.Sprintf("Query executed successfully.\n\n%s\n\nReturned %d rows.", result.SQL, result.RowCount)
		}
		return fmt.Sprintf("Query executed successfully.\n\n%s\n\nAffected %d rows.", result.SQL, result.RowsAffected)
	default:
		return fmt.Sprintf("Query failed.\n\n%s\n\nError: %s", result.SQL, result.Error)
	}
}
