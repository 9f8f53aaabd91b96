package chat

import (
	"context"
	"fmt"

	"github.com/askdb/askdb/internal/ai"
	"github.com/askdb/askdb/internal/executor"
	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/sqlsafe"
)

// Gate messages for the two-step destructive confirmation.
const (
	msgDestructiveBlocked = "Destructive operation blocked. Set allow_destructive=true to proceed."
	msgConfirmRequired    = "Confirmation required for destructive operation. Set confirm=true."
)

// ProcessQuery converts a natural-language request into SQL, gates it, and
// executes it. Blocked queries return a result with Blocked set and are
// never sent to the database.
func (o *Orchestrator) ProcessQuery(ctx context.Context, sessionID, prompt string, params model.ConnectionParams, allowDestructive, confirm bool) (*model.QueryResult, error) {
	if !o.gen.Available() {
		return nil, ai.ErrUnavailable
	}

	snapshot := o.schemas.Get(ctx, params)
	turns, err := o.sessions.GetConversation(sessionID)
	if err != nil {
		return nil, err
	}

	raw, err := o.gen.Generate(ctx, ai.BuildSQLMessages(prompt, snapshot, turns))
	observability.ObserveGeneration(err)
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}
	sqlText := sqlsafe.Sanitize(raw)
	o.logger.Info("sql generated", "session_id", sessionID, "sql", sqlText)

	result := o.executeGated(ctx, sqlText, params, allowDestructive, confirm)

	if recErr := o.sessions.RecordTurn(sessionID, sqlText, &result.QueryOutcome); recErr != nil {
		o.logger.Warn("failed to record conversation turn", "session_id", sessionID, "error", recErr)
	}
	return result, nil
}

// ExecuteSQL runs caller-provided SQL through the same sanitize and gate
// pipeline as generated SQL.
func (o *Orchestrator) ExecuteSQL(ctx context.Context, sqlText string, params model.ConnectionParams, allowDestructive, confirm bool) (*model.QueryResult, error) {
	sqlText = sqlsafe.Sanitize(sqlText)
	if sqlText == "" {
		return nil, fmt.Errorf("empty sql statement")
	}
	return o.executeGated(ctx, sqlText, params, allowDestructive, confirm), nil
}

// Simulate classifies a statement against the cached schema without
// executing it.
func (o *Orchestrator) Simulate(ctx context.Context, sqlText string, params model.ConnectionParams) *model.SimulationResult {
	sqlText = sqlsafe.Sanitize(sqlText)
	snapshot := o.schemas.Get(ctx, params)
	return executor.Simulate(sqlText, snapshot)
}

// executeGated applies the safety checks and the double destructive gate,
// then executes. All blocking happens before any database contact.
func (o *Orchestrator) executeGated(ctx context.Context, sqlText string, params model.ConnectionParams, allowDestructive, confirm bool) *model.QueryResult {
	kind := sqlsafe.Classify(sqlText)

	if err := sqlsafe.Enforce(sqlText, allowDestructive); err != nil {
		o.logger.Warn("query blocked", "reason", err.Error())
		return blockedResult(sqlText, kind, err.Error())
	}
	if sqlsafe.IsDestructive(sqlText) {
		if !allowDestructive {
			return blockedResult(sqlText, kind, msgDestructiveBlocked)
		}
		if !confirm {
			return blockedResult(sqlText, kind, msgConfirmRequired)
		}
	}

	conn, err := o.registry.Acquire(ctx, params)
	if err != nil {
		return failedResult(sqlText, kind, err)
	}

	outcome, err := o.executor.Execute(ctx, conn, sqlText)
	if err != nil {
		return failedResult(sqlText, kind, err)
	}

	return &model.QueryResult{QueryOutcome: *outcome, SQL: sqlText}
}

func blockedResult(sqlText string, kind model.QueryKind, message string) *model.QueryResult {
	return &model.QueryResult{
		QueryOutcome: model.QueryOutcome{QueryKind: kind},
		SQL:          sqlText,
		Blocked:      true,
		BlockMessage: message,
	}
}

func failedResult(sqlText string, kind model.QueryKind, err error) *model.QueryResult {
	return &model.QueryResult{
		QueryOutcome: model.QueryOutcome{QueryKind: kind, Error: err.Error()},
		SQL:          sqlText,
	}
}
