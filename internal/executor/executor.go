// Package executor runs validated SQL against a live connection with a
// per-statement timeout enforced on both the client and, where the engine
// supports it, the server side.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/askdb/askdb/internal/connector"
	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/sqlsafe"
)

// DefaultTimeout caps a single statement when the caller gives none.
const DefaultTimeout = 30 * time.Second

// graceWindow keeps the client-side deadline slightly behind the server-side
// cap so the engine gets the first chance to kill the statement.
const graceWindow = 2 * time.Second

// TimeoutError reports a statement killed by the timeout cap.
type TimeoutError struct {
	Seconds float64
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("query exceeded the %.0fs execution limit", e.Seconds)
}

// ExecError wraps a database error from statement execution.
type ExecError struct {
	Kind model.QueryKind
	SQL  string
	Err  error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("execute %s statement: %v", strings.ToLower(string(e.Kind)), e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Executor executes single sanitized statements on connector handles.
type Executor struct {
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Executor. A zero or negative timeout falls back to
// DefaultTimeout.
func New(timeout time.Duration, logger *slog.Logger) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{timeout: timeout, logger: logger}
}

// Timeout returns the configured per-statement cap.
func (e *Executor) Timeout() time.Duration { return e.timeout }

// Execute runs one statement on a dedicated connection from the handle's
// pool. Reads return rows and columns; writes and DDL return the affected
// row count. The statement must already be sanitized and safety-checked.
func (e *Executor) Execute(ctx context.Context, conn connector.Connector, sqlText string) (*model.QueryOutcome, error) {
	kind := sqlsafe.Classify(sqlText)

	ctx, cancel := context.WithTimeout(ctx, e.timeout+graceWindow)
	defer cancel()

	db := conn.DB()
	if db == nil {
		return nil, fmt.Errorf("connection handle has no open pool")
	}

	sqlConn, err := db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer sqlConn.Close()

	if err := conn.ApplySessionTimeout(ctx, sqlConn, e.timeout); err != nil {
		return nil, fmt.Errorf("apply session timeout: %w", err)
	}

	started := time.Now()
	var outcome *model.QueryOutcome
	if kind == model.KindRead {
		outcome, err = e.executeRead(ctx, sqlConn, sqlText)
	} else {
		outcome, err = e.executeMutation(ctx, sqlConn, sqlText, kind)
	}
	elapsed := time.Since(started)

	if err != nil {
		if isTimeout(err) {
			e.logger.Warn("statement hit the execution limit",
				"kind", kind, "elapsed", elapsed)
			return nil, &TimeoutError{Seconds: e.timeout.Seconds()}
		}
		return nil, &ExecError{Kind: kind, SQL: sqlText, Err: err}
	}

	e.logger.Info("statement executed",
		"kind", kind, "rows", outcome.RowCount, "affected", outcome.RowsAffected,
		"elapsed", elapsed)
	return outcome, nil
}

func (e *Executor) executeRead(ctx context.Context, sqlConn *sqlx.Conn, sqlText string) (*model.QueryOutcome, error) {
	rows, err := sqlConn.QueryxContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var results []map[string]interface{}
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if results == nil {
		results = []map[string]interface{}{}
	}

	return &model.QueryOutcome{
		Success:   true,
		QueryKind: model.KindRead,
		Rows:      results,
		RowCount:  len(results),
		Columns:   columns,
		Message:   fmt.Sprintf("query returned %d rows", len(results)),
	}, nil
}

func (e *Executor) executeMutation(ctx context.Context, sqlConn *sqlx.Conn, sqlText string, kind model.QueryKind) (*model.QueryOutcome, error) {
	result, err := sqlConn.ExecContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		// DDL on some engines reports no affected count.
		affected = 0
	}

	return &model.QueryOutcome{
		Success:      true,
		QueryKind:    kind,
		RowsAffected: affected,
		Message:      fmt.Sprintf("statement affected %d rows", affected),
	}, nil
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	// mysql 3024, postgres 57014, plus the client-side deadline.
	return strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "max_execution_time") ||
		strings.Contains(msg, "maximum statement execution time") ||
		strings.Contains(msg, "statement timeout") ||
		strings.Contains(msg, "canceling statement due to statement timeout")
}
