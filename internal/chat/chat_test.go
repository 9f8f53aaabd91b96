package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/askdb/askdb/internal/ai"
	"github.com/askdb/askdb/internal/connector"
	"github.com/askdb/askdb/internal/executor"
	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/schemacache"
	"github.com/askdb/askdb/internal/session"
)

// stubGenerator returns canned responses and records invocations.
type stubGenerator struct {
	response  string
	responses []string // consumed in order before falling back to response
	chunks    []string
	err       error // Generate fails with err; GenerateStream fails after chunks
	available bool
	calls     int
}

func (g *stubGenerator) Generate(_ context.Context, _ []ai.Message) (string, error) {
	g.calls++
	if len(g.responses) > 0 {
		r := g.responses[0]
		g.responses = g.responses[1:]
		return r, g.err
	}
	return g.response, g.err
}

func (g *stubGenerator) GenerateStream(ctx context.Context, _ []ai.Message, out chan<- string) error {
	g.calls++
	defer close(out)
	for _, c := range g.chunks {
		select {
		case out <- c:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return g.err
}

func (g *stubGenerator) Available() bool { return g.available }

// testConn serves a static snapshot and an optional sqlmock-backed pool.
type testConn struct {
	db       *sqlx.DB
	snapshot *model.SchemaSnapshot
}

func (c *testConn) Connect(_ model.ConnectionParams, _ connector.PoolConfig) error { return nil }
func (c *testConn) Disconnect() error                                              { return nil }
func (c *testConn) Ping(_ context.Context) error                                   { return nil }
func (c *testConn) DB() *sqlx.DB                                                   { return c.db }
func (c *testConn) DriverName() string                                             { return "test" }
func (c *testConn) IntrospectSchema(_ context.Context) (*model.SchemaSnapshot, error) {
	if c.snapshot == nil {
		return model.EmptySnapshot(), nil
	}
	return c.snapshot, nil
}
func (c *testConn) ApplySessionTimeout(_ context.Context, _ *sqlx.Conn, _ time.Duration) error {
	return nil
}

type fixture struct {
	orch *Orchestrator
	gen  *stubGenerator
	mock sqlmock.Sqlmock
}

func newFixture(t *testing.T, gen *stubGenerator, snapshot *model.SchemaSnapshot) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := connector.NewRegistry(connector.PoolConfig{}, logger)
	registry.RegisterDriver("test", func() connector.Connector {
		return &testConn{db: sqlx.NewDb(db, "sqlmock"), snapshot: snapshot}
	})

	schemas := schemacache.New(registry, time.Minute, logger)
	exec := executor.New(time.Second, logger)
	sessions := session.NewStore(session.Options{}, logger)

	return &fixture{
		orch: New(registry, schemas, exec, sessions, gen, logger),
		gen:  gen,
		mock: mock,
	}
}

func testConnection() model.ConnectionParams {
	return model.ConnectionParams{Driver: "test", User: "u", Host: "h", Port: 1, Database: "d"}
}

func TestProcessQueryBlocksDestructive(t *testing.T) {
	gen := &stubGenerator{response: "DROP TABLE users;", available: true}
	f := newFixture(t, gen, nil)
	sess := f.orch.Sessions().GetOrCreate("")

	result, err := f.orch.ProcessQuery(context.Background(), sess.ID, "drop the users table", testConnection(), false, false)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}

	if !result.Blocked {
		t.Fatal("destructive query was not blocked")
	}
	if result.BlockMessage != msgDestructiveBlocked {
		t.Errorf("BlockMessage = %q", result.BlockMessage)
	}
	// Nothing may reach the database.
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestProcessQueryRequiresConfirm(t *testing.T) {
	gen := &stubGenerator{response: "DELETE FROM users WHERE id = 1;", available: true}
	f := newFixture(t, gen, nil)
	sess := f.orch.Sessions().GetOrCreate("")

	result, err := f.orch.ProcessQuery(context.Background(), sess.ID, "delete user 1", testConnection(), true, false)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !result.Blocked || result.BlockMessage != msgConfirmRequired {
		t.Errorf("result = %+v, want confirm-required block", result)
	}
}

func TestProcessQueryConfirmedDestructiveExecutes(t *testing.T) {
	gen := &stubGenerator{response: "DELETE FROM users WHERE id = 1;", available: true}
	f := newFixture(t, gen, nil)
	sess := f.orch.Sessions().GetOrCreate("")

	f.mock.ExpectExec("DELETE FROM users WHERE id = 1;").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := f.orch.ProcessQuery(context.Background(), sess.ID, "delete user 1", testConnection(), true, true)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if result.Blocked {
		t.Fatalf("confirmed destructive query was blocked: %s", result.BlockMessage)
	}
	if !result.Success || result.RowsAffected != 1 {
		t.Errorf("result = %+v, want 1 row affected", result)
	}
}

func TestProcessQueryBlocksUnsafeSQL(t *testing.T) {
	gen := &stubGenerator{response: "SELECT * FROM users UNION SELECT password FROM admins", available: true}
	f := newFixture(t, gen, nil)
	sess := f.orch.Sessions().GetOrCreate("")

	result, err := f.orch.ProcessQuery(context.Background(), sess.ID, "show users", testConnection(), false, false)
	if err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if !result.Blocked {
		t.Fatal("unsafe query was not blocked")
	}
}

func TestProcessQueryRecordsTurn(t *testing.T) {
	gen := &stubGenerator{response: "SELECT id FROM users", available: true}
	f := newFixture(t, gen, nil)
	sess := f.orch.Sessions().GetOrCreate("")

	f.mock.ExpectQuery("SELECT id FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	if _, err := f.orch.ProcessQuery(context.Background(), sess.ID, "show user ids", testConnection(), false, false); err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}

	turns, err := f.orch.Sessions().GetConversation(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 || turns[0].Query != "SELECT id FROM users" {
		t.Errorf("turns = %+v", turns)
	}
}

// generationCount sums the askdb_generations_total counter across labels.
func generationCount(t *testing.T) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "askdb_generations_total" {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		return sum
	}
	return 0
}

func TestProcessQueryCountsGenerations(t *testing.T) {
	gen := &stubGenerator{response: "SELECT 1", available: true}
	f := newFixture(t, gen, nil)
	sess := f.orch.Sessions().GetOrCreate("")

	f.mock.ExpectQuery("SELECT 1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	before := generationCount(t)
	if _, err := f.orch.ProcessQuery(context.Background(), sess.ID, "one", testConnection(), false, false); err != nil {
		t.Fatalf("ProcessQuery: %v", err)
	}
	if got := generationCount(t) - before; got != 1 {
		t.Errorf("generation counter delta = %v, want 1", got)
	}
}

func TestProcessQueryUnavailableGenerator(t *testing.T) {
	f := newFixture(t, &stubGenerator{available: false}, nil)
	sess := f.orch.Sessions().GetOrCreate("")

	_, err := f.orch.ProcessQuery(context.Background(), sess.ID, "anything", testConnection(), false, false)
	if !errors.Is(err, ai.ErrUnavailable) {
		t.Errorf("ProcessQuery = %v, want ErrUnavailable", err)
	}
}

func TestExecuteSQLSanitizes(t *testing.T) {
	f := newFixture(t, &stubGenerator{available: true}, nil)

	f.mock.ExpectQuery("SELECT 1;").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	result, err := f.orch.ExecuteSQL(context.Background(), "```sql\nSELECT 1;\n```", testConnection(), false, false)
	if err != nil {
		t.Fatalf("ExecuteSQL: %v", err)
	}
	if result.SQL != "SELECT 1;" {
		t.Errorf("SQL = %q, want sanitized statement", result.SQL)
	}
	if !result.Success {
		t.Errorf("result not successful: %+v", result)
	}
}

func TestHandleMessageQueryMode(t *testing.T) {
	gen := &stubGenerator{response: "DROP TABLE users;", available: true}
	f := newFixture(t, gen, nil)

	resp, err := f.orch.HandleMessage(context.Background(), model.ChatRequest{
		Message:    "drop users",
		Mode:       "query",
		Connection: testConnection(),
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if resp.Mode != model.ModeQuery {
		t.Errorf("Mode = %s", resp.Mode)
	}
	if resp.Result == nil || !resp.Result.Blocked {
		t.Fatal("blocked result missing from response")
	}
	if resp.Response != msgDestructiveBlocked {
		t.Errorf("Response = %q", resp.Response)
	}

	history, err := f.orch.Sessions().GetChatHistory(resp.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].Role != "user" || history[1].Role != "assistant" {
		t.Errorf("history = %+v, want user+assistant pair", history)
	}
}

func TestHandleMessageSearchModeIsLocal(t *testing.T) {
	snap := model.EmptySnapshot()
	snap.Tables["customer_orders"] = model.TableSchema{
		Columns: []model.Column{{Name: "id", Type: "int"}, {Name: "order_date", Type: "date"}},
	}
	snap.Tables["users"] = model.TableSchema{
		Columns: []model.Column{{Name: "id", Type: "int"}},
	}

	gen := &stubGenerator{available: true}
	f := newFixture(t, gen, snap)

	resp, err := f.orch.HandleMessage(context.Background(), model.ChatRequest{
		Message:    "order",
		Mode:       "search",
		Connection: testConnection(),
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if gen.calls != 0 {
		t.Error("search mode consulted the generator")
	}
	if !strings.Contains(resp.Response, "customer_orders") {
		t.Errorf("Response = %q, want customer_orders match", resp.Response)
	}
	if strings.Contains(resp.Response, "users") {
		t.Errorf("Response matched unrelated table: %q", resp.Response)
	}
}

func TestHandleMessageUnknownModeFallsBack(t *testing.T) {
	gen := &stubGenerator{response: "hello there", available: true}
	f := newFixture(t, gen, nil)

	resp, err := f.orch.HandleMessage(context.Background(), model.ChatRequest{
		Message:    "hi",
		Mode:       "definitely-not-a-mode",
		Connection: testConnection(),
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if resp.Mode != model.ModeAssistant {
		t.Errorf("Mode = %s, want assistant", resp.Mode)
	}
	if resp.Response != "hello there" {
		t.Errorf("Response = %q", resp.Response)
	}
}

func TestHandleMessageOptimizationRunsPipeline(t *testing.T) {
	gen := &stubGenerator{
		responses: []string{"SELECT * FROM users", "add an index on users.email"},
		available: true,
	}
	f := newFixture(t, gen, nil)

	f.mock.ExpectQuery("SELECT * FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	resp, err := f.orch.HandleMessage(context.Background(), model.ChatRequest{
		Message:    "show all users and make it fast",
		Mode:       "optimization",
		Connection: testConnection(),
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	// One SQL-generation pass, one analysis pass.
	if gen.calls != 2 {
		t.Errorf("generator calls = %d, want 2", gen.calls)
	}
	if resp.SQL != "SELECT * FROM users" {
		t.Errorf("SQL = %q", resp.SQL)
	}
	if resp.Result == nil || !resp.Result.Success {
		t.Fatalf("Result = %+v, want executed result", resp.Result)
	}
	if resp.Result.Optimization != "add an index on users.email" {
		t.Errorf("Optimization = %q", resp.Result.Optimization)
	}
	if !strings.Contains(resp.Response, "Returned 2 rows.") ||
		!strings.Contains(resp.Response, "add an index on users.email") {
		t.Errorf("Response = %q, want execution summary plus analysis", resp.Response)
	}

	turns, err := f.orch.Sessions().GetConversation(resp.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 1 || turns[0].Query != "SELECT * FROM users" {
		t.Errorf("turns = %+v, want one recorded turn", turns)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestHandleMessageOptimizationBlockedFallsBack(t *testing.T) {
	gen := &stubGenerator{response: "DROP TABLE users;", available: true}
	f := newFixture(t, gen, nil)

	resp, err := f.orch.HandleMessage(context.Background(), model.ChatRequest{
		Message:    "drop users but make it fast",
		Mode:       "optimization",
		Connection: testConnection(),
	})
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	// No analysis pass on a blocked execution.
	if gen.calls != 1 {
		t.Errorf("generator calls = %d, want 1", gen.calls)
	}
	if resp.Result == nil || !resp.Result.Blocked {
		t.Fatalf("Result = %+v, want blocked", resp.Result)
	}
	if resp.Response != msgDestructiveBlocked {
		t.Errorf("Response = %q", resp.Response)
	}
	if resp.Result.Optimization != "" {
		t.Errorf("Optimization = %q, want empty", resp.Result.Optimization)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStreamMessageConversation(t *testing.T) {
	gen := &stubGenerator{chunks: []string{"Hel", "lo"}, available: true}
	f := newFixture(t, gen, nil)

	events := make(chan model.StreamEvent, 16)
	f.orch.StreamMessage(context.Background(), model.ChatRequest{
		Message:    "hi",
		Mode:       "assistant",
		Connection: testConnection(),
	}, events)

	var types []string
	var content strings.Builder
	var sessionID string
	for ev := range events {
		types = append(types, ev.Type)
		if ev.Type == "start" {
			sessionID = ev.SessionID
		}
		if ev.Type == "chunk" {
			content.WriteString(ev.Content)
		}
	}

	want := []string{"start", "chunk", "chunk", "done"}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("event sequence = %v, want %v", types, want)
	}
	if content.String() != "Hello" {
		t.Errorf("streamed content = %q, want Hello", content.String())
	}

	history, err := f.orch.Sessions().GetChatHistory(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[1].Content != "Hello" {
		t.Errorf("history = %+v, want persisted assistant message", history)
	}
}

func TestStreamMessageError(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("upstream down"), available: true}
	f := newFixture(t, gen, nil)

	events := make(chan model.StreamEvent, 16)
	f.orch.StreamMessage(context.Background(), model.ChatRequest{
		Message:    "hi",
		Mode:       "assistant",
		Connection: testConnection(),
	}, events)

	var last model.StreamEvent
	var sessionID string
	for ev := range events {
		if ev.Type == "start" {
			sessionID = ev.SessionID
		}
		last = ev
	}
	if last.Type != "error" || !strings.Contains(last.Error, "upstream down") {
		t.Errorf("last event = %+v, want error", last)
	}

	// The user message survives even though the stream produced nothing.
	history, err := f.orch.Sessions().GetChatHistory(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].Role != "user" {
		t.Errorf("history = %+v, want the user message only", history)
	}
}

func TestStreamMessageErrorKeepsPartialOutput(t *testing.T) {
	gen := &stubGenerator{
		chunks:    []string{"par", "tial"},
		err:       fmt.Errorf("upstream down"),
		available: true,
	}
	f := newFixture(t, gen, nil)

	events := make(chan model.StreamEvent, 16)
	f.orch.StreamMessage(context.Background(), model.ChatRequest{
		Message:    "hi",
		Mode:       "assistant",
		Connection: testConnection(),
	}, events)

	var types []string
	var sessionID string
	for ev := range events {
		types = append(types, ev.Type)
		if ev.Type == "start" {
			sessionID = ev.SessionID
		}
	}
	want := []string{"start", "chunk", "chunk", "error"}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("event sequence = %v, want %v", types, want)
	}

	history, err := f.orch.Sessions().GetChatHistory(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history = %+v, want user plus partial assistant", history)
	}
	if history[0].Role != "user" || history[0].Content != "hi" {
		t.Errorf("history[0] = %+v", history[0])
	}
	if history[1].Role != "assistant" || history[1].Content != "partial" {
		t.Errorf("history[1] = %+v, want accumulated partial content", history[1])
	}
}

func TestSimulateNeverExecutes(t *testing.T) {
	f := newFixture(t, &stubGenerator{available: true}, nil)

	result := f.orch.Simulate(context.Background(), "DELETE FROM users", testConnection())
	if result.Mode != "simulation" {
		t.Errorf("Mode = %q", result.Mode)
	}
	if err := f.mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
