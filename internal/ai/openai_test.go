package ai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", Model: "test-model"})
}

func TestGenerate(t *testing.T) {
	var gotAuth, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"SELECT 1"}}]}`))
	})

	got, err := client.Generate(context.Background(), []Message{{Role: "user", Content: "one"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "SELECT 1" {
		t.Errorf("Generate = %q, want SELECT 1", got)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/v1/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestGenerateErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	})

	_, err := client.Generate(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "status=429") {
		t.Errorf("Generate = %v, want status=429 error", err)
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	if _, err := client.Generate(context.Background(), nil); err == nil {
		t.Error("Generate accepted empty choices")
	}
}

func TestGenerateUnavailable(t *testing.T) {
	client := NewClient(Config{})
	if client.Available() {
		t.Error("Available = true without an API key")
	}

	_, err := client.Generate(context.Background(), nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Generate = %v, want ErrUnavailable", err)
	}
}

func TestGenerateStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(
			"data: {\"choices\":[{\"delta\":{\"content\":\"SELECT\"}}]}\n\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\" 1\"}}]}\n\n" +
				": keepalive comment\n\n" +
				"data: {\"choices\":[{\"delta\":{}}]}\n\n" +
				"data: [DONE]\n\n"))
	})

	chunks := make(chan string, 8)
	err := client.GenerateStream(context.Background(), []Message{{Role: "user", Content: "one"}}, chunks)
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	var full strings.Builder
	for chunk := range chunks {
		full.WriteString(chunk)
	}
	if full.String() != "SELECT 1" {
		t.Errorf("streamed content = %q, want SELECT 1", full.String())
	}
}

func TestGenerateStreamClosesChannelOnError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	chunks := make(chan string, 1)
	if err := client.GenerateStream(context.Background(), nil, chunks); err == nil {
		t.Error("GenerateStream did not surface the error")
	}
	if _, open := <-chunks; open {
		t.Error("chunks channel left open after error")
	}
}

func TestBuildSQLMessages(t *testing.T) {
	snap := model.EmptySnapshot()
	snap.Tables["users"] = model.TableSchema{
		Columns: []model.Column{{Name: "id", Type: "int", IsPrimaryKey: true}},
	}
	turns := []model.ConversationTurn{
		{Query: "q1", Outcome: &model.QueryOutcome{Success: true, RowCount: 2}},
		{Query: "q2"},
		{Query: "q3"},
		{Query: "q4"},
	}

	messages := BuildSQLMessages("show all users", snap, turns)
	if len(messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(messages))
	}
	if messages[0].Role != "system" {
		t.Errorf("messages[0].Role = %q", messages[0].Role)
	}

	user := messages[1].Content
	if !strings.Contains(user, "users(id int PK)") {
		t.Errorf("prompt missing schema summary: %q", user)
	}
	if !strings.Contains(user, "show all users") {
		t.Error("prompt missing the user request")
	}
	if strings.Contains(user, "q1") {
		t.Error("prompt includes turns beyond the history window")
	}
	if !strings.Contains(user, "q2") || !strings.Contains(user, "q4") {
		t.Error("prompt missing recent turns")
	}
}

func TestBuildOptimizationMessages(t *testing.T) {
	snap := model.EmptySnapshot()
	snap.Tables["users"] = model.TableSchema{
		Columns: []model.Column{{Name: "id", Type: "int", IsPrimaryKey: true}},
	}
	outcome := &model.QueryOutcome{Success: true, QueryKind: model.KindRead, RowCount: 42}

	messages := BuildOptimizationMessages("SELECT * FROM users", outcome, snap)
	if len(messages) != 2 {
		t.Fatalf("len(messages) = %d, want 2", len(messages))
	}

	user := messages[1].Content
	if !strings.Contains(user, "SELECT * FROM users") {
		t.Errorf("prompt missing the query: %q", user)
	}
	if !strings.Contains(user, "Rows returned: 42") {
		t.Errorf("prompt missing the execution outcome: %q", user)
	}
	if !strings.Contains(user, "users(id int PK)") {
		t.Error("prompt missing schema summary")
	}
}

func TestBuildChatMessagesFiltersRoles(t *testing.T) {
	history := []model.ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "tool", Content: "ignored"},
	}

	messages := BuildChatMessages(model.ModeTeaching, "explain joins", nil, history)
	if len(messages) != 4 {
		t.Fatalf("len(messages) = %d, want 4", len(messages))
	}
	if messages[len(messages)-1].Content != "explain joins" {
		t.Error("user message not last")
	}
}

func TestModeInstructionFallback(t *testing.T) {
	if ModeInstruction(model.ModeSearch) != ModeInstruction(model.ModeAssistant) {
		t.Error("modes without instructions should fall back to assistant")
	}
}
