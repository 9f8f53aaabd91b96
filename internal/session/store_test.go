package session

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/askdb/askdb/internal/model"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	return NewStore(opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGetOrCreate(t *testing.T) {
	store := newTestStore(t, Options{})

	created := store.GetOrCreate("")
	if created.ID == "" {
		t.Fatal("new session has empty id")
	}

	same := store.GetOrCreate(created.ID)
	if same.ID != created.ID {
		t.Error("existing id created a new session")
	}

	// An unknown id yields a session under that id, not a fresh one.
	adopted := store.GetOrCreate("client-chosen-id")
	if adopted.ID != "client-chosen-id" {
		t.Errorf("adopted id = %q, want client-chosen-id", adopted.ID)
	}
	if store.Count() != 2 {
		t.Errorf("Count = %d, want 2", store.Count())
	}
}

func TestGetUnknown(t *testing.T) {
	store := newTestStore(t, Options{})

	_, err := store.Get("nope")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Get = %v, want *NotFoundError", err)
	}
	if nf.SessionID != "nope" {
		t.Errorf("NotFoundError.SessionID = %q", nf.SessionID)
	}
}

func TestChatHistoryBounded(t *testing.T) {
	store := newTestStore(t, Options{MaxChatHistory: 3})
	sess := store.GetOrCreate("")

	for i := 0; i < 5; i++ {
		if err := store.AddMessage(sess.ID, "user", fmt.Sprintf("msg-%d", i), nil); err != nil {
			t.Fatal(err)
		}
	}

	history, err := store.GetChatHistory(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 3 {
		t.Fatalf("history length = %d, want 3", len(history))
	}
	// Oldest messages were evicted first.
	if history[0].Content != "msg-2" || history[2].Content != "msg-4" {
		t.Errorf("history = [%s .. %s], want [msg-2 .. msg-4]",
			history[0].Content, history[2].Content)
	}
}

func TestConversationBounded(t *testing.T) {
	store := newTestStore(t, Options{MaxConversationHistory: 2})
	sess := store.GetOrCreate("")

	for i := 0; i < 4; i++ {
		outcome := &model.QueryOutcome{Success: true, RowCount: i}
		if err := store.RecordTurn(sess.ID, fmt.Sprintf("q-%d", i), outcome); err != nil {
			t.Fatal(err)
		}
	}

	turns, err := store.GetConversation(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(turns) != 2 {
		t.Fatalf("conversation length = %d, want 2", len(turns))
	}
	if turns[0].Query != "q-2" || turns[1].Query != "q-3" {
		t.Errorf("turns = [%s, %s], want [q-2, q-3]", turns[0].Query, turns[1].Query)
	}

	got, err := store.Get(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.LastQuery != "q-3" {
		t.Errorf("LastQuery = %q, want q-3", got.LastQuery)
	}
	if got.LastOutcome == nil || got.LastOutcome.RowCount != 3 {
		t.Error("LastOutcome not updated to the latest turn")
	}
}

func TestHistoryCopiesAreDetached(t *testing.T) {
	store := newTestStore(t, Options{})
	sess := store.GetOrCreate("")
	if err := store.AddMessage(sess.ID, "user", "original", nil); err != nil {
		t.Fatal(err)
	}

	history, _ := store.GetChatHistory(sess.ID)
	history[0].Content = "mutated"

	again, _ := store.GetChatHistory(sess.ID)
	if again[0].Content != "original" {
		t.Error("caller mutation leaked into the store")
	}
}

func TestDescribe(t *testing.T) {
	store := newTestStore(t, Options{})
	sess := store.GetOrCreate("")

	if err := store.AddMessage(sess.ID, "user", "hello", nil); err != nil {
		t.Fatal(err)
	}
	if err := store.AddMessage(sess.ID, "assistant", "hi", nil); err != nil {
		t.Fatal(err)
	}

	summary, err := store.Describe(sess.ID)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if summary.SessionID != sess.ID {
		t.Errorf("SessionID = %q", summary.SessionID)
	}
	if summary.MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", summary.MessageCount)
	}
	if summary.CreatedAt.IsZero() || summary.LastActivity.IsZero() {
		t.Error("summary timestamps not populated")
	}

	var nf *NotFoundError
	if _, err := store.Describe("missing"); !errors.As(err, &nf) {
		t.Errorf("Describe unknown = %v, want *NotFoundError", err)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t, Options{})
	sess := store.GetOrCreate("")

	if err := store.Delete(sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var nf *NotFoundError
	if err := store.Delete(sess.ID); !errors.As(err, &nf) {
		t.Errorf("second Delete = %v, want *NotFoundError", err)
	}
}

func TestCleanupExpired(t *testing.T) {
	store := newTestStore(t, Options{IdleTimeout: time.Minute})

	stale := store.GetOrCreate("")
	fresh := store.GetOrCreate("")

	store.mu.Lock()
	store.sessions[stale.ID].LastActivity = time.Now().UTC().Add(-2 * time.Minute)
	store.mu.Unlock()

	if swept := store.CleanupExpired(); swept != 1 {
		t.Fatalf("CleanupExpired = %d, want 1", swept)
	}
	if _, err := store.Get(stale.ID); err == nil {
		t.Error("stale session survived the sweep")
	}
	if _, err := store.Get(fresh.ID); err != nil {
		t.Errorf("fresh session was swept: %v", err)
	}
}

func TestListAllOrdering(t *testing.T) {
	store := newTestStore(t, Options{})

	older := store.GetOrCreate("")
	newer := store.GetOrCreate("")

	store.mu.Lock()
	store.sessions[older.ID].LastActivity = time.Now().UTC().Add(-time.Hour)
	store.mu.Unlock()

	list := store.ListAll()
	if len(list) != 2 {
		t.Fatalf("ListAll length = %d, want 2", len(list))
	}
	if list[0].SessionID != newer.ID {
		t.Error("ListAll not ordered newest activity first")
	}
}

func TestSweeperSchedule(t *testing.T) {
	store := newTestStore(t, Options{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sweeper, err := NewSweeper(store, "@every 10m", logger)
	if err != nil {
		t.Fatalf("NewSweeper: %v", err)
	}
	sweeper.Start()
	sweeper.Stop()

	if _, err := NewSweeper(store, "not a schedule", logger); err == nil {
		t.Error("invalid schedule accepted")
	}
}
