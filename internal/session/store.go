// Package session keeps per-session conversation state in memory with
// bounded histories and idle expiry.
package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/askdb/askdb/internal/model"
)

// Defaults for the bounded histories and idle expiry.
const (
	DefaultMaxChatHistory         = 50
	DefaultMaxConversationHistory = 10
	DefaultIdleTimeout            = 60 * time.Minute
)

// NotFoundError reports a lookup for a session id that does not exist or
// has been swept.
type NotFoundError struct {
	SessionID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// Session is one live conversation. All fields are owned by the Store;
// callers receive copies of the histories, never the backing slices.
type Session struct {
	ID           string
	CreatedAt    time.Time
	LastActivity time.Time
	LastQuery    string
	LastOutcome  *model.QueryOutcome
	chatHistory  []model.ChatMessage
	conversation []model.ConversationTurn
}

// Store is an in-memory session registry. Safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	maxChat         int
	maxConversation int
	idleTimeout     time.Duration
	logger          *slog.Logger
}

// Options bound the histories and idle expiry; zero values take the
// defaults.
type Options struct {
	MaxChatHistory         int
	MaxConversationHistory int
	IdleTimeout            time.Duration
}

// NewStore creates an empty Store.
func NewStore(opts Options, logger *slog.Logger) *Store {
	if opts.MaxChatHistory <= 0 {
		opts.MaxChatHistory = DefaultMaxChatHistory
	}
	if opts.MaxConversationHistory <= 0 {
		opts.MaxConversationHistory = DefaultMaxConversationHistory
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	return &Store{
		sessions:        make(map[string]*Session),
		maxChat:         opts.MaxChatHistory,
		maxConversation: opts.MaxConversationHistory,
		idleTimeout:     opts.IdleTimeout,
		logger:          logger,
	}
}

// GetOrCreate returns the session for id, creating one when id is empty or
// unknown. The returned id is always valid. Access refreshes the activity
// timestamp.
func (s *Store) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			sess.LastActivity = time.Now().UTC()
			return sess
		}
	}

	if id == "" {
		id = newSessionID()
	}
	now := time.Now().UTC()
	sess := &Session{ID: id, CreatedAt: now, LastActivity: now}
	s.sessions[id] = sess
	s.logger.Info("session created", "session_id", id)
	return sess
}

// Get returns the session for id or a NotFoundError.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, &NotFoundError{SessionID: id}
	}
	sess.LastActivity = time.Now().UTC()
	return sess, nil
}

// AddMessage appends a chat message to the session, evicting the oldest
// when the bounded history is full.
func (s *Store) AddMessage(id, role, content string, metadata map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return &NotFoundError{SessionID: id}
	}

	sess.chatHistory = append(sess.chatHistory, model.ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	})
	if len(sess.chatHistory) > s.maxChat {
		sess.chatHistory = sess.chatHistory[len(sess.chatHistory)-s.maxChat:]
	}
	sess.LastActivity = time.Now().UTC()
	return nil
}

// RecordTurn appends a query/outcome pair to the session's conversation
// history, evicting the oldest when full, and updates the last-query state
// used for follow-up prompts.
func (s *Store) RecordTurn(id, query string, outcome *model.QueryOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return &NotFoundError{SessionID: id}
	}

	sess.conversation = append(sess.conversation, model.ConversationTurn{
		Timestamp: time.Now().UTC(),
		Query:     query,
		Outcome:   outcome,
	})
	if len(sess.conversation) > s.maxConversation {
		sess.conversation = sess.conversation[len(sess.conversation)-s.maxConversation:]
	}
	sess.LastQuery = query
	sess.LastOutcome = outcome
	sess.LastActivity = time.Now().UTC()
	return nil
}

// GetChatHistory returns a copy of the session's chat messages.
func (s *Store) GetChatHistory(id string) ([]model.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, &NotFoundError{SessionID: id}
	}
	out := make([]model.ChatMessage, len(sess.chatHistory))
	copy(out, sess.chatHistory)
	return out, nil
}

// GetConversation returns a copy of the session's query/outcome turns.
func (s *Store) GetConversation(id string) ([]model.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, &NotFoundError{SessionID: id}
	}
	out := make([]model.ConversationTurn, len(sess.conversation))
	copy(out, sess.conversation)
	return out, nil
}

// Describe returns a copy of the session's summary fields. Callers must
// not read Session fields directly once the session is shared; mutable
// fields are only stable under the store lock.
func (s *Store) Describe(id string) (model.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return model.SessionSummary{}, &NotFoundError{SessionID: id}
	}
	return model.SessionSummary{
		SessionID:    sess.ID,
		CreatedAt:    sess.CreatedAt,
		LastActivity: sess.LastActivity,
		MessageCount: len(sess.chatHistory),
	}, nil
}

// Delete removes the session. Deleting an unknown id is a NotFoundError.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return &NotFoundError{SessionID: id}
	}
	delete(s.sessions, id)
	s.logger.Info("session deleted", "session_id", id)
	return nil
}

// ListAll returns summaries of every live session, newest activity first.
func (s *Store) ListAll() []model.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.SessionSummary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, model.SessionSummary{
			SessionID:    sess.ID,
			CreatedAt:    sess.CreatedAt,
			LastActivity: sess.LastActivity,
			MessageCount: len(sess.chatHistory),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// CleanupExpired removes sessions idle past the timeout and returns how
// many were swept.
func (s *Store) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-s.idleTimeout)
	swept := 0
	for id, sess := range s.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			swept++
		}
	}
	if swept > 0 {
		s.logger.Info("expired sessions swept", "count", swept)
	}
	return swept
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
