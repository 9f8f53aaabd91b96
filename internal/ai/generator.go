// Package ai holds the language-model collaborator: an OpenAI-compatible
// chat-completions client and the prompt builders the orchestrator feeds it.
package ai

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no API key is configured.
var ErrUnavailable = errors.New("ai generator is not configured")

// Message is one chat-completions message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Generator produces completions for a message list. Implementations must
// be safe for concurrent use.
type Generator interface {
	// Generate returns the full completion text.
	Generate(ctx context.Context, messages []Message) (string, error)

	// GenerateStream sends completion deltas to chunks as they arrive and
	// closes the channel when the stream ends. A non-nil error means the
	// stream terminated early.
	GenerateStream(ctx context.Context, messages []Message, chunks chan<- string) error

	// Available reports whether the generator can serve requests.
	Available() bool
}
