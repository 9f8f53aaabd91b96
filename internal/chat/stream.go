package chat

import (
	"context"

	"github.com/askdb/askdb/internal/ai"
	"github.com/askdb/askdb/internal/model"
	"github.com/askdb/askdb/internal/observability"
)

// StreamMessage runs one chat turn, delivering the response incrementally
// as StreamEvents. The sequence is one start event, zero or more chunks,
// then exactly one done or error event. Conversational modes stream
// generator deltas; query, search, and optimization turns deliver their
// complete response as a single chunk. Accumulated chunks are persisted as
// one assistant message. Context cancellation stops delivery.
func (o *Orchestrator) StreamMessage(ctx context.Context, req model.ChatRequest, events chan<- model.StreamEvent) {
	defer close(events)

	mode := model.ParseMode(req.Mode)
	sess := o.sessions.GetOrCreate(req.SessionID)

	if !emit(ctx, events, model.StreamEvent{Type: "start", SessionID: sess.ID}) {
		return
	}

	switch mode {
	case model.ModeQuery, model.ModeSearch, model.ModeOptimization:
		req.SessionID = sess.ID
		resp, err := o.HandleMessage(ctx, req)
		if err != nil {
			emit(ctx, events, model.StreamEvent{Type: "error", SessionID: sess.ID, Error: err.Error()})
			return
		}
		if !emit(ctx, events, model.StreamEvent{Type: "chunk", SessionID: sess.ID, Content: resp.Response}) {
			return
		}
	default:
		if err := o.streamConversation(ctx, mode, sess.ID, req, events); err != nil {
			emit(ctx, events, model.StreamEvent{Type: "error", SessionID: sess.ID, Error: err.Error()})
			return
		}
	}

	emit(ctx, events, model.StreamEvent{Type: "done", SessionID: sess.ID})
}

// streamConversation relays generator deltas. The user message is recorded
// before the stream starts, and whatever content accumulated is persisted
// as the assistant message even when the stream fails mid-way.
func (o *Orchestrator) streamConversation(ctx context.Context, mode model.Mode, sessionID string, req model.ChatRequest, events chan<- model.StreamEvent) error {
	metadata := map[string]any{"mode": string(mode)}
	if err := o.sessions.AddMessage(sessionID, "user", req.Message, metadata); err != nil {
		return err
	}

	history, err := o.sessions.GetChatHistory(sessionID)
	if err != nil {
		return err
	}
	// The just-added user message rides as the final prompt message.
	if n := len(history); n > 0 && history[n-1].Role == "user" {
		history = history[:n-1]
	}
	snapshot := o.schemas.Get(ctx, req.Connection)
	messages := ai.BuildChatMessages(mode, req.Message, snapshot, history)

	chunks := make(chan string, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- o.gen.GenerateStream(ctx, messages, chunks)
	}()

	var full []byte
	delivered := true
	for chunk := range chunks {
		full = append(full, chunk...)
		if delivered && !emit(ctx, events, model.StreamEvent{Type: "chunk", SessionID: sessionID, Content: chunk}) {
			// Keep draining so the generator goroutine can finish.
			delivered = false
		}
	}
	streamErr := <-errc
	observability.ObserveGeneration(streamErr)
	if streamErr == nil && !delivered {
		streamErr = ctx.Err()
	}

	if len(full) > 0 {
		if addErr := o.sessions.AddMessage(sessionID, "assistant", string(full), metadata); addErr != nil && streamErr == nil {
			streamErr = addErr
		}
	}
	return streamErr
}

// emit sends an event unless the context is already cancelled. It reports
// whether delivery happened.
func emit(ctx context.Context, events chan<- model.StreamEvent, event model.StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
