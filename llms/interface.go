package llms

import "context"

// Chatter multi-turn chat with the inference backend.
// f receives streamed content chunks, nil asks for a single non-streamed reply.
type Chatter interface {
	Chat(ctx context.Context, req *ChatRequest, f func([]byte) error) (*Message, error)
}

// Completer single-shot completion bounded by a token budget
type Completer interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Storage durable keyed collection of conversations
type Storage interface {
	// Save inserts when id is 0 and returns the new id, otherwise overwrites the entry
	Save(ctx context.Context, id uint64, c *Conversation) (uint64, error)
	Load(ctx context.Context, id uint64) (*Conversation, error)
	// List returns every conversation in insertion order
	List(ctx context.Context) ([]*Conversation, error)
	// Delete of an unknown id is a no-op
	Delete(ctx context.Context, id uint64) error
	Close() error
}
