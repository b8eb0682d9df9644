// Package llm wraps the generation and embedding collaborators behind
// small interfaces so pipeline components can be tested with fakes.
package llm

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one entry of a chat request.
type Message struct {
	Role    Role
	Content string
}

// Client is the text-generation collaborator. Implementations enforce
// their own timeouts; callers convert failures into fallback output
// rather than retrying here.
type Client interface {
	Invoke(ctx context.Context, messages []Message, temperature float64) (string, error)
}

// Embedder is the embedding collaborator backing vector retrieval.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
