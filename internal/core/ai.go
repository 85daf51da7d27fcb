package core

import "context"

// EmbedRole tells the embedding model whether the input is indexed content or
// a search query; the two produce different vectors.
type EmbedRole string

const (
	RolePassage EmbedRole = "passage"
	RoleQuery   EmbedRole = "query"
)

// Message is one turn of a conversation sent to the generation model.
type Message struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// EmbeddingProvider turns texts into fixed-dimension vectors, one per input,
// order-preserving. Implementations enforce their own batch-size ceiling.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string, role EmbedRole) ([][]float32, error)
}

// LLMProvider is the opaque generate(messages) -> text capability.
type LLMProvider interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
