// Package recall provides the similarity service the subconscious loop
// queries for long-term memory suggestions.
package recall

import "context"

// VectorStore is the storage side of the similarity collaborator.
type VectorStore interface {
	// Upsert stores a text with its embedding and metadata.
	Upsert(ctx context.Context, id string, vector []float32, payload map[string]any) error

	// Search finds the most similar items.
	Search(ctx context.Context, vector []float32, limit int) ([]Result, error)

	// EnsureCollection makes sure the storage exists.
	EnsureCollection(ctx context.Context) error
}

// Result is one ranked similarity match.
type Result struct {
	ID      string         `json:"id"`
	Score   float32        `json:"score"`
	Payload map[string]any `json:"payload"`
}
