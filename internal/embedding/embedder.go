// Package embedding provides the embedding capability consumed by the merger.
package embedding

import "context"

// Embedder produces vector embeddings for text. Vectors returned by
// EmbedBatch are aligned positionally with the input texts.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
