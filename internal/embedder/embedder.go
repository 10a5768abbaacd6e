// Package embedder turns text into fixed-length vectors via an external
// embedding service. Providers may fail or rate-limit; callers bound every
// call with a context deadline and treat failures as retryable.
package embedder

import "context"

// Embedder generates vector embeddings from text. Implementations must
// return vectors of a fixed dimension across calls.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns vector embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int
}
