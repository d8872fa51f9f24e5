// Package embeddings turns text into vectors for the local document index.
package embeddings

import "context"

// Embedder generates text embeddings. Implementations must return one
// vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors,
	// or 0 when the model does not declare it.
	Dimensions() int

	// Name returns the model or deployment name.
	Name() string
}
