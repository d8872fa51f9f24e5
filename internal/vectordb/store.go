package vectordb

import "context"

// VectorStore stores document chunks and searches them by embedding.
type VectorStore interface {
	// AddDocuments adds or updates documents in the store.
	AddDocuments(ctx context.Context, docs []Document) error

	// Search returns up to limit documents ordered by similarity to query.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// DeleteByPath removes all chunks of the given source path.
	DeleteByPath(ctx context.Context, path string) error

	// ContentHash returns the stored hash for a source path, or "" if the
	// path has not been indexed.
	ContentHash(ctx context.Context, path string) (string, error)

	// Persist saves the store's data to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the total number of documents in the store.
	Count() int
}
