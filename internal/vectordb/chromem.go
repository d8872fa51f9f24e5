package vectordb

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/docchat/internal/embeddings"
)

const (
	collectionName = "documents"
	exportFile     = "chromem.gob.gz"
)

// ChunkID returns the document ID of the i-th chunk of path.
func ChunkID(path string, i int) string {
	return fmt.Sprintf("%s#%d", path, i)
}

// ChromemStore implements VectorStore using chromem-go.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) (*ChromemStore, error) {
	db := chromem.NewDB()
	ef := embeddingFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		embedFunc:  ef,
	}, nil
}

// embeddingFunc adapts an Embedder to chromem's single-text signature.
// Vectors whose length differs from the embedder's declared dimensions are
// rejected, which catches an index built with a different model.
func embeddingFunc(e embeddings.Embedder) chromem.EmbeddingFunc {
	want := e.Dimensions()
	return func(ctx context.Context, text string) ([]float32, error) {
		results, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, errors.New("embedder returned no vector")
		}
		if want > 0 && len(results[0]) != want {
			return nil, fmt.Errorf("%s returned %d dimensions, expected %d", e.Name(), len(results[0]), want)
		}
		return results[0], nil
	}
}

func (s *ChromemStore) AddDocuments(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Chunk,
			Metadata: metadataToMap(doc),
		}
	}

	return s.collection.AddDocuments(ctx, chromDocs, 1)
}

func (s *ChromemStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	// chromem-go requires nResults <= collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	limit = min(limit, count)

	results, err := s.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			Document:   mapToDocument(r.ID, r.Content, r.Metadata),
			Similarity: r.Similarity,
		}
	}

	return searchResults, nil
}

func (s *ChromemStore) DeleteByPath(ctx context.Context, path string) error {
	if s.collection.Count() == 0 {
		return nil
	}
	return s.collection.Delete(ctx, map[string]string{"path": path}, nil)
}

func (s *ChromemStore) ContentHash(ctx context.Context, path string) (string, error) {
	if s.collection.Count() == 0 {
		return "", nil
	}
	doc, err := s.collection.GetByID(ctx, ChunkID(path, 0))
	if err != nil {
		// chromem reports a missing ID as an error.
		return "", nil
	}
	return doc.Metadata["content_hash"], nil
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(filepath.Join(dir, exportFile), true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	err := s.db.ImportFromFile(filepath.Join(dir, exportFile), "")
	if err != nil {
		return fmt.Errorf("import from file: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col
	return nil
}

func (s *ChromemStore) Count() int {
	return s.collection.Count()
}

// metadataToMap flattens a Document's fields into chromem metadata.
func metadataToMap(d Document) map[string]string {
	return map[string]string{
		"title":        d.Title,
		"path":         d.Path,
		"content_hash": d.ContentHash,
		"last_updated": d.LastUpdated.Format(time.RFC3339),
	}
}

func mapToDocument(id, content string, m map[string]string) Document {
	lastUpdated, _ := time.Parse(time.RFC3339, m["last_updated"])
	return Document{
		ID:          id,
		Title:       m["title"],
		Path:        m["path"],
		Chunk:       content,
		ContentHash: m["content_hash"],
		LastUpdated: lastUpdated,
	}
}
