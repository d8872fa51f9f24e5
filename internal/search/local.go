package search

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/docchat/internal/vectordb"
)

// LocalRetriever searches an embedded chromem index built by ingest. It
// pulls a candidate pool of KNearest chunks and keeps the Top best, so
// results have the same shape and size as the hosted index.
type LocalRetriever struct {
	store    vectordb.VectorStore
	kNearest int
	top      int
}

// NewLocalRetriever wraps store. top is capped at kNearest.
func NewLocalRetriever(store vectordb.VectorStore, kNearest, top int) *LocalRetriever {
	return &LocalRetriever{store: store, kNearest: kNearest, top: min(top, kNearest)}
}

func (r *LocalRetriever) Search(ctx context.Context, query string) ([]Document, error) {
	results, err := r.store.Search(ctx, query, r.kNearest)
	if err != nil {
		return nil, fmt.Errorf("local index search: %w", err)
	}

	n := min(len(results), r.top)
	docs := make([]Document, 0, n)
	for _, res := range results[:n] {
		docs = append(docs, Document{
			Title: res.Document.Title,
			Path:  res.Document.Path,
			Chunk: res.Document.Chunk,
		})
	}
	return docs, nil
}
