package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/docchat/internal/vectordb"
)

type fakeStore struct {
	vectordb.VectorStore
	results   []vectordb.SearchResult
	err       error
	lastLimit int
}

func (f *fakeStore) Search(_ context.Context, _ string, limit int) ([]vectordb.SearchResult, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.results[:min(limit, len(f.results))], nil
}

func TestLocalRetrieverKeepsTopOfCandidatePool(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 8; i++ {
		store.results = append(store.results, vectordb.SearchResult{
			Document: vectordb.Document{Title: fmt.Sprintf("Doc %d", i), Path: fmt.Sprintf("d%d.md", i), Chunk: "text"},
		})
	}

	docs, err := NewLocalRetriever(store, 50, 5).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 50, store.lastLimit)
	require.Len(t, docs, 5)
	assert.Equal(t, "Doc 0", docs[0].Title)
	assert.Equal(t, "Doc 4", docs[4].Title)
}

func TestLocalRetrieverEmptyIndex(t *testing.T) {
	docs, err := NewLocalRetriever(&fakeStore{}, 50, 5).Search(context.Background(), "q")
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestLocalRetrieverPropagatesErrors(t *testing.T) {
	_, err := NewLocalRetriever(&fakeStore{err: errors.New("embedding failed")}, 50, 5).Search(context.Background(), "q")
	assert.ErrorContains(t, err, "embedding failed")
}
