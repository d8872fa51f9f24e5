// Package search retrieves the document fragments that ground each answer.
package search

import "context"

// Document is one excerpt returned by a search, with its identifying
// metadata.
type Document struct {
	Title string `json:"title"`
	Path  string `json:"path"`
	Chunk string `json:"chunk"`
}

// Retriever finds the documents most relevant to a query. An empty result
// is returned as an empty slice with a nil error; errors always mean the
// search itself failed.
type Retriever interface {
	Search(ctx context.Context, query string) ([]Document, error)
}
