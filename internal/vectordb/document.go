package vectordb

import "time"

// Document is one chunk of a source file stored in the index.
type Document struct {
	ID          string
	Title       string
	Path        string
	Chunk       string
	ContentHash string
	LastUpdated time.Time
}

// SearchResult pairs a document with its similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}
