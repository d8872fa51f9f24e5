// Package ingest builds the local document index: it walks a directory,
// splits each file into chunks and stores them, with embeddings, in a
// vectordb.VectorStore.
package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/ziadkadry99/docchat/internal/markdown"
	"github.com/ziadkadry99/docchat/internal/progress"
	"github.com/ziadkadry99/docchat/internal/vectordb"
)

// Options control chunking and parallelism.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Concurrency  int
	// Force re-indexes files whose content hash is unchanged.
	Force bool
}

// Result summarizes an ingest run.
type Result struct {
	FilesIndexed int
	FilesSkipped int
	Chunks       int
	Errors       []error
	Duration     time.Duration
}

// Ingester writes files into a vector store.
type Ingester struct {
	store    vectordb.VectorStore
	opts     Options
	reporter progress.Reporter
	log      zerolog.Logger
	now      func() time.Time
}

// New returns an Ingester. A nil reporter disables progress output.
func New(store vectordb.VectorStore, opts Options, reporter progress.Reporter, log zerolog.Logger) *Ingester {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &Ingester{store: store, opts: opts, reporter: reporter, log: log, now: time.Now}
}

// Run indexes files. Files whose stored content hash matches are skipped.
// Per-file failures are collected in Result.Errors; only a cancelled context
// aborts the run.
func (ing *Ingester) Run(ctx context.Context, files []File) (*Result, error) {
	start := ing.now()
	result := &Result{}

	var (
		mu        sync.Mutex
		processed int64
	)
	ing.reporter.Start(len(files))

	p := pool.New().WithMaxGoroutines(ing.opts.Concurrency)
	for _, f := range files {
		if ctx.Err() != nil {
			break
		}
		p.Go(func() {
			n, skipped, err := ing.indexFile(ctx, f)

			mu.Lock()
			switch {
			case err != nil:
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", f.RelPath, err))
				ing.log.Warn().Err(err).Str("path", f.RelPath).Msg("indexing failed")
			case skipped:
				result.FilesSkipped++
			default:
				result.FilesIndexed++
				result.Chunks += n
			}
			mu.Unlock()

			ing.reporter.Update(int(atomic.AddInt64(&processed, 1)), f.RelPath)
		})
	}
	p.Wait()
	ing.reporter.Finish()

	result.Duration = ing.now().Sub(start)
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (ing *Ingester) indexFile(ctx context.Context, f File) (chunks int, skipped bool, err error) {
	if !ing.opts.Force {
		existing, err := ing.store.ContentHash(ctx, f.RelPath)
		if err != nil {
			return 0, false, fmt.Errorf("reading stored hash: %w", err)
		}
		if existing == f.ContentHash {
			return 0, true, nil
		}
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return 0, false, err
	}

	docs := Documents(f, data, ing.opts.ChunkSize, ing.opts.ChunkOverlap, ing.now())

	if err := ing.store.DeleteByPath(ctx, f.RelPath); err != nil {
		return 0, false, fmt.Errorf("removing old chunks: %w", err)
	}
	if len(docs) == 0 {
		return 0, false, nil
	}
	if err := ing.store.AddDocuments(ctx, docs); err != nil {
		return 0, false, fmt.Errorf("storing chunks: %w", err)
	}
	return len(docs), false, nil
}

// Documents splits one file into store documents. Markdown files are titled
// by their first heading, other files by their name.
func Documents(f File, data []byte, size, overlap int, now time.Time) []vectordb.Document {
	var title string
	if isMarkdown(f.RelPath) {
		title = markdown.Title(data, f.RelPath)
	} else {
		title = markdown.Title(nil, f.RelPath)
	}

	parts := Split(string(data), size, overlap)
	docs := make([]vectordb.Document, 0, len(parts))
	for i, chunk := range parts {
		docs = append(docs, vectordb.Document{
			ID:          vectordb.ChunkID(f.RelPath, i),
			Title:       title,
			Path:        f.RelPath,
			Chunk:       chunk,
			ContentHash: f.ContentHash,
			LastUpdated: now,
		})
	}
	return docs
}

func isMarkdown(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}
