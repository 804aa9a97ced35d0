package ingest

import (
	"context"
	"io"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/domain/chunk"
	"github.com/clauseinsight/clauseinsight/internal/loader"
)

// FileStore retains the uploaded contract PDFs.
type FileStore interface {
	Save(name string, data io.Reader) (path string, size int64, err error)
	Path(name string) (string, error)
	Names() ([]string, error)
}

// PageLoader extracts page text from a stored PDF.
type PageLoader interface {
	ExtractPages(path string) ([]loader.Page, error)
}

// Splitter cuts page text into retrieval chunks.
type Splitter interface {
	SplitPages(source string, pages []loader.Page) ([]chunk.Chunk, error)
}

// Embedder vectorizes chunk texts in provider batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Index is the vector index the pipeline writes to.
type Index interface {
	Add(chunks []chunk.Chunk, vectors [][]float32) error
	RemoveSource(source string) (removed int, err error)
	Clear() error
}
