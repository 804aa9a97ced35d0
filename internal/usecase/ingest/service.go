// Package ingest runs the document pipeline: retain the PDF, extract page
// text, split it into chunks, embed the chunks and write them to the index.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/domain/batch"
	"github.com/clauseinsight/clauseinsight/internal/domain/chunk"
	"github.com/clauseinsight/clauseinsight/internal/metrics"
)

// DefaultBatchSize is the number of chunk texts sent per embedding request.
const DefaultBatchSize = 64

// Service ingests contract PDFs into the vector index.
type Service struct {
	files     FileStore
	pages     PageLoader
	splitter  Splitter
	embedder  Embedder
	index     Index
	batchSize int
	progress  func(done, total int)
}

// New creates an ingest service.
func New(files FileStore, pages PageLoader, splitter Splitter, embedder Embedder, index Index) *Service {
	return &Service{
		files:     files,
		pages:     pages,
		splitter:  splitter,
		embedder:  embedder,
		index:     index,
		batchSize: DefaultBatchSize,
	}
}

// WithBatchSize configures how many chunk texts are embedded per request.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// WithProgress sets a callback invoked after each embedding batch with the
// chunks embedded so far and the document total. The CLI drives its
// progressbar from it.
func (s *Service) WithProgress(fn func(done, total int)) *Service {
	s.progress = fn
	return s
}

// Upload retains the PDF under filename and indexes its chunks, replacing any
// previously indexed version of the same document. Returns the chunk count.
func (s *Service) Upload(ctx context.Context, filename string, data io.Reader) (int, error) {
	start := time.Now()

	path, _, err := s.files.Save(filename, data)
	if err != nil {
		metrics.DocumentsIngestedTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("save contract: %w", err)
	}

	count, err := s.ingestStored(ctx, filename, path)
	if err != nil {
		metrics.DocumentsIngestedTotal.WithLabelValues("error").Inc()
		return 0, err
	}

	metrics.DocumentsIngestedTotal.WithLabelValues("ok").Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	return count, nil
}

// IngestFile indexes a PDF from an arbitrary path, retaining a copy first so
// the document survives a reindex. Used by the CLI.
func (s *Service) IngestFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	return s.Upload(ctx, filepath.Base(path), f)
}

// Reindex rebuilds the index from every retained contract. Per-document
// failures are reported in the results; the error covers only the rebuild
// setup itself.
func (s *Service) Reindex(ctx context.Context) ([]batch.Result, error) {
	names, err := s.files.Names()
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}

	if err := s.index.Clear(); err != nil {
		return nil, fmt.Errorf("clear index: %w", err)
	}

	results := make([]batch.Result, 0, len(names))
	for _, name := range names {
		count, err := s.reingest(ctx, name)
		if err != nil {
			metrics.DocumentsIngestedTotal.WithLabelValues("error").Inc()
			results = append(results, batch.NewError(name, err))
			continue
		}

		metrics.DocumentsIngestedTotal.WithLabelValues("ok").Inc()
		results = append(results, batch.NewOK(name, count))
	}

	return results, nil
}

func (s *Service) reingest(ctx context.Context, name string) (int, error) {
	path, err := s.files.Path(name)
	if err != nil {
		return 0, fmt.Errorf("resolve contract: %w", err)
	}
	return s.ingestStored(ctx, name, path)
}

// ingestStored runs extract, split, embed and index for one retained PDF.
func (s *Service) ingestStored(ctx context.Context, filename, path string) (int, error) {
	pages, err := s.pages.ExtractPages(path)
	if err != nil {
		return 0, fmt.Errorf("extract pages: %w", err)
	}

	chunks, err := s.splitter.SplitPages(filename, pages)
	if err != nil {
		return 0, fmt.Errorf("split contract: %w", err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no indexable text in %q: %w", filename, domain.ErrUnreadablePDF)
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}

	// Re-uploads replace the previous version of the same contract.
	if _, err := s.index.RemoveSource(filename); err != nil {
		return 0, fmt.Errorf("drop previous version: %w", err)
	}
	if err := s.index.Add(chunks, vectors); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}

	return len(chunks), nil
}

// embedChunks vectorizes chunk texts in batches of batchSize, preserving
// chunk order across batches.
func (s *Service) embedChunks(ctx context.Context, chunks []chunk.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))

	for offset := 0; offset < len(chunks); offset += s.batchSize {
		end := offset + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-offset)
		for _, c := range chunks[offset:end] {
			texts = append(texts, c.Text())
		}

		res, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("batch [%d:%d]: %w", offset, end, err)
		}
		if len(res.Embeddings) != len(texts) {
			return nil, fmt.Errorf(
				"batch [%d:%d]: got %d vectors for %d texts",
				offset, end, len(res.Embeddings), len(texts),
			)
		}

		domain.UsageFromContext(ctx).AddEmbeddingTokens(res.TotalTokens)
		vectors = append(vectors, res.Embeddings...)

		if s.progress != nil {
			s.progress(len(vectors), len(chunks))
		}
	}

	return vectors, nil
}
