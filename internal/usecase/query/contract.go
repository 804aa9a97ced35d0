package query

import (
	"context"

	"github.com/clauseinsight/clauseinsight/internal/domain"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index is the read side of the vector index.
type Index interface {
	Search(vector []float32, topK int) ([]domain.RetrievedMatch, error)
}

// Generator produces the structured explanation and the optional
// practical-impact note for an aggregated context.
type Generator interface {
	GenerateExplanation(ctx context.Context, query, contextBlock string) (domain.GeneratedExplanation, error)
	GenerateImpact(ctx context.Context, contextBlock string) (domain.GeneratedImpact, error)
}

// QueryLog records completed queries. Best effort by contract: the service
// never fails a query over a lost entry.
type QueryLog interface {
	Log(ctx context.Context, entry domain.QueryLogEntry) error
}
