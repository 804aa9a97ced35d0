package analysis

import (
	"context"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/domain/chunk"
)

// Generator produces the LLM explanations the analyses are built on.
type Generator interface {
	GenerateExplanation(ctx context.Context, query, contextBlock string) (domain.GeneratedExplanation, error)
}

// Index exposes the indexed corpus for document-level analysis.
type Index interface {
	All() []chunk.Chunk
}

// QueryLog records completed clause analyses. Best effort by contract:
// the service never fails an analysis over a lost entry.
type QueryLog interface {
	Log(ctx context.Context, entry domain.QueryLogEntry) error
}
