package domain

import (
	"fmt"
	"strings"

	"github.com/clauseinsight/clauseinsight/internal/domain/chunk"
)

// Query is a single retrieval request. Ephemeral, created per call.
type Query struct {
	Text string
	TopK int
}

// NewQuery validates and creates a Query. A zero TopK means "use the default"
// and is resolved by Clamp.
func NewQuery(text string, topK int) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, fmt.Errorf("%w: query text is required", ErrInvalidArgument)
	}
	if topK < 0 {
		return Query{}, fmt.Errorf("%w: top_k must not be negative, got %d", ErrInvalidArgument, topK)
	}
	return Query{Text: text, TopK: topK}, nil
}

// Clamp resolves a zero TopK to the default and bounds it by the maximum.
func (q Query) Clamp(defaultTopK, maxTopK int) Query {
	if q.TopK == 0 {
		q.TopK = defaultTopK
	}
	if q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	return q
}

// RetrievedMatch is a single search hit: a chunk and its similarity score.
type RetrievedMatch struct {
	Chunk chunk.Chunk
	Score float64
}
