// Package query answers natural-language questions about indexed
// contracts. The pipeline embeds the question, retrieves and reranks the
// closest chunks, then asks the LLM to explain the best ones; completed
// responses are logged best-effort when a query log is configured.
package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/domain/explain"
	"github.com/clauseinsight/clauseinsight/internal/metrics"
)

// Retrieval defaults, overridable through the With* builders.
const (
	DefaultTopK          = 3
	DefaultMaxTopK       = 20
	DefaultContextChunks = 3
	DefaultMinRelevance  = 0.5
)

// Service runs the question-answering pipeline.
type Service struct {
	embedder      Embedder
	index         Index
	generator     Generator
	querylog      QueryLog
	logger        *zap.Logger
	defaultTopK   int
	maxTopK       int
	contextChunks int
	minRelevance  float64
}

// New creates a query service with default retrieval settings and no
// query log.
func New(embedder Embedder, index Index, generator Generator) *Service {
	return &Service{
		embedder:      embedder,
		index:         index,
		generator:     generator,
		logger:        zap.NewNop(),
		defaultTopK:   DefaultTopK,
		maxTopK:       DefaultMaxTopK,
		contextChunks: DefaultContextChunks,
		minRelevance:  DefaultMinRelevance,
	}
}

// WithTopK overrides the default and maximum top_k bounds.
func (s *Service) WithTopK(defaultK, maxK int) *Service {
	if defaultK > 0 {
		s.defaultTopK = defaultK
	}
	if maxK > 0 {
		s.maxTopK = maxK
	}
	return s
}

// WithContextChunks sets how many reranked chunks feed the generator.
func (s *Service) WithContextChunks(n int) *Service {
	if n > 0 {
		s.contextChunks = n
	}
	return s
}

// WithMinRelevance sets the score below which retrieval is treated as a
// miss and answered without the LLM.
func (s *Service) WithMinRelevance(r float64) *Service {
	if r > 0 {
		s.minRelevance = r
	}
	return s
}

// WithQueryLog enables best-effort logging of completed responses.
func (s *Service) WithQueryLog(log QueryLog) *Service {
	s.querylog = log
	return s
}

// WithLogger sets the service logger.
func (s *Service) WithLogger(l *zap.Logger) *Service {
	if l != nil {
		s.logger = l
	}
	return s
}

// Query answers one question against the index and returns the structured
// response. The query must already be validated; top_k is clamped here.
func (s *Service) Query(ctx context.Context, q domain.Query) (domain.StructuredResponse, error) {
	q = q.Clamp(s.defaultTopK, s.maxTopK)

	emb, err := s.embedder.Embed(ctx, q.Text)
	if err != nil {
		return domain.StructuredResponse{}, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddEmbeddingTokens(emb.TotalTokens)

	matches, err := s.index.Search(emb.Embedding, q.TopK)
	if err != nil {
		return domain.StructuredResponse{}, fmt.Errorf("search index: %w", err)
	}
	if len(matches) == 0 {
		return domain.StructuredResponse{}, domain.ErrEmptyIndex
	}

	// A best match below the relevance floor means the question is about
	// something this document does not cover. Answer honestly without
	// burning an LLM call.
	if top := matches[0].Score; top < s.minRelevance {
		s.logger.Info("query below relevance floor",
			zap.Float64("top_score", top),
			zap.Float64("min_relevance", s.minRelevance))
		resp := notAvailableResponse(top)
		s.logAsync(ctx, domain.NewQueryLogEntry(q.Text, resp))
		return resp, nil
	}

	ranked := rerank(q.Text, matches)

	expl, contextBlock, err := s.generate(ctx, q.Text, ranked)
	if err != nil {
		return domain.StructuredResponse{}, err
	}

	impact := s.generateImpact(ctx, q.Text, contextBlock)

	resp := buildResponse(q.Text, ranked, contextBlock, expl, impact)
	s.logAsync(ctx, domain.NewQueryLogEntry(q.Text, resp))
	return resp, nil
}

// impactTriggers gate the extra impact call: only queries that ask about
// consequences pay for it.
var impactTriggers = []string{"impact", "affect", "consequence", "mean", "result", "happen"}

// generateImpact produces the practical-impact note when the query asks
// for one. Failures reduce to a warning; the main answer stands on its own.
func (s *Service) generateImpact(ctx context.Context, query, contextBlock string) string {
	if !containsAny(strings.ToLower(query), impactTriggers...) {
		return ""
	}

	res, err := s.generator.GenerateImpact(ctx, contextBlock)
	if err != nil {
		s.logger.Warn("impact generation failed", zap.Error(err))
		return ""
	}
	domain.UsageFromContext(ctx).AddGenerationTokens(res.PromptTokens + res.CompletionTokens)
	return res.Impact
}

// buildResponse assembles the product response. The displayed clause is
// the best reranked chunk; the relevance score shows its original
// embedding similarity, not the reranked one.
func buildResponse(query string, ranked []rankedMatch, contextBlock string, expl domain.GeneratedExplanation, impact string) domain.StructuredResponse {
	top := ranked[0]

	risks := expl.Risks
	if risks == nil {
		risks = []string{}
	}

	keyTerms := expl.KeyTerms
	if len(keyTerms) > 6 {
		keyTerms = keyTerms[:6]
	}
	if len(keyTerms) == 0 {
		keyTerms = explain.KeyTerms(contextBlock)
		if len(keyTerms) > 4 {
			keyTerms = keyTerms[:4]
		}
	}

	confidence, reason := explain.Confidence(query, contextBlock, expl.Meaning)

	return domain.StructuredResponse{
		Clause: domain.ClauseRef{
			Title:   clauseTitle(top.Chunk.Text()),
			Section: fmt.Sprintf("%s — Page %d", top.Chunk.Source(), top.Chunk.Page()),
			Content: top.Chunk.Text(),
		},
		Explanation: domain.Explanation{
			Summary:          expl.Summary,
			Meaning:          expl.Meaning,
			Risks:            risks,
			FavoredParty:     expl.FavoredParty,
			KeyTerms:         keyTerms,
			PracticalImpact:  impact,
			Confidence:       confidence,
			ConfidenceReason: reason,
		},
		Relevance: domain.Relevance{
			Score:        int(top.Score * 100),
			MatchedTerms: matchedTerms(query, top.Chunk.Text()),
		},
	}
}

// notAvailableResponse is the canned answer for queries the document does
// not cover. Confidence is fixed low and no clause content is shown.
func notAvailableResponse(topScore float64) domain.StructuredResponse {
	const notAvailable = "I don't have information about that in this document."
	return domain.StructuredResponse{
		Clause: domain.ClauseRef{
			Title:   "Information Not Available",
			Section: "N/A",
			Content: "",
		},
		Explanation: domain.Explanation{
			Summary:          notAvailable,
			Meaning:          notAvailable,
			Risks:            []string{},
			FavoredParty:     "N/A",
			KeyTerms:         []string{},
			PracticalImpact:  "",
			Confidence:       30,
			ConfidenceReason: "Query does not match document content",
		},
		Relevance: domain.Relevance{
			Score:        int(topScore * 100),
			MatchedTerms: []string{},
		},
	}
}

// logAsync records the completed response without blocking or failing the
// request. The entry is written on a detached context so an already
// finished request cannot cancel the write.
func (s *Service) logAsync(ctx context.Context, entry domain.QueryLogEntry) {
	if s.querylog == nil {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		if err := s.querylog.Log(detached, entry); err != nil {
			metrics.QueryLogFailuresTotal.Inc()
			s.logger.Warn("query log write failed", zap.Error(err))
		}
	}()
}
