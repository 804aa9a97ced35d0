// Package analysis breaks down contract language independent of any
// search: a single pasted clause on demand, or the whole indexed
// document at once. Both paths combine one LLM explanation with
// deterministic screening heuristics, so repeated analyses of the same
// text stay stable.
package analysis

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/domain/explain"
	"github.com/clauseinsight/clauseinsight/internal/metrics"
)

// analysisQuery is the fixed question every single-clause analysis asks.
const analysisQuery = "Provide a comprehensive analysis of this clause"

// Service runs clause and document analyses.
type Service struct {
	index     Index
	generator Generator
	querylog  QueryLog
	logger    *zap.Logger
}

// New creates an analysis service with no query log.
func New(index Index, generator Generator) *Service {
	return &Service{
		index:     index,
		generator: generator,
		logger:    zap.NewNop(),
	}
}

// WithQueryLog enables best-effort logging of completed clause analyses.
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

// Analyze explains one clause in depth. Source and page are caller
// provenance for the response; the clause text itself is the only
// context the generator sees.
func (s *Service) Analyze(ctx context.Context, clauseText, source string, page int) (domain.ClauseAnalysis, error) {
	if strings.TrimSpace(clauseText) == "" {
		return domain.ClauseAnalysis{}, fmt.Errorf("%w: clause_text is required", domain.ErrInvalidArgument)
	}
	if source == "" {
		source = "Unknown Document"
	}

	expl, err := s.generator.GenerateExplanation(ctx, analysisQuery, clauseText)
	if err != nil {
		return domain.ClauseAnalysis{}, fmt.Errorf("generate analysis: %w", err)
	}
	domain.UsageFromContext(ctx).AddGenerationTokens(expl.PromptTokens + expl.CompletionTokens)

	resp := buildAnalysis(clauseText, source, page, expl)
	s.logAsync(ctx, domain.NewAnalysisLogEntry(clauseText, resp))
	return resp, nil
}

func buildAnalysis(clauseText, source string, page int, expl domain.GeneratedExplanation) domain.ClauseAnalysis {
	keyTerms := expl.KeyTerms
	if len(keyTerms) > 6 {
		keyTerms = keyTerms[:6]
	}
	if len(keyTerms) == 0 {
		keyTerms = explain.KeyTerms(clauseText)
		if len(keyTerms) > 4 {
			keyTerms = keyTerms[:4]
		}
	}

	// The fixed analysis question never asks about consequences, so the
	// impact note is condensed from the meaning instead of a second LLM
	// call.
	impact := impactFallback(expl.Meaning)

	confidence, reason := explain.Confidence(analysisQuery, clauseText, expl.Meaning)

	return domain.ClauseAnalysis{
		Clause: domain.ClauseRef{
			Title:   clauseTitle(clauseText),
			Section: fmt.Sprintf("%s — Page %d", source, page),
			Content: clauseText,
		},
		Analysis: domain.ClauseAssessment{
			Summary:          expl.Summary,
			Meaning:          expl.Meaning,
			FavoredParty:     expl.FavoredParty,
			KeyTerms:         keyTerms,
			PracticalImpact:  impact,
			NegotiationFlags: negotiationFlags(clauseText),
		},
		Metadata: domain.AnalysisMetadata{
			Source:           source,
			Page:             page,
			Confidence:       confidence,
			ConfidenceReason: reason,
		},
	}
}

// logAsync records the completed analysis without blocking or failing
// the request. The entry is written on a detached context so an already
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
