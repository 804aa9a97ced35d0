package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/metrics"
)

// emptyAnswerPhrases mark generated answers that dodge the question.
var emptyAnswerPhrases = []string{
	"does not contain",
	"not contain information",
	"context does not",
	"does not address",
	"not specified",
	"not mentioned",
	"no information",
}

// isEmptyAnswer reports whether the generated meaning is a short
// non-answer worth retrying. Longer hedged answers usually carry partial
// information and are kept.
func isEmptyAnswer(meaning string) bool {
	lower := strings.ToLower(meaning)
	return len(meaning) < 150 && containsAny(lower, emptyAnswerPhrases...)
}

// generate runs the explanation call over a context ladder. The first
// attempt sees the configured number of chunks; after an empty answer each
// retry narrows the context, down to the single best chunk, so no attempt
// ever repeats the previous request. The last attempt's output and context
// are returned even when still empty.
func (s *Service) generate(ctx context.Context, query string, ranked []rankedMatch) (domain.GeneratedExplanation, string, error) {
	var expl domain.GeneratedExplanation
	var contextBlock string

	for attempt, size := range contextLadder(s.contextChunks, len(ranked)) {
		if attempt > 0 {
			metrics.GenerationRetriesTotal.WithLabelValues("empty_answer").Inc()
			s.logger.Info("retrying generation with narrower context",
				zap.Int("attempt", attempt+1),
				zap.Int("context_chunks", size))
		}

		contextBlock = buildContext(ranked, size)

		var err error
		expl, err = s.generator.GenerateExplanation(ctx, query, contextBlock)
		if err != nil {
			return domain.GeneratedExplanation{}, "", fmt.Errorf("generate explanation: %w", err)
		}
		domain.UsageFromContext(ctx).AddGenerationTokens(expl.PromptTokens + expl.CompletionTokens)

		if !isEmptyAnswer(expl.Meaning) {
			break
		}
	}

	return expl, contextBlock, nil
}

// contextLadder returns the chunk counts for successive generation
// attempts: the configured width first, then two chunks, then one. Steps
// are clamped to the available matches and kept strictly decreasing.
func contextLadder(contextChunks, available int) []int {
	var ladder []int
	for _, n := range []int{contextChunks, 2, 1} {
		if n > available {
			n = available
		}
		if n < 1 {
			n = 1
		}
		if len(ladder) > 0 && n >= ladder[len(ladder)-1] {
			continue
		}
		ladder = append(ladder, n)
	}
	return ladder
}

// buildContext joins the texts of the top n ranked chunks.
func buildContext(ranked []rankedMatch, n int) string {
	if n > len(ranked) {
		n = len(ranked)
	}
	parts := make([]string, 0, n)
	for _, m := range ranked[:n] {
		parts = append(parts, m.Chunk.Text())
	}
	return strings.Join(parts, "\n\n")
}
