package query

import (
	"sort"
	"strings"

	"github.com/clauseinsight/clauseinsight/internal/domain"
)

// rankedMatch is a retrieved match with its answerability-adjusted score.
// Score on the embedded match stays the original embedding similarity; the
// display layer uses it, the ordering uses Final.
type rankedMatch struct {
	domain.RetrievedMatch
	Final float64
	Bonus float64
}

// rerank reorders matches by a blend of embedding similarity and a
// question-aware bonus. Embedding similarity dominates; the bonus nudges
// chunks that look like they can actually answer the question.
func rerank(query string, matches []domain.RetrievedMatch) []rankedMatch {
	ranked := make([]rankedMatch, len(matches))
	for i, m := range matches {
		bonus := answerLikelihood(query, m.Chunk.Text())
		ranked[i] = rankedMatch{
			RetrievedMatch: m,
			Bonus:          bonus,
			Final:          m.Score*0.7 + bonus*0.3,
		}
	}

	// Stable keeps the retrieval order on equal final scores.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Final > ranked[j].Final
	})

	return ranked
}

// answerLikelihood scores how likely a chunk is to answer the query, in
// [0, 1]. Cue lists are tuned for contract and case-law text.
func answerLikelihood(query, chunkText string) float64 {
	var score float64
	queryLower := strings.ToLower(query)
	chunkLower := strings.ToLower(chunkText)

	// Definition questions want defining language.
	if containsAny(queryLower, "define", "defined", "definition", "what is", "what constitutes") &&
		containsAny(chunkLower, "represents", "means", "constitutes", "is defined as", "refers to") {
		score += 0.3
	}

	// Argument questions want the named party on both sides.
	if containsAny(queryLower, "argument", "argued", "claimed", "contended", "defense") {
		if strings.Contains(queryLower, "company") && strings.Contains(chunkLower, "company") {
			score += 0.2
		}
		if strings.Contains(queryLower, "commission") && strings.Contains(chunkLower, "commission") {
			score += 0.2
		}
	}

	// Timeline questions want dated or sequenced passages.
	if containsAny(queryLower, "visit", "during", "when", "actions", "first", "second") &&
		containsAny(chunkLower, "visit", "date:", "may", "june", "first", "second") {
		score += 0.25
	}

	// How/why questions prefer longer explanatory chunks.
	if strings.HasPrefix(queryLower, "how") || strings.HasPrefix(queryLower, "why") {
		if len(chunkText) > 500 {
			score += 0.1
		}
	}

	// Summary questions prefer overview passages.
	if containsAny(queryLower, "summary", "about", "overview", "case") &&
		containsAny(chunkLower, "overview", "introduction", "summary", "concern") {
		score += 0.2
	}

	// Plain keyword presence, capped so it cannot dominate.
	matches := 0
	for _, word := range strings.Fields(queryLower) {
		if len(word) > 4 && strings.Contains(chunkLower, word) {
			matches++
		}
	}
	score += min(0.3, float64(matches)*0.1)

	return score
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
