// Package explain holds the deterministic text heuristics shared by the
// answer pipelines: grading how well a generated answer is grounded in
// its context and pulling display terms out of clause text. Nothing in
// this package calls a model.
package explain

import "strings"

// Confidence bounds. Scores never leave the [Min, Max] band; hedged
// answers are pulled down to the cap before the context bonus applies.
const (
	confidenceBase = 70
	confidenceMin  = 40
	confidenceMax  = 95
	uncertaintyCap = 65
)

// uncertaintyPhrases mark answers that hedge about missing information.
var uncertaintyPhrases = []string{
	"not contain",
	"does not specify",
	"unclear",
	"not mentioned",
	"not provided",
}

// specificityCues suggest the answer cites concrete contract language.
var specificityCues = []string{"specific", "explicit", "state", "mention", "indicate"}

// Confidence grades a generated answer against the context it was
// produced from and returns a score with a one-line reason. The score is
// driven by word overlap with the context, answer length relative to the
// question, and whether the answer admits uncertainty. An uncertain
// answer is capped at 65, though a substantial context still adds its
// bonus on top of the cap.
func Confidence(query, contextBlock, answer string) (int, string) {
	score := confidenceBase

	answerLower := strings.ToLower(answer)
	answerWords := wordSet(answerLower)
	contextWords := wordSet(strings.ToLower(contextBlock))

	shared := 0
	for w := range answerWords {
		if contextWords[w] {
			shared++
		}
	}
	overlap := float64(shared) / float64(max(len(answerWords), 1))

	var reason string
	if overlap > 0.3 {
		score += 15
		reason = "Answer references specific content from retrieved context"
	} else {
		score -= 10
		reason = "Limited grounding in retrieved context"
	}

	if len(answer) > 100 && containsAny(answerLower, specificityCues) {
		score += 5
	}

	if containsAny(answerLower, uncertaintyPhrases) {
		score = min(score, uncertaintyCap)
		if strings.Contains(answerLower, "not contain") && len(contextBlock) > 1000 {
			reason = "Answer not found in selected context - may exist in alternate retrieved chunks"
		} else {
			reason = "Information not fully specified in retrieved context"
		}
	}

	if len(contextBlock) > 800 {
		score += 5
	}

	if len(strings.Fields(query)) > 6 && len(answer) < 50 {
		score -= 15
		reason = "Brief answer for complex question - may lack detail"
	}

	return max(confidenceMin, min(confidenceMax, score)), reason
}

func wordSet(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		words[w] = true
	}
	return words
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
