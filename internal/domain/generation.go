package domain

import "context"

// AnswerGenerator is the shared LLM generation contract between layers.
type AnswerGenerator interface {
	// GenerateExplanation produces the structured explanation of the
	// assembled context block for the query.
	GenerateExplanation(ctx context.Context, query, contextBlock string) (GeneratedExplanation, error)

	// GenerateImpact produces a short practical-impact description of the
	// context block.
	GenerateImpact(ctx context.Context, contextBlock string) (GeneratedImpact, error)
}

// GeneratedExplanation is a strictly validated completion: every field was
// present in the provider reply, nothing is silently defaulted.
type GeneratedExplanation struct {
	Summary          string
	Meaning          string
	Risks            []string
	FavoredParty     string
	KeyTerms         []string
	PromptTokens     int
	CompletionTokens int
}

// GeneratedImpact carries one practical-impact completion.
type GeneratedImpact struct {
	Impact           string
	PromptTokens     int
	CompletionTokens int
}
