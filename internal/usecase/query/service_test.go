package query

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/clauseinsight/clauseinsight/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	vector []float32
	tokens int
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vector, TotalTokens: m.tokens}, nil
}

type mockIndex struct {
	matches []domain.RetrievedMatch
	err     error
	calls   int
	gotTopK int
}

func (m *mockIndex) Search(_ []float32, topK int) ([]domain.RetrievedMatch, error) {
	m.calls++
	m.gotTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	n := topK
	if n > len(m.matches) {
		n = len(m.matches)
	}
	return m.matches[:n], nil
}

type mockGenerator struct {
	explFn      func(query, contextBlock string) (domain.GeneratedExplanation, error)
	impact      domain.GeneratedImpact
	impactErr   error
	explCalls   int
	impactCalls int
	contexts    []string
}

func (m *mockGenerator) GenerateExplanation(_ context.Context, query, contextBlock string) (domain.GeneratedExplanation, error) {
	m.explCalls++
	m.contexts = append(m.contexts, contextBlock)
	return m.explFn(query, contextBlock)
}

func (m *mockGenerator) GenerateImpact(_ context.Context, _ string) (domain.GeneratedImpact, error) {
	m.impactCalls++
	if m.impactErr != nil {
		return domain.GeneratedImpact{}, m.impactErr
	}
	return m.impact, nil
}

type mockQueryLog struct {
	err    error
	logged chan domain.QueryLogEntry
}

func newMockQueryLog(err error) *mockQueryLog {
	return &mockQueryLog{err: err, logged: make(chan domain.QueryLogEntry, 4)}
}

func (m *mockQueryLog) Log(_ context.Context, entry domain.QueryLogEntry) error {
	m.logged <- entry
	return m.err
}

func waitForEntry(t *testing.T, log *mockQueryLog) domain.QueryLogEntry {
	t.Helper()
	select {
	case entry := <-log.logged:
		return entry
	case <-time.After(2 * time.Second):
		t.Fatal("query log entry never arrived")
		return domain.QueryLogEntry{}
	}
}

// --- Fixtures ---

func fixedExplanation() domain.GeneratedExplanation {
	return domain.GeneratedExplanation{
		Summary:          "Thirty days notice ends the agreement.",
		Meaning:          "Either party may terminate the agreement by giving thirty days written notice to the other party.",
		Risks:            []string{"Short notice window"},
		FavoredParty:     "Mutual",
		KeyTerms:         []string{"Termination", "Notice"},
		PromptTokens:     100,
		CompletionTokens: 40,
	}
}

func fixedGenerator() *mockGenerator {
	return &mockGenerator{explFn: func(string, string) (domain.GeneratedExplanation, error) {
		return fixedExplanation(), nil
	}}
}

func terminationMatches() []domain.RetrievedMatch {
	return []domain.RetrievedMatch{
		match("nda.pdf", 2, 4, "TERMINATION\nEither party may terminate this agreement with 30 days written notice.", 0.9),
		match("nda.pdf", 2, 5, "Notice must be delivered in writing to the registered office.", 0.8),
		match("nda.pdf", 3, 6, "Survival of obligations after expiry is addressed separately.", 0.7),
	}
}

// --- Tests ---

func TestQuery_AnswersFromTopChunk(t *testing.T) {
	embedder := &mockEmbedder{vector: []float32{0.1, 0.2}, tokens: 7}
	index := &mockIndex{matches: terminationMatches()}
	gen := fixedGenerator()

	svc := New(embedder, index, gen)

	resp, err := svc.Query(context.Background(), domain.Query{Text: "What is the termination clause?", TopK: 3})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if resp.Clause.Title != "TERMINATION" {
		t.Errorf("clause title = %q, want TERMINATION", resp.Clause.Title)
	}
	if resp.Clause.Section != "nda.pdf — Page 2" {
		t.Errorf("clause section = %q", resp.Clause.Section)
	}
	if resp.Clause.Content != index.matches[0].Chunk.Text() {
		t.Errorf("clause content = %q, want the top chunk text", resp.Clause.Content)
	}
	if resp.Explanation.Summary != "Thirty days notice ends the agreement." {
		t.Errorf("summary = %q", resp.Explanation.Summary)
	}
	if !reflect.DeepEqual(resp.Explanation.Risks, []string{"Short notice window"}) {
		t.Errorf("risks = %v", resp.Explanation.Risks)
	}
	if !reflect.DeepEqual(resp.Explanation.KeyTerms, []string{"Termination", "Notice"}) {
		t.Errorf("key terms = %v", resp.Explanation.KeyTerms)
	}
	if resp.Explanation.Confidence != 85 {
		t.Errorf("confidence = %d, want 85", resp.Explanation.Confidence)
	}
	if resp.Explanation.PracticalImpact != "" {
		t.Errorf("practical impact = %q, want empty for a non-impact question", resp.Explanation.PracticalImpact)
	}
	if resp.Relevance.Score != 90 {
		t.Errorf("relevance score = %d, want 90", resp.Relevance.Score)
	}
	if !reflect.DeepEqual(resp.Relevance.MatchedTerms, []string{"termination"}) {
		t.Errorf("matched terms = %v", resp.Relevance.MatchedTerms)
	}

	if gen.explCalls != 1 {
		t.Errorf("explanation calls = %d, want 1", gen.explCalls)
	}
	if gen.impactCalls != 0 {
		t.Errorf("impact calls = %d, want 0", gen.impactCalls)
	}

	wantContext := strings.Join([]string{
		index.matches[0].Chunk.Text(),
		index.matches[1].Chunk.Text(),
		index.matches[2].Chunk.Text(),
	}, "\n\n")
	if gen.contexts[0] != wantContext {
		t.Errorf("generation context = %q, want all three chunks joined", gen.contexts[0])
	}
}

func TestQuery_SearchUsesClampedTopK(t *testing.T) {
	matches := terminationMatches()
	index := &mockIndex{matches: matches}
	svc := New(&mockEmbedder{vector: []float32{1}}, index, fixedGenerator())

	if _, err := svc.Query(context.Background(), domain.Query{Text: "termination", TopK: 0}); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if index.gotTopK != DefaultTopK {
		t.Errorf("zero top_k searched with %d, want the default %d", index.gotTopK, DefaultTopK)
	}

	if _, err := svc.Query(context.Background(), domain.Query{Text: "termination", TopK: 50}); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if index.gotTopK != DefaultMaxTopK {
		t.Errorf("oversized top_k searched with %d, want clamped to %d", index.gotTopK, DefaultMaxTopK)
	}
}

func TestQuery_EmptyIndexPropagates(t *testing.T) {
	gen := fixedGenerator()
	svc := New(&mockEmbedder{vector: []float32{1}}, &mockIndex{err: domain.ErrEmptyIndex}, gen)

	_, err := svc.Query(context.Background(), domain.Query{Text: "anything"})
	if !errors.Is(err, domain.ErrEmptyIndex) {
		t.Fatalf("Query() error = %v, want ErrEmptyIndex", err)
	}
	if gen.explCalls != 0 {
		t.Errorf("generator called %d times on an empty index", gen.explCalls)
	}
}

func TestQuery_EmbedFailure(t *testing.T) {
	index := &mockIndex{matches: terminationMatches()}
	svc := New(&mockEmbedder{err: errors.New("provider down")}, index, fixedGenerator())

	_, err := svc.Query(context.Background(), domain.Query{Text: "anything"})
	if err == nil {
		t.Fatal("Query() expected error")
	}
	if index.calls != 0 {
		t.Errorf("index searched %d times after a failed embedding", index.calls)
	}
}

func TestQuery_LowRelevanceAnswersWithoutLLM(t *testing.T) {
	matches := []domain.RetrievedMatch{
		match("nda.pdf", 1, 0, "Wholly unrelated boilerplate.", 0.2),
	}
	gen := fixedGenerator()
	log := newMockQueryLog(nil)
	svc := New(&mockEmbedder{vector: []float32{1}}, &mockIndex{matches: matches}, gen).WithQueryLog(log)

	resp, err := svc.Query(context.Background(), domain.Query{Text: "How do I bake bread?"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if resp.Clause.Title != "Information Not Available" {
		t.Errorf("title = %q", resp.Clause.Title)
	}
	if resp.Clause.Section != "N/A" || resp.Clause.Content != "" {
		t.Errorf("clause = %+v, want empty N/A clause", resp.Clause)
	}
	if resp.Explanation.Confidence != 30 {
		t.Errorf("confidence = %d, want 30", resp.Explanation.Confidence)
	}
	if resp.Explanation.ConfidenceReason != "Query does not match document content" {
		t.Errorf("confidence reason = %q", resp.Explanation.ConfidenceReason)
	}
	if resp.Relevance.Score != 20 {
		t.Errorf("relevance score = %d, want 20", resp.Relevance.Score)
	}
	if len(resp.Relevance.MatchedTerms) != 0 {
		t.Errorf("matched terms = %v, want none", resp.Relevance.MatchedTerms)
	}
	if gen.explCalls != 0 || gen.impactCalls != 0 {
		t.Errorf("generator called (%d expl, %d impact) for a low-relevance query",
			gen.explCalls, gen.impactCalls)
	}

	// The canned response is still logged.
	entry := waitForEntry(t, log)
	if entry.QueryType != domain.QueryTypeQuery {
		t.Errorf("entry type = %q", entry.QueryType)
	}
	if entry.Metadata.Confidence != 30 {
		t.Errorf("logged confidence = %d, want 30", entry.Metadata.Confidence)
	}
}

func TestQuery_RelevanceFloorIsExclusive(t *testing.T) {
	matches := []domain.RetrievedMatch{
		match("nda.pdf", 1, 0, "Termination with notice.", 0.5),
	}
	gen := fixedGenerator()
	svc := New(&mockEmbedder{vector: []float32{1}}, &mockIndex{matches: matches}, gen)

	resp, err := svc.Query(context.Background(), domain.Query{Text: "termination"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if gen.explCalls != 1 {
		t.Errorf("generator calls = %d, want 1 for a score at the floor", gen.explCalls)
	}
	if resp.Clause.Title == "Information Not Available" {
		t.Error("score at the floor must not trigger the canned response")
	}
}

func TestQuery_RetriesWithNarrowerContext(t *testing.T) {
	matches := terminationMatches()
	index := &mockIndex{matches: matches}

	attempts := 0
	gen := &mockGenerator{explFn: func(string, string) (domain.GeneratedExplanation, error) {
		attempts++
		expl := fixedExplanation()
		if attempts < 3 {
			expl.Meaning = "The context does not contain that information."
		}
		return expl, nil
	}}

	svc := New(&mockEmbedder{vector: []float32{1}, tokens: 7}, index, gen)

	ctx, usage := domain.NewContextWithUsage(context.Background())
	resp, err := svc.Query(ctx, domain.Query{Text: "What is the termination clause?"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if gen.explCalls != 3 {
		t.Fatalf("explanation calls = %d, want 3", gen.explCalls)
	}

	wantContexts := []string{
		strings.Join([]string{matches[0].Chunk.Text(), matches[1].Chunk.Text(), matches[2].Chunk.Text()}, "\n\n"),
		strings.Join([]string{matches[0].Chunk.Text(), matches[1].Chunk.Text()}, "\n\n"),
		matches[0].Chunk.Text(),
	}
	if !reflect.DeepEqual(gen.contexts, wantContexts) {
		t.Errorf("attempt contexts = %#v, want strictly narrowing %#v", gen.contexts, wantContexts)
	}

	if resp.Explanation.Meaning != fixedExplanation().Meaning {
		t.Errorf("meaning = %q, want the final attempt's answer", resp.Explanation.Meaning)
	}
	if usage.GenerationTokens != 3*140 {
		t.Errorf("generation tokens = %d, want every attempt counted (420)", usage.GenerationTokens)
	}
	if usage.EmbeddingTokens != 7 {
		t.Errorf("embedding tokens = %d, want 7", usage.EmbeddingTokens)
	}
}

func TestQuery_AllAttemptsEmptyKeepsLastAnswer(t *testing.T) {
	const dodge = "The context does not contain that information."
	gen := &mockGenerator{explFn: func(string, string) (domain.GeneratedExplanation, error) {
		expl := fixedExplanation()
		expl.Meaning = dodge
		return expl, nil
	}}
	svc := New(&mockEmbedder{vector: []float32{1}}, &mockIndex{matches: terminationMatches()}, gen)

	resp, err := svc.Query(context.Background(), domain.Query{Text: "insurance requirements"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if gen.explCalls != 3 {
		t.Errorf("explanation calls = %d, want the full ladder", gen.explCalls)
	}
	if resp.Explanation.Meaning != dodge {
		t.Errorf("meaning = %q, want the last answer even when empty", resp.Explanation.Meaning)
	}
}

func TestQuery_SingleMatchSingleAttempt(t *testing.T) {
	matches := terminationMatches()[:1]
	gen := &mockGenerator{explFn: func(string, string) (domain.GeneratedExplanation, error) {
		expl := fixedExplanation()
		expl.Meaning = "The context does not contain that information."
		return expl, nil
	}}
	svc := New(&mockEmbedder{vector: []float32{1}}, &mockIndex{matches: matches}, gen)

	if _, err := svc.Query(context.Background(), domain.Query{Text: "termination"}); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if gen.explCalls != 1 {
		t.Errorf("explanation calls = %d, want 1 with a single match", gen.explCalls)
	}
}

func TestQuery_GenerationFailurePropagates(t *testing.T) {
	gen := &mockGenerator{explFn: func(string, string) (domain.GeneratedExplanation, error) {
		return domain.GeneratedExplanation{}, domain.ErrGenerationFailed
	}}
	svc := New(&mockEmbedder{vector: []float32{1}}, &mockIndex{matches: terminationMatches()}, gen)

	_, err := svc.Query(context.Background(), domain.Query{Text: "termination"})
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("Query() error = %v, want ErrGenerationFailed", err)
	}
	if gen.explCalls != 1 {
		t.Errorf("explanation calls = %d, want no retry on hard failure", gen.explCalls)
	}
}

func TestQuery_ImpactWhenAsked(t *testing.T) {
	gen := fixedGenerator()
	gen.impact = domain.GeneratedImpact{Impact: "The vendor can exit quickly.", PromptTokens: 20, CompletionTokens: 10}
	svc := New(&mockEmbedder{vector: []float32{1}, tokens: 3}, &mockIndex{matches: terminationMatches()}, gen)

	ctx, usage := domain.NewContextWithUsage(context.Background())
	resp, err := svc.Query(ctx, domain.Query{Text: "What does termination mean for the vendor?"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	if gen.impactCalls != 1 {
		t.Fatalf("impact calls = %d, want 1", gen.impactCalls)
	}
	if resp.Explanation.PracticalImpact != "The vendor can exit quickly." {
		t.Errorf("practical impact = %q", resp.Explanation.PracticalImpact)
	}
	if usage.GenerationTokens != 140+30 {
		t.Errorf("generation tokens = %d, want explanation plus impact (170)", usage.GenerationTokens)
	}
}

func TestQuery_ImpactFailureNonFatal(t *testing.T) {
	gen := fixedGenerator()
	gen.impactErr = errors.New("llm down")
	svc := New(&mockEmbedder{vector: []float32{1}}, &mockIndex{matches: terminationMatches()}, gen)

	resp, err := svc.Query(context.Background(), domain.Query{Text: "What does termination mean for the vendor?"})
	if err != nil {
		t.Fatalf("Query() error = %v, impact failure must not fail the query", err)
	}
	if gen.impactCalls != 1 {
		t.Errorf("impact calls = %d, want 1", gen.impactCalls)
	}
	if resp.Explanation.PracticalImpact != "" {
		t.Errorf("practical impact = %q, want empty after a failed impact call", resp.Explanation.PracticalImpact)
	}
	if resp.Explanation.Meaning == "" {
		t.Error("main answer missing")
	}
}

func TestQuery_LoggingFailureDoesNotChangeResponse(t *testing.T) {
	question := domain.Query{Text: "What is the termination clause?"}

	healthy := newMockQueryLog(nil)
	svcOK := New(&mockEmbedder{vector: []float32{1}}, &mockIndex{matches: terminationMatches()}, fixedGenerator()).
		WithQueryLog(healthy)
	respOK, err := svcOK.Query(context.Background(), question)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	waitForEntry(t, healthy)

	failing := newMockQueryLog(domain.ErrLoggingUnavailable)
	svcFail := New(&mockEmbedder{vector: []float32{1}}, &mockIndex{matches: terminationMatches()}, fixedGenerator()).
		WithQueryLog(failing)
	respFail, err := svcFail.Query(context.Background(), question)
	if err != nil {
		t.Fatalf("Query() error = %v, logging failure must stay invisible", err)
	}
	waitForEntry(t, failing)

	if !reflect.DeepEqual(respOK, respFail) {
		t.Errorf("responses diverge on logging failure:\nok:   %+v\nfail: %+v", respOK, respFail)
	}
}

func TestQuery_LogEntryShape(t *testing.T) {
	log := newMockQueryLog(nil)
	svc := New(&mockEmbedder{vector: []float32{1}}, &mockIndex{matches: terminationMatches()}, fixedGenerator()).
		WithQueryLog(log)

	resp, err := svc.Query(context.Background(), domain.Query{Text: "What is the termination clause?"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	entry := waitForEntry(t, log)
	if entry.Query != "What is the termination clause?" {
		t.Errorf("entry query = %q", entry.Query)
	}
	if entry.QueryType != domain.QueryTypeQuery {
		t.Errorf("entry type = %q, want %q", entry.QueryType, domain.QueryTypeQuery)
	}
	if entry.Metadata.ClauseTitle != "TERMINATION" {
		t.Errorf("entry clause title = %q", entry.Metadata.ClauseTitle)
	}
	if entry.Metadata.RelevanceScore != 0.9 {
		t.Errorf("entry relevance = %v, want 0.9", entry.Metadata.RelevanceScore)
	}
	logged, ok := entry.Response.(domain.StructuredResponse)
	if !ok {
		t.Fatalf("entry response is %T, want StructuredResponse", entry.Response)
	}
	if !reflect.DeepEqual(logged, resp) {
		t.Error("logged response differs from the returned one")
	}
}

func TestBuildResponse_FallbacksForSparseGeneratorOutput(t *testing.T) {
	text := "SEVERABILITY\nIf any provision is held invalid, the remainder continues in force."
	ranked := []rankedMatch{{RetrievedMatch: match("msa.pdf", 4, 9, text, 0.8)}}

	expl := fixedExplanation()
	expl.Risks = nil
	expl.KeyTerms = nil

	resp := buildResponse("what about severability?", ranked, text, expl, "")

	if resp.Explanation.Risks == nil || len(resp.Explanation.Risks) != 0 {
		t.Errorf("risks = %#v, want empty non-nil slice", resp.Explanation.Risks)
	}
	if !reflect.DeepEqual(resp.Explanation.KeyTerms, []string{"Severability"}) {
		t.Errorf("key terms = %v, want extracted from context", resp.Explanation.KeyTerms)
	}

	expl.KeyTerms = []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	resp = buildResponse("what about severability?", ranked, text, expl, "")
	if len(resp.Explanation.KeyTerms) != 6 {
		t.Errorf("key terms len = %d, want capped at 6", len(resp.Explanation.KeyTerms))
	}
}
