package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/domain/chunk"
	"github.com/clauseinsight/clauseinsight/internal/loader"
	analysisuc "github.com/clauseinsight/clauseinsight/internal/usecase/analysis"
	healthuc "github.com/clauseinsight/clauseinsight/internal/usecase/health"
	ingestuc "github.com/clauseinsight/clauseinsight/internal/usecase/ingest"
	queryuc "github.com/clauseinsight/clauseinsight/internal/usecase/query"
)

// --- Mocks ---

// stubEmbedder serves both the query and the ingest embedding contracts.
type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	return domain.EmbeddingResult{Embedding: s.vector, TotalTokens: 5}, nil
}

func (s *stubEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if s.err != nil {
		return domain.BatchEmbeddingResult{}, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: 3 * len(texts)}, nil
}

// stubIndex serves the read side for query, analysis and health plus the
// write side for ingest.
type stubIndex struct {
	matches []domain.RetrievedMatch
	added   []chunk.Chunk
	removed []string
}

func (s *stubIndex) Search(_ []float32, topK int) ([]domain.RetrievedMatch, error) {
	if topK > len(s.matches) {
		topK = len(s.matches)
	}
	return s.matches[:topK], nil
}

func (s *stubIndex) All() []chunk.Chunk {
	out := make([]chunk.Chunk, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m.Chunk)
	}
	return out
}

func (s *stubIndex) Count() int { return len(s.matches) }

func (s *stubIndex) Sources() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range s.matches {
		if _, ok := seen[m.Chunk.Source()]; !ok {
			seen[m.Chunk.Source()] = struct{}{}
			out = append(out, m.Chunk.Source())
		}
	}
	return out
}

func (s *stubIndex) Add(chunks []chunk.Chunk, _ [][]float32) error {
	s.added = append(s.added, chunks...)
	return nil
}

func (s *stubIndex) RemoveSource(source string) (int, error) {
	s.removed = append(s.removed, source)
	return 0, nil
}

func (s *stubIndex) Clear() error { return nil }

type stubGenerator struct {
	expl    domain.GeneratedExplanation
	explErr error
	impact  domain.GeneratedImpact
}

func (s *stubGenerator) GenerateExplanation(_ context.Context, _, _ string) (domain.GeneratedExplanation, error) {
	if s.explErr != nil {
		return domain.GeneratedExplanation{}, s.explErr
	}
	return s.expl, nil
}

func (s *stubGenerator) GenerateImpact(_ context.Context, _ string) (domain.GeneratedImpact, error) {
	return s.impact, nil
}

type stubFileStore struct {
	saved map[string][]byte
}

func newStubFileStore() *stubFileStore {
	return &stubFileStore{saved: make(map[string][]byte)}
}

func (s *stubFileStore) Save(name string, data io.Reader) (string, int64, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", 0, err
	}
	s.saved[name] = b
	return "/contracts/" + name, int64(len(b)), nil
}

func (s *stubFileStore) Path(name string) (string, error) { return "/contracts/" + name, nil }

func (s *stubFileStore) Names() ([]string, error) {
	names := make([]string, 0, len(s.saved))
	for n := range s.saved {
		names = append(names, n)
	}
	return names, nil
}

type stubPageLoader struct {
	pages []loader.Page
	err   error
}

func (s *stubPageLoader) ExtractPages(_ string) ([]loader.Page, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pages, nil
}

// stubSplitter cuts one chunk per page.
type stubSplitter struct{}

func (stubSplitter) SplitPages(source string, pages []loader.Page) ([]chunk.Chunk, error) {
	chunks := make([]chunk.Chunk, 0, len(pages))
	for i, p := range pages {
		chunks = append(chunks, chunk.Reconstruct(source, p.Number, i, p.Text))
	}
	return chunks, nil
}

type failingChecker struct{}

func (failingChecker) HealthCheck(context.Context) error { return errors.New("provider down") }

// --- Fixtures ---

func newTestRouter(index *stubIndex, gen *stubGenerator, pages *stubPageLoader) *chi.Mux {
	return newTestRouterWithHealth(index, gen, pages, healthuc.New(index))
}

func newTestRouterWithHealth(
	index *stubIndex, gen *stubGenerator, pages *stubPageLoader, health *healthuc.Service,
) *chi.Mux {
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}
	server := NewServer(
		ingestuc.New(newStubFileStore(), pages, stubSplitter{}, embedder, index),
		queryuc.New(embedder, index, gen),
		analysisuc.New(index, gen),
		health,
		zap.NewNop(),
	)

	r := chi.NewRouter()
	server.Register(r)
	return r
}

func terminationIndex() *stubIndex {
	return &stubIndex{matches: []domain.RetrievedMatch{
		{
			Chunk: chunk.Reconstruct("nda.pdf", 2, 4,
				"TERMINATION\nEither party may terminate this agreement with 30 days written notice."),
			Score: 0.9,
		},
		{
			Chunk: chunk.Reconstruct("nda.pdf", 2, 5,
				"Notice must be delivered in writing to the registered office."),
			Score: 0.8,
		},
	}}
}

func terminationGenerator() *stubGenerator {
	return &stubGenerator{expl: domain.GeneratedExplanation{
		Summary:          "Thirty days notice ends the agreement.",
		Meaning:          "Either party may terminate the agreement by giving thirty days written notice to the other party.",
		Risks:            []string{"Short notice window"},
		FavoredParty:     "Mutual",
		KeyTerms:         []string{"Termination", "Notice"},
		PromptTokens:     100,
		CompletionTokens: 40,
	}}
}

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func doUpload(t *testing.T, r http.Handler, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

// --- Tests ---

func TestBanner(t *testing.T) {
	r := newTestRouter(&stubIndex{}, &stubGenerator{}, &stubPageLoader{})

	req := httptest.NewRequest("GET", "/", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp bannerResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode banner: %v", err)
	}
	if resp.Status != "operational" {
		t.Errorf("status field: got %q", resp.Status)
	}
	if resp.Service != "ClauseInsight API" {
		t.Errorf("service field: got %q", resp.Service)
	}
	if resp.Version == "" {
		t.Error("version field is empty")
	}
}

func TestUpload_IndexesPDF(t *testing.T) {
	index := &stubIndex{}
	pages := &stubPageLoader{pages: []loader.Page{
		{Number: 1, Text: "MASTER SERVICES AGREEMENT between the parties."},
		{Number: 2, Text: "TERMINATION\nEither party may terminate with notice."},
	}}
	r := newTestRouter(index, &stubGenerator{}, pages)

	rr := doUpload(t, r, "msa.pdf", []byte("%PDF-1.4 payload"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var resp uploadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("status field: got %q", resp.Status)
	}
	if resp.Message != "Document 'msa.pdf' processed successfully" {
		t.Errorf("message field: got %q", resp.Message)
	}
	if resp.ChunkCount != 2 {
		t.Errorf("chunk_count: got %d, want 2", resp.ChunkCount)
	}
	if resp.Filename != "msa.pdf" {
		t.Errorf("filename: got %q", resp.Filename)
	}

	if len(index.added) != 2 {
		t.Errorf("indexed chunks: got %d, want 2", len(index.added))
	}
	if len(index.removed) != 1 || index.removed[0] != "msa.pdf" {
		t.Errorf("previous version not dropped: %v", index.removed)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "6" {
		t.Errorf("X-Embedding-Tokens: got %q, want %q", got, "6")
	}
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	r := newTestRouter(&stubIndex{}, &stubGenerator{}, &stubPageLoader{})

	for _, name := range []string{"notes.txt", "scan.PDF", "report"} {
		rr := doUpload(t, r, name, []byte("payload"))

		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status got %d, want %d", name, rr.Code, http.StatusBadRequest)
			continue
		}
		e := decodeError(t, rr)
		if e.Code != codeBadRequest {
			t.Errorf("%s: code got %q, want %q", name, e.Code, codeBadRequest)
		}
		if e.Message != "Only PDF files are supported" {
			t.Errorf("%s: message got %q", name, e.Message)
		}
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	r := newTestRouter(&stubIndex{}, &stubGenerator{}, &stubPageLoader{})

	rr := doJSON(t, r, "POST", "/upload", `{"file":"nope"}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if e := decodeError(t, rr); e.Code != codeBadRequest {
		t.Errorf("code: got %q, want %q", e.Code, codeBadRequest)
	}
}

func TestUpload_UnreadablePDF(t *testing.T) {
	pages := &stubPageLoader{err: fmt.Errorf("parse pdf: %w", domain.ErrUnreadablePDF)}
	r := newTestRouter(&stubIndex{}, &stubGenerator{}, pages)

	rr := doUpload(t, r, "broken.pdf", []byte("not a pdf"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	e := decodeError(t, rr)
	if e.Code != codeUnreadablePDF {
		t.Errorf("code: got %q, want %q", e.Code, codeUnreadablePDF)
	}
	if !strings.Contains(e.Message, "could not be read") {
		t.Errorf("message: got %q", e.Message)
	}
}

func TestQuery_ReturnsStructuredResponse(t *testing.T) {
	r := newTestRouter(terminationIndex(), terminationGenerator(), &stubPageLoader{})

	rr := doJSON(t, r, "POST", "/query", `{"query":"What is the termination notice period?","top_k":3}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}

	var resp domain.StructuredResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Clause.Title != "TERMINATION" {
		t.Errorf("clause title: got %q", resp.Clause.Title)
	}
	if resp.Clause.Section != "nda.pdf — Page 2" {
		t.Errorf("clause section: got %q", resp.Clause.Section)
	}
	if resp.Explanation.Summary != "Thirty days notice ends the agreement." {
		t.Errorf("summary: got %q", resp.Explanation.Summary)
	}
	if resp.Relevance.Score != 90 {
		t.Errorf("relevance score: got %d, want 90", resp.Relevance.Score)
	}

	if got := rr.Header().Get("X-Embedding-Tokens"); got != "5" {
		t.Errorf("X-Embedding-Tokens: got %q, want %q", got, "5")
	}
	if got := rr.Header().Get("X-Generation-Tokens"); got != "140" {
		t.Errorf("X-Generation-Tokens: got %q, want %q", got, "140")
	}
}

func TestQuery_EmptyQueryRejected(t *testing.T) {
	r := newTestRouter(terminationIndex(), terminationGenerator(), &stubPageLoader{})

	rr := doJSON(t, r, "POST", "/query", `{"query":"   "}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	e := decodeError(t, rr)
	if e.Code != codeBadRequest {
		t.Errorf("code: got %q, want %q", e.Code, codeBadRequest)
	}
	if !strings.Contains(e.Message, "query text is required") {
		t.Errorf("message: got %q", e.Message)
	}
}

func TestQuery_InvalidJSON(t *testing.T) {
	r := newTestRouter(terminationIndex(), terminationGenerator(), &stubPageLoader{})

	rr := doJSON(t, r, "POST", "/query", `{"query":`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	if e := decodeError(t, rr); e.Code != codeBadRequest {
		t.Errorf("code: got %q, want %q", e.Code, codeBadRequest)
	}
}

func TestQuery_EmptyIndex409(t *testing.T) {
	r := newTestRouter(&stubIndex{}, terminationGenerator(), &stubPageLoader{})

	rr := doJSON(t, r, "POST", "/query", `{"query":"What is the termination clause?"}`)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
	e := decodeError(t, rr)
	if e.Code != codeIndexEmpty {
		t.Errorf("code: got %q, want %q", e.Code, codeIndexEmpty)
	}
	if e.Message != "No document has been indexed yet. Please upload a document first." {
		t.Errorf("message: got %q", e.Message)
	}
}

func TestQuery_GenerationFailure502(t *testing.T) {
	gen := &stubGenerator{explErr: fmt.Errorf("llm call: %w", domain.ErrGenerationFailed)}
	r := newTestRouter(terminationIndex(), gen, &stubPageLoader{})

	rr := doJSON(t, r, "POST", "/query", `{"query":"What is the termination clause?"}`)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadGateway)
	}
	if e := decodeError(t, rr); e.Code != codeGenerationFailed {
		t.Errorf("code: got %q, want %q", e.Code, codeGenerationFailed)
	}
}

func TestQuery_RateLimited429(t *testing.T) {
	gen := &stubGenerator{explErr: fmt.Errorf("llm call: %w", domain.ErrRateLimited)}
	r := newTestRouter(terminationIndex(), gen, &stubPageLoader{})

	rr := doJSON(t, r, "POST", "/query", `{"query":"What is the termination clause?"}`)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusTooManyRequests)
	}
	if e := decodeError(t, rr); e.Code != codeRateLimited {
		t.Errorf("code: got %q, want %q", e.Code, codeRateLimited)
	}
}

func TestQuery_MalformedOutput502(t *testing.T) {
	gen := &stubGenerator{explErr: domain.NewMalformedOutput("summary", "is missing")}
	r := newTestRouter(terminationIndex(), gen, &stubPageLoader{})

	rr := doJSON(t, r, "POST", "/query", `{"query":"What is the termination clause?"}`)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadGateway)
	}
	e := decodeError(t, rr)
	if e.Code != codeMalformedOutput {
		t.Errorf("code: got %q, want %q", e.Code, codeMalformedOutput)
	}
	if strings.Contains(e.Message, "summary") {
		t.Errorf("internal detail leaked: %q", e.Message)
	}
}

func TestAnalyzeClause_ReturnsBreakdown(t *testing.T) {
	gen := &stubGenerator{expl: domain.GeneratedExplanation{
		Summary:          "The contractor covers the company's claim costs.",
		Meaning:          "The Contractor must indemnify and defend the Company against all claims arising from the services.",
		FavoredParty:     "Company",
		KeyTerms:         []string{"Indemnification"},
		PromptTokens:     120,
		CompletionTokens: 60,
	}}
	r := newTestRouter(&stubIndex{}, gen, &stubPageLoader{})

	body := `{"clause_text":"INDEMNIFICATION\nThe Contractor shall indemnify, defend and hold harmless the Company from any and all claims.","metadata":{"source":"msa.pdf","page":7}}`
	rr := doJSON(t, r, "POST", "/analyze", body)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp domain.ClauseAnalysis
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Clause.Title != "INDEMNIFICATION" {
		t.Errorf("clause title: got %q", resp.Clause.Title)
	}
	if resp.Clause.Section != "msa.pdf — Page 7" {
		t.Errorf("clause section: got %q", resp.Clause.Section)
	}
	if resp.Metadata.Source != "msa.pdf" || resp.Metadata.Page != 7 {
		t.Errorf("metadata: got %+v", resp.Metadata)
	}
	if len(resp.Analysis.NegotiationFlags) == 0 {
		t.Error("negotiation flags are empty")
	}
	if got := rr.Header().Get("X-Generation-Tokens"); got != "180" {
		t.Errorf("X-Generation-Tokens: got %q, want %q", got, "180")
	}
}

func TestAnalyzeClause_MissingText(t *testing.T) {
	r := newTestRouter(&stubIndex{}, &stubGenerator{}, &stubPageLoader{})

	rr := doJSON(t, r, "POST", "/analyze", `{"clause_text":"  ","metadata":{}}`)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
	e := decodeError(t, rr)
	if e.Code != codeBadRequest {
		t.Errorf("code: got %q, want %q", e.Code, codeBadRequest)
	}
	if e.Message != "clause_text is required" {
		t.Errorf("message: got %q", e.Message)
	}
}

func TestAnalyzeDocument_EmptyIndex404(t *testing.T) {
	r := newTestRouter(&stubIndex{}, &stubGenerator{}, &stubPageLoader{})

	req := httptest.NewRequest("GET", "/analyze-document", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
	e := decodeError(t, rr)
	if e.Code != codeNotFound {
		t.Errorf("code: got %q, want %q", e.Code, codeNotFound)
	}
	if e.Message != "No document has been indexed yet. Please upload a document first." {
		t.Errorf("message: got %q", e.Message)
	}
}

func TestAnalyzeDocument_ReturnsReport(t *testing.T) {
	gen := &stubGenerator{expl: domain.GeneratedExplanation{
		Meaning:          "This is a mutual nondisclosure agreement between two technology companies covering shared evaluations.",
		PromptTokens:     200,
		CompletionTokens: 80,
	}}
	r := newTestRouter(terminationIndex(), gen, &stubPageLoader{})

	req := httptest.NewRequest("GET", "/analyze-document", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp domain.DocumentAnalysis
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Document.Title != "nda.pdf" {
		t.Errorf("document title: got %q", resp.Document.Title)
	}
	if resp.Document.TotalClauses != 2 {
		t.Errorf("total clauses: got %d, want 2", resp.Document.TotalClauses)
	}
	if resp.Analysis.Summary != gen.expl.Meaning {
		t.Errorf("summary: got %q", resp.Analysis.Summary)
	}
	if resp.Metadata.Source != "nda.pdf" {
		t.Errorf("metadata source: got %q", resp.Metadata.Source)
	}
	if got := rr.Header().Get("X-Generation-Tokens"); got != "280" {
		t.Errorf("X-Generation-Tokens: got %q, want %q", got, "280")
	}
}

func TestHealth_OK(t *testing.T) {
	r := newTestRouter(terminationIndex(), &stubGenerator{}, &stubPageLoader{})

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status field: got %q", resp.Status)
	}
	if !resp.Index.Ready || resp.Index.Chunks != 2 || resp.Index.Documents != 1 {
		t.Errorf("index block: got %+v", resp.Index)
	}
	if len(resp.Checks) != 0 {
		t.Errorf("checks: got %v, want none", resp.Checks)
	}
}

func TestHealth_Degraded503(t *testing.T) {
	index := terminationIndex()
	health := healthuc.New(index).WithEmbedding(failingChecker{})
	r := newTestRouterWithHealth(index, &stubGenerator{}, &stubPageLoader{}, health)

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}
	var resp healthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status field: got %q", resp.Status)
	}
	if resp.Checks["embedding"] != "error" {
		t.Errorf("embedding check: got %q", resp.Checks["embedding"])
	}
}

func TestMetrics_Exposed(t *testing.T) {
	r := newTestRouter(&stubIndex{}, &stubGenerator{}, &stubPageLoader{})

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), "# HELP") {
		t.Error("metrics exposition is empty")
	}
}
