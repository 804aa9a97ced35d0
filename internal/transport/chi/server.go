package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	analysisuc "github.com/clauseinsight/clauseinsight/internal/usecase/analysis"
	healthuc "github.com/clauseinsight/clauseinsight/internal/usecase/health"
	ingestuc "github.com/clauseinsight/clauseinsight/internal/usecase/ingest"
	queryuc "github.com/clauseinsight/clauseinsight/internal/usecase/query"
	"github.com/clauseinsight/clauseinsight/internal/version"
)

// maxUploadBytes caps a single contract upload.
const maxUploadBytes = 10 << 20

// Error codes exposed to clients.
const (
	codeBadRequest       = "bad_request"
	codeUnauthorized     = "unauthorized"
	codeUnreadablePDF    = "unreadable_pdf"
	codeNotFound         = "not_found"
	codeIndexEmpty       = "index_empty"
	codeRateLimited      = "rate_limited"
	codeMalformedOutput  = "malformed_llm_output"
	codeGenerationFailed = "generation_failed"
	codeEmbeddingFailed  = "embedding_failed"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the ingestion, query and analysis pipelines over HTTP.
type Server struct {
	ingest        *ingestuc.Service
	query         *queryuc.Service
	analysis      *analysisuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	query *queryuc.Service,
	analysis *analysisuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:   ingest,
		query:    query,
		analysis: analysis,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, codeBadRequest),
		sentinelHandler(domain.ErrUnreadablePDF, http.StatusBadRequest, codeUnreadablePDF),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrEmptyIndex, http.StatusConflict, codeIndexEmpty),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrMalformedLLMOutput, http.StatusBadGateway, codeMalformedOutput),
		sentinelHandler(domain.ErrGenerationFailed, http.StatusBadGateway, codeGenerationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingFailed),
	}
	return s
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Get("/", s.Banner)
	r.Post("/upload", s.Upload)
	r.Post("/query", s.Query)
	r.Post("/analyze", s.AnalyzeClause)
	r.Get("/analyze-document", s.AnalyzeDocument)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Request and response bodies. JSON keys are a frontend contract.

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

type analyzeRequest struct {
	ClauseText string          `json:"clause_text"`
	Metadata   analyzeMetadata `json:"metadata"`
}

type analyzeMetadata struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

type bannerResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type uploadResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ChunkCount int    `json:"chunk_count"`
	Filename   string `json:"filename"`
}

type healthIndex struct {
	Ready     bool `json:"ready"`
	Chunks    int  `json:"chunks"`
	Documents int  `json:"documents"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Index  healthIndex       `json:"index"`
	Checks map[string]string `json:"checks,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// Banner handles GET /.
func (s *Server) Banner(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, bannerResponse{
		Status:  "operational",
		Service: "ClauseInsight API",
		Version: version.Version,
	})
}

// Upload handles POST /upload. The PDF is retained on disk and fully
// indexed before the response is written.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "A multipart \"file\" field is required")
		return
	}
	defer func() { _ = file.Close() }()

	filename := filepath.Base(header.Filename)
	if !strings.HasSuffix(filename, ".pdf") {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Only PDF files are supported")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	count, err := s.ingest.Upload(ctx, filename, file)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setTokenHeaders(w, usage)
	writeJSON(w, http.StatusOK, uploadResponse{
		Status:     "success",
		Message:    "Document '" + filename + "' processed successfully",
		ChunkCount: count,
		Filename:   filename,
	})
}

// Query handles POST /query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	q, err := domain.NewQuery(req.Query, req.TopK)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.query.Query(ctx, q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setTokenHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// AnalyzeClause handles POST /analyze.
func (s *Server) AnalyzeClause(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if strings.TrimSpace(req.ClauseText) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "clause_text is required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.analysis.Analyze(ctx, req.ClauseText, req.Metadata.Source, req.Metadata.Page)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setTokenHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// AnalyzeDocument handles GET /analyze-document.
func (s *Server) AnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.analysis.AnalyzeDocument(ctx)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setTokenHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Index: healthIndex{
			Ready:     report.Index.Ready,
			Chunks:    report.Index.Chunks,
			Documents: report.Index.Documents,
		},
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setTokenHeaders(w http.ResponseWriter, usage *domain.TokenUsage) {
	if usage != nil && usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
		w.Header().Set("X-Generation-Tokens", strconv.Itoa(usage.GenerationTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// sentinelMessages are the client phrasings for expected failures. Wrapped
// detail never reaches the client.
var sentinelMessages = []struct {
	sentinel error
	message  string
}{
	{domain.ErrInvalidArgument, "invalid request"},
	{domain.ErrUnreadablePDF, "The PDF could not be read. It may be corrupt, encrypted, or contain no extractable text."},
	{domain.ErrNotFound, "No document has been indexed yet. Please upload a document first."},
	{domain.ErrEmptyIndex, "No document has been indexed yet. Please upload a document first."},
	{domain.ErrRateLimited, "The language model is rate limited. Please retry shortly."},
	{domain.ErrMalformedLLMOutput, "The language model returned an unusable response."},
	{domain.ErrGenerationFailed, "Explanation generation failed. Please retry."},
	{domain.ErrEmbeddingProviderError, "The embedding provider is unavailable."},
}

// safeDomainMessage returns a client-safe message without exposing internals.
func safeDomainMessage(err error) string {
	for _, m := range sentinelMessages {
		if errors.Is(err, m.sentinel) {
			return m.message
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
