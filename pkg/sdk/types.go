package clauseinsight

// Wire types mirror the service responses field for field. JSON keys are the
// same frontend contract the HTTP API serves.

// TokenUsage carries the provider token counts reported by the service in
// response headers. Zero for endpoints that consumed no tokens.
type TokenUsage struct {
	EmbeddingTokens  int
	GenerationTokens int
}

// ServiceInfo is the service banner.
type ServiceInfo struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// UploadResult reports an accepted contract upload.
type UploadResult struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ChunkCount int    `json:"chunk_count"`
	Filename   string `json:"filename"`

	Usage TokenUsage `json:"-"`
}

// ClauseRef is the retrieved clause block of a response.
type ClauseRef struct {
	Title   string `json:"title"`
	Section string `json:"section"`
	Content string `json:"content"`
}

// Explanation is the generated explanation block of a query response.
type Explanation struct {
	Summary          string   `json:"summary"`
	Meaning          string   `json:"meaning"`
	Risks            []string `json:"risks"`
	FavoredParty     string   `json:"favoredParty"`
	KeyTerms         []string `json:"keyTerms"`
	PracticalImpact  string   `json:"practicalImpact"`
	Confidence       int      `json:"confidence"`
	ConfidenceReason string   `json:"confidenceReason"`
}

// Relevance carries the display score and the query terms found in the clause.
type Relevance struct {
	Score        int      `json:"score"`
	MatchedTerms []string `json:"matchedTerms"`
}

// StructuredResponse is the full query answer.
type StructuredResponse struct {
	Clause      ClauseRef   `json:"clause"`
	Explanation Explanation `json:"explanation"`
	Relevance   Relevance   `json:"relevance"`

	Usage TokenUsage `json:"-"`
}

// ClauseAssessment is the analysis block of a single-clause analysis.
type ClauseAssessment struct {
	Summary          string   `json:"summary"`
	Meaning          string   `json:"meaning"`
	FavoredParty     string   `json:"favoredParty"`
	KeyTerms         []string `json:"keyTerms"`
	PracticalImpact  string   `json:"practicalImpact"`
	NegotiationFlags []string `json:"negotiationFlags"`
}

// AnalysisMetadata carries provenance and confidence for an analysis response.
type AnalysisMetadata struct {
	Source           string `json:"source"`
	Page             int    `json:"page"`
	Confidence       int    `json:"confidence"`
	ConfidenceReason string `json:"confidenceReason"`
}

// ClauseAnalysis is the full single-clause analysis answer.
type ClauseAnalysis struct {
	Clause   ClauseRef        `json:"clause"`
	Analysis ClauseAssessment `json:"analysis"`
	Metadata AnalysisMetadata `json:"metadata"`

	Usage TokenUsage `json:"-"`
}

// DocumentInfo identifies the analyzed corpus.
type DocumentInfo struct {
	Title           string `json:"title"`
	TotalClauses    int    `json:"totalClauses"`
	AnalyzedClauses int    `json:"analyzedClauses"`
}

// KeyClause is one high-importance clause in a document analysis.
type KeyClause struct {
	ClauseID        int    `json:"clauseId"`
	Title           string `json:"title"`
	Content         string `json:"content"`
	FullContent     string `json:"fullContent"`
	Quote           string `json:"quote"`
	Section         string `json:"section"`
	Page            int    `json:"page"`
	Category        string `json:"category"`
	ImportanceScore int    `json:"importanceScore"`
}

// PartyBalance separates the balance finding from its basis.
type PartyBalance struct {
	Assessment string `json:"assessment"`
	Basis      string `json:"basis"`
}

// DocumentAssessment is the analysis block of a whole-document analysis.
type DocumentAssessment struct {
	Summary           string       `json:"summary"`
	OverallAssessment string       `json:"overallAssessment"`
	KeyClauses        []KeyClause  `json:"keyClauses"`
	PartyBalance      PartyBalance `json:"partyBalance"`
	KeyTerms          []string     `json:"keyTerms"`
	PracticalImpact   string       `json:"practicalImpact"`
	NegotiationFlags  []string     `json:"negotiationFlags"`
}

// DocumentAnalysisMetadata carries provenance and confidence for a document analysis.
type DocumentAnalysisMetadata struct {
	Source           string `json:"source"`
	TotalPages       int    `json:"totalPages"`
	Confidence       int    `json:"confidence"`
	ConfidenceReason string `json:"confidenceReason"`
}

// DocumentAnalysis is the full whole-document analysis answer.
type DocumentAnalysis struct {
	Document DocumentInfo             `json:"document"`
	Analysis DocumentAssessment       `json:"analysis"`
	Metadata DocumentAnalysisMetadata `json:"metadata"`

	Usage TokenUsage `json:"-"`
}

// IndexStatus is the index snapshot inside a health report.
type IndexStatus struct {
	Ready     bool `json:"ready"`
	Chunks    int  `json:"chunks"`
	Documents int  `json:"documents"`
}

// HealthReport is the service health response. Degraded reports keep the full
// body; check values are "ok" or "error".
type HealthReport struct {
	Status string            `json:"status"`
	Index  IndexStatus       `json:"index"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthy reports whether every component check passed.
func (h HealthReport) Healthy() bool {
	return h.Status == "ok"
}
