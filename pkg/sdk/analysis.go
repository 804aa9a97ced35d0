package clauseinsight

import (
	"context"
	"net/http"
	"time"
)

type analyzeRequest struct {
	ClauseText string          `json:"clause_text"`
	Metadata   analyzeMetadata `json:"metadata"`
}

type analyzeMetadata struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// AnalyzeOption attaches optional metadata to an Analyze call.
type AnalyzeOption func(*analyzeRequest)

// WithSource records which document and page the clause was taken from.
// The service echoes it back in the analysis metadata.
func WithSource(source string, page int) AnalyzeOption {
	return func(req *analyzeRequest) {
		req.Metadata.Source = source
		req.Metadata.Page = page
	}
}

// Analyze runs a risk assessment of a single clause text.
func (c *Client) Analyze(ctx context.Context, clauseText string, opts ...AnalyzeOption) (out ClauseAnalysis, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analyze.clause", start, err) }()

	req := analyzeRequest{ClauseText: clauseText}
	for _, opt := range opts {
		opt(&req)
	}

	h, err := c.postJSON(ctx, "/analyze", req, &out)
	if err != nil {
		return out, err
	}
	out.Usage = usageFromHeader(h)
	return out, nil
}

// AnalyzeDocument assesses the whole indexed contract and returns its key
// clauses, party balance and overall risk picture.
func (c *Client) AnalyzeDocument(ctx context.Context) (out DocumentAnalysis, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analyze.document", start, err) }()

	h, err := c.do(ctx, http.MethodGet, "/analyze-document", "", nil, &out)
	if err != nil {
		return out, err
	}
	out.Usage = usageFromHeader(h)
	return out, nil
}
