package clauseinsight

import (
	"context"
	"time"
)

type queryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// QueryOption tunes a single Query call.
type QueryOption func(*queryRequest)

// WithTopK overrides how many chunks are retrieved for the answer.
// Zero keeps the server default.
func WithTopK(k int) QueryOption {
	return func(req *queryRequest) {
		req.TopK = k
	}
}

// Query asks a question about the indexed contract and returns the
// structured answer with its supporting clauses.
func (c *Client) Query(ctx context.Context, query string, opts ...QueryOption) (out StructuredResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("query", start, err) }()

	req := queryRequest{Query: query}
	for _, opt := range opts {
		opt(&req)
	}

	h, err := c.postJSON(ctx, "/query", req, &out)
	if err != nil {
		return out, err
	}
	out.Usage = usageFromHeader(h)
	return out, nil
}
