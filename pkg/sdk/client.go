package clauseinsight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clauseinsight/clauseinsight/internal/version"
)

// defaultTimeout bounds a single request. Generation-backed endpoints can
// take tens of seconds on large contracts, so the default is generous.
const defaultTimeout = 2 * time.Minute

// Client is a typed HTTP client for the ClauseInsight API.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	obs        *observer
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("clauseinsight: base URL is required")
	}

	cfg := clientConfig{
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  "clauseinsight-go/" + version.Version,
	}
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.apiKey,
		userAgent:  cfg.userAgent,
		httpClient: cfg.httpClient,
		obs:        obs,
	}, nil
}

// Info returns the service banner from GET /.
func (c *Client) Info(ctx context.Context) (out ServiceInfo, err error) {
	start := time.Now()
	defer func() { c.obs.observe("info", start, err) }()

	_, err = c.do(ctx, http.MethodGet, "/", "", nil, &out)
	return out, err
}

// postJSON marshals in, POSTs it to path and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) (http.Header, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("clauseinsight: encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(body), out)
}

// do sends one request and decodes a successful JSON response into out.
// Responses with status >= 400 come back as *APIError.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("clauseinsight: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clauseinsight: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return resp.Header, parseAPIError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("clauseinsight: decode response: %w", err)
		}
	}
	return resp.Header, nil
}

// parseAPIError reads the service error envelope. A response that is not
// the JSON envelope (a proxy 502 page, say) keeps the raw body as message.
func parseAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Code != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       body.Error.Code,
			Message:    body.Error.Message,
		}
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// usageFromHeader extracts token accounting from the response headers.
func usageFromHeader(h http.Header) TokenUsage {
	var u TokenUsage
	if v, err := strconv.Atoi(h.Get("X-Embedding-Tokens")); err == nil {
		u.EmbeddingTokens = v
	}
	if v, err := strconv.Atoi(h.Get("X-Generation-Tokens")); err == nil {
		u.GenerationTokens = v
	}
	return u
}
