package clauseinsight

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Health reports service health. A degraded service answers with HTTP 503
// but still writes a full report, so both 200 and 503 decode into the
// report rather than an error.
func (c *Client) Health(ctx context.Context) (out HealthReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return out, fmt.Errorf("clauseinsight: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("clauseinsight: GET /health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return out, parseAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("clauseinsight: decode response: %w", err)
	}
	return out, nil
}
