package clauseinsight

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

type optionFunc func(*clientConfig)

func (f optionFunc) apply(cfg *clientConfig) { f(cfg) }

type clientConfig struct {
	httpClient *http.Client
	apiKey     string
	userAgent  string
	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithAPIKey sets the bearer token sent with every request. Required when
// the service runs with auth.api_keys configured.
func WithAPIKey(key string) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.apiKey = key
	})
}

// WithHTTPClient replaces the default HTTP client. Use it to tune timeouts
// or plug in a custom transport.
func WithHTTPClient(c *http.Client) Option {
	return optionFunc(func(cfg *clientConfig) {
		if c != nil {
			cfg.httpClient = c
		}
	})
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(cfg *clientConfig) {
		if ua != "" {
			cfg.userAgent = ua
		}
	})
}

// WithLogger enables debug logging of requests through the given slog logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.logger = l
	})
}

// WithPrometheus registers client-side request metrics (count and latency,
// labelled by operation) on the given registerer.
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(cfg *clientConfig) {
		cfg.metricsReg = reg
	})
}
