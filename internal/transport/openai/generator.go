package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/clauseinsight/clauseinsight/internal/domain"
	"github.com/clauseinsight/clauseinsight/internal/metrics"
)

// Prompts are fixed: the same query and context always produce the same request.
const (
	explanationSystemPrompt = `You are a legal document assistant. Answer the user's question using only the provided contract context. Respond with a JSON object of the form {"summary": string, "meaning": string, "risks": [string], "favoredParty": string, "keyTerms": [string]}. "meaning" is the complete answer with details, not just a title or heading; "summary" condenses it in one or two sentences; "risks" lists concrete risks the context creates for the parties (empty array if none); "favoredParty" names the advantaged party, or "N/A"; "keyTerms" lists the defined or significant terms of the context. If the context does not contain the information, say so in "meaning".`

	impactSystemPrompt = `You are a legal document assistant. Describe the practical impact of the provided contract text for the parties. Respond with a JSON object of the form {"impact": string}. Base the description only on the provided text.`
)

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 900
	impactContextChars = 1000
	impactMaxTokens    = 200
)

// Generator produces structured explanations via the OpenAI-compatible chat
// completions API in JSON mode.
type Generator struct {
	client          *openai.Client
	model           string
	user            string
	provider        string
	timeout         time.Duration
	maxContextChars int
	temperature     float32
	maxTokens       int
	limiter         *rate.Limiter
	logger          *zap.Logger
}

// GeneratorConfig holds the LLM provider settings.
type GeneratorConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	User              string
	Provider          string
	Timeout           time.Duration
	MaxContextChars   int
	Temperature       float32
	MaxTokens         int
	RequestsPerMinute int
	Logger            *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion provider.
// RequestsPerMinute of zero disables client-side rate limiting.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}

	return &Generator{
		client:          openai.NewClientWithConfig(clientCfg),
		model:           cfg.Model,
		user:            cfg.User,
		provider:        cfg.Provider,
		timeout:         cfg.Timeout,
		maxContextChars: cfg.MaxContextChars,
		temperature:     temperature,
		maxTokens:       maxTokens,
		limiter:         limiter,
		logger:          logger,
	}
}

// explanationPayload is the wire shape of an explanation completion. Pointer
// fields distinguish a missing key from a present-but-empty value.
type explanationPayload struct {
	Summary      *string   `json:"summary"`
	Meaning      *string   `json:"meaning"`
	Risks        *[]string `json:"risks"`
	FavoredParty *string   `json:"favoredParty"`
	KeyTerms     *[]string `json:"keyTerms"`
}

// GenerateExplanation implements domain.AnswerGenerator. The reply must carry
// all five fields; anything less is domain.ErrMalformedLLMOutput.
func (g *Generator) GenerateExplanation(ctx context.Context, query, contextBlock string) (domain.GeneratedExplanation, error) {
	if g.maxContextChars > 0 {
		contextBlock = truncateRunes(contextBlock, g.maxContextChars)
	}

	userMsg := fmt.Sprintf("Question: %s\n\nContext:\n%s", query, contextBlock)

	content, usage, err := g.chat(ctx, explanationSystemPrompt, userMsg, g.maxTokens)
	if err != nil {
		return domain.GeneratedExplanation{}, err
	}

	parsed, err := parseExplanation(content)
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "malformed").Inc()
		g.logger.Warn("llm returned unusable explanation",
			zap.String("model", g.model),
			zap.Int("content_len", len(content)),
			zap.Error(err),
		)
		return domain.GeneratedExplanation{}, err
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()

	parsed.PromptTokens = usage.PromptTokens
	parsed.CompletionTokens = usage.CompletionTokens
	return parsed, nil
}

// GenerateImpact implements domain.AnswerGenerator.
func (g *Generator) GenerateImpact(ctx context.Context, contextBlock string) (domain.GeneratedImpact, error) {
	userMsg := fmt.Sprintf("Context:\n%s", truncateRunes(contextBlock, impactContextChars))

	content, usage, err := g.chat(ctx, impactSystemPrompt, userMsg, impactMaxTokens)
	if err != nil {
		return domain.GeneratedImpact{}, err
	}

	var parsed struct {
		Impact *string `json:"impact"`
	}
	if jerr := json.Unmarshal([]byte(content), &parsed); jerr != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "malformed").Inc()
		return domain.GeneratedImpact{}, domain.NewMalformedOutput("impact", "response is not a JSON object")
	}
	if parsed.Impact == nil || strings.TrimSpace(*parsed.Impact) == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "malformed").Inc()
		return domain.GeneratedImpact{}, domain.NewMalformedOutput("impact", "missing or empty")
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()

	return domain.GeneratedImpact{
		Impact:           strings.TrimSpace(*parsed.Impact),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
	}, nil
}

// chat runs one JSON-mode chat completion and returns the raw message content.
// Request-level failures are already counted and wrapped here.
func (g *Generator) chat(ctx context.Context, systemPrompt, userMsg string, maxTokens int) (string, openai.Usage, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", openai.Usage{}, fmt.Errorf("rate limiter wait: %v: %w", err, domain.ErrGenerationFailed)
		}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: g.temperature,
		MaxTokens:   maxTokens,
		User:        g.user,
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return "", openai.Usage{}, parseAPIError("generation", err, domain.ErrGenerationFailed)
	}

	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return "", openai.Usage{}, fmt.Errorf("empty completion response: %w", domain.ErrGenerationFailed)
	}

	return resp.Choices[0].Message.Content, resp.Usage, nil
}

// parseExplanation validates the five-field reply. A JSON null field counts
// as missing.
func parseExplanation(content string) (domain.GeneratedExplanation, error) {
	var p explanationPayload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return domain.GeneratedExplanation{}, domain.NewMalformedOutput("explanation", "response is not a JSON object")
	}

	required := []struct {
		name    string
		present bool
	}{
		{"summary", p.Summary != nil},
		{"meaning", p.Meaning != nil},
		{"risks", p.Risks != nil},
		{"favoredParty", p.FavoredParty != nil},
		{"keyTerms", p.KeyTerms != nil},
	}
	for _, f := range required {
		if !f.present {
			return domain.GeneratedExplanation{}, domain.NewMalformedOutput(f.name, "missing")
		}
	}

	summary := strings.TrimSpace(*p.Summary)
	meaning := strings.TrimSpace(*p.Meaning)
	favored := strings.TrimSpace(*p.FavoredParty)
	if summary == "" {
		return domain.GeneratedExplanation{}, domain.NewMalformedOutput("summary", "empty")
	}
	if meaning == "" {
		return domain.GeneratedExplanation{}, domain.NewMalformedOutput("meaning", "empty")
	}
	if favored == "" {
		return domain.GeneratedExplanation{}, domain.NewMalformedOutput("favoredParty", "empty")
	}

	return domain.GeneratedExplanation{
		Summary:      summary,
		Meaning:      meaning,
		Risks:        compactStrings(*p.Risks),
		FavoredParty: favored,
		KeyTerms:     compactStrings(*p.KeyTerms),
	}, nil
}

// compactStrings trims entries and drops blanks, keeping order.
func compactStrings(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := 0
	for i := range s {
		if runes == n {
			return s[:i]
		}
		runes++
	}
	return s
}
