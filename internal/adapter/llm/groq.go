package llm

import (
	"log/slog"
	"sort"

	"model8cli/internal/infra/config"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// GroqModel describes a model hosted on Groq along with its published
// rate limits.
type GroqModel struct {
	ContextLength   int
	RequestsPerMin  int
	RequestsPerDay  int
	TokensPerMinute int
	TokensPerDay    int
}

// groqModels is the catalog of models served by Groq. Model ids that appear
// here (with or without a "groq/" prefix) are routed to the Groq provider.
var groqModels = map[string]GroqModel{
	"allam-2-7b":                     {ContextLength: 4096, RequestsPerMin: 30, RequestsPerDay: 7000, TokensPerMinute: 6000, TokensPerDay: 500000},
	"compound-beta":                  {ContextLength: 128000, RequestsPerMin: 15, RequestsPerDay: 200, TokensPerMinute: 70000, TokensPerDay: -1},
	"compound-beta-mini":             {ContextLength: 128000, RequestsPerMin: 15, RequestsPerDay: 200, TokensPerMinute: 70000, TokensPerDay: -1},
	"deepseek-r1-distill-llama-70b":  {ContextLength: 128000, RequestsPerMin: 30, RequestsPerDay: 1000, TokensPerMinute: 6000, TokensPerDay: -1},
	"gemma2-9b-it":                   {ContextLength: 8192, RequestsPerMin: 30, RequestsPerDay: 14400, TokensPerMinute: 15000, TokensPerDay: 500000},
	"llama-3.1-8b-instant":           {ContextLength: 128000, RequestsPerMin: 30, RequestsPerDay: 14400, TokensPerMinute: 6000, TokensPerDay: 500000},
	"llama-3.3-70b-versatile":        {ContextLength: 128000, RequestsPerMin: 30, RequestsPerDay: 1000, TokensPerMinute: 12000, TokensPerDay: 100000},
	"llama3-70b-8192":                {ContextLength: 8192, RequestsPerMin: 30, RequestsPerDay: 14400, TokensPerMinute: 6000, TokensPerDay: 500000},
	"llama3-8b-8192":                 {ContextLength: 8192, RequestsPerMin: 30, RequestsPerDay: 14400, TokensPerMinute: 6000, TokensPerDay: 500000},
	"meta-llama/llama-4-maverick-17b-128e-instruct": {ContextLength: 131072, RequestsPerMin: 30, RequestsPerDay: 1000, TokensPerMinute: 6000, TokensPerDay: -1},
	"meta-llama/llama-4-scout-17b-16e-instruct":     {ContextLength: 131072, RequestsPerMin: 30, RequestsPerDay: 1000, TokensPerMinute: 30000, TokensPerDay: -1},
	"meta-llama/llama-guard-4-12b":                  {ContextLength: 131072, RequestsPerMin: 30, RequestsPerDay: 14400, TokensPerMinute: 15000, TokensPerDay: 500000},
	"meta-llama/llama-prompt-guard-2-22m":           {ContextLength: 512, RequestsPerMin: 30, RequestsPerDay: 14400, TokensPerMinute: 15000, TokensPerDay: 500000},
	"meta-llama/llama-prompt-guard-2-86m":           {ContextLength: 512, RequestsPerMin: 30, RequestsPerDay: 14400, TokensPerMinute: 15000, TokensPerDay: 500000},
	"mistral-saba-24b":                              {ContextLength: 32768, RequestsPerMin: 30, RequestsPerDay: 1000, TokensPerMinute: 6000, TokensPerDay: 500000},
	"moonshotai/kimi-k2-instruct":                   {ContextLength: 131072, RequestsPerMin: 60, RequestsPerDay: 1000, TokensPerMinute: 10000, TokensPerDay: 300000},
	"qwen/qwen3-32b":                                {ContextLength: 131072, RequestsPerMin: 60, RequestsPerDay: 1000, TokensPerMinute: 6000, TokensPerDay: 500000},
}

// IsGroqModel reports whether id names a model in the Groq catalog.
func IsGroqModel(id string) bool {
	_, ok := groqModels[id]
	return ok
}

// GroqModelIDs returns the catalog's model ids in sorted order.
func GroqModelIDs() []string {
	ids := make([]string, 0, len(groqModels))
	for id := range groqModels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewGroqProvider builds a provider for Groq's OpenAI-compatible API.
func NewGroqProvider(cfg config.LLMConfig, logger *slog.Logger) *HostedProvider {
	baseURL := cfg.Groq.BaseURL
	if baseURL == "" {
		baseURL = groqBaseURL
	}
	return NewHostedProvider(HostedOptions{
		Name:          "groq",
		BaseURL:       baseURL,
		APIKey:        cfg.Groq.APIKey,
		MaxRetries:    cfg.MaxRetries,
		BaseDelay:     cfg.BaseRetryDelay,
		RatePerMinute: cfg.RateLimitPerMinute,
		HTTP:          cfg.Groq,
		Logger:        logger,
	})
}

// NewOpenRouterProvider builds the default hosted provider.
func NewOpenRouterProvider(cfg config.LLMConfig, logger *slog.Logger) *HostedProvider {
	return NewHostedProvider(HostedOptions{
		Name:          "openrouter",
		BaseURL:       cfg.OpenRouter.BaseURL,
		APIKey:        cfg.OpenRouter.APIKey,
		MaxRetries:    cfg.MaxRetries,
		BaseDelay:     cfg.BaseRetryDelay,
		RatePerMinute: cfg.RateLimitPerMinute,
		HTTP:          cfg.OpenRouter,
		Logger:        logger,
	})
}
