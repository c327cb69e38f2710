package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"model8cli/internal/domain"
	"model8cli/internal/infra/config"
	"model8cli/internal/infra/tracer"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// refererTransport injects the attribution headers OpenRouter uses for app
// rankings on every outgoing request.
type refererTransport struct {
	base http.RoundTripper
}

func (t *refererTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("HTTP-Referer", "https://github.com/model8cli/model8cli")
	req.Header.Set("X-Title", "model8cli")
	return t.base.RoundTrip(req)
}

// HostedProvider talks to an OpenAI-compatible hosted endpoint. It is the
// transport shared by OpenRouter (the default route) and Groq, which differ
// only in base URL, credentials and model catalog.
type HostedProvider struct {
	name       string
	baseURL    string
	apiKey     string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// HostedOptions configures a HostedProvider.
type HostedOptions struct {
	Name       string
	BaseURL    string
	APIKey     string
	MaxRetries int
	BaseDelay  time.Duration
	// RatePerMinute caps outgoing requests; zero disables client-side
	// rate limiting.
	RatePerMinute int
	HTTP          config.ProviderConfig
	Logger        *slog.Logger
}

// NewHostedProvider builds a provider for an OpenAI-compatible API.
func NewHostedProvider(opts HostedOptions) *HostedProvider {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := NewHTTPClient(opts.HTTP)
	client.Transport = &refererTransport{base: client.Transport}

	var limiter *rate.Limiter
	if opts.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RatePerMinute)), opts.RatePerMinute)
	}

	return &HostedProvider{
		name:       opts.Name,
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		client:     client,
		limiter:    limiter,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Name implements domain.ChatProvider.
func (p *HostedProvider) Name() string { return p.name }

// Chat sends a chat completion request, retrying transient failures with
// exponential backoff. Authentication and unknown-model errors are never
// retried; rate limits are retried until attempts run out and then surface
// as domain.ErrRateLimit.
func (p *HostedProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.hosted.chat",
		tracer.StringAttr("provider", p.name),
		tracer.StringAttr("model", req.Model),
	)
	defer span.End()

	body, err := json.Marshal(toWireRequest(req))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, domain.NewDomainError("llm.chat", domain.ErrInvalidInput, err.Error())
	}

	respBody, err := p.postWithRetry(ctx, p.baseURL+"/chat/completions", body)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var wire wireResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		tracer.RecordError(span, err)
		return nil, domain.NewDomainError("llm.chat", domain.ErrRequestFailed, "malformed response body")
	}

	result := fromWireResponse(wire)
	setUsageAttrs(span, result.Usage)
	tracer.SetOK(span)
	logChatCompleted(p.logger, p.name, result)
	return result, nil
}

// ChatStream implements domain.StreamingChatProvider.
func (p *HostedProvider) ChatStream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamDelta, error) {
	req.Stream = true
	body, err := json.Marshal(toWireRequest(req))
	if err != nil {
		return nil, domain.NewDomainError("llm.stream", domain.ErrInvalidInput, err.Error())
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, domain.NewDomainError("llm.stream", domain.ErrRequestFailed, err.Error())
		}
	}

	resp, err := doStreamRequest(ctx, p.client, p.baseURL+"/chat/completions", body, p.headers())
	if err != nil {
		return nil, err
	}
	return parseSSEStream(ctx, resp.Body, parseStreamChunk), nil
}

func (p *HostedProvider) headers() map[string]string {
	h := map[string]string{}
	if p.apiKey != "" {
		h["Authorization"] = "Bearer " + p.apiKey
	}
	return h
}

func (p *HostedProvider) postWithRetry(ctx context.Context, url string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, domain.NewDomainError("llm.chat", domain.ErrRequestFailed, err.Error())
			}
		}

		respBody, err := doJSONRequest(ctx, p.client, url, body, p.headers())
		if err == nil {
			return respBody, nil
		}
		lastErr = err

		if !domain.IsRetryableError(err) {
			return nil, err
		}
		if attempt >= p.maxRetries {
			break
		}

		delay := p.baseDelay * (1 << attempt)
		p.logger.Warn("request failed, retrying",
			"provider", p.name,
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, domain.NewDomainError("llm.chat", domain.ErrRequestFailed, ctx.Err().Error())
		}
	}
	if errors.Is(lastErr, domain.ErrRateLimit) {
		return nil, lastErr
	}
	return nil, domain.NewDomainError("llm.chat", domain.ErrRequestFailed,
		fmt.Sprintf("request failed after %d attempts: %v", p.maxRetries+1, lastErr))
}
