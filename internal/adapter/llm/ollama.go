package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"model8cli/internal/domain"
	"model8cli/internal/infra/config"
	"model8cli/internal/infra/tracer"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// OllamaProvider talks to a local Ollama server over its native API.
// Models served here have no native tool-calling support, so requests
// carrying tools go through the emulation layer: the tool catalog is
// rendered into the prompt and the reply is parsed for the JSON envelope.
type OllamaProvider struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewOllamaProvider builds a provider for a local Ollama server.
func NewOllamaProvider(cfg config.ProviderConfig, logger *slog.Logger) *OllamaProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaProvider{
		baseURL: baseURL,
		client:  NewHTTPClient(cfg),
		logger:  logger,
	}
}

// Name implements domain.ChatProvider.
func (p *OllamaProvider) Name() string { return "ollama" }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaChatResponse struct {
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
}

type ollamaTagsResponse struct {
	Models []OllamaModelInfo `json:"models"`
}

// OllamaModelInfo describes a model installed on the local server.
type OllamaModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
	ModifiedAt string `json:"modified_at"`
}

// Chat implements domain.ChatProvider. Requests that carry tool
// definitions take the emulated path.
func (p *OllamaProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.ollama.chat",
		tracer.StringAttr("model", req.Model),
		tracer.IntAttr("tools", len(req.Tools)),
	)
	defer span.End()

	if len(req.Tools) > 0 {
		resp, err := p.chatEmulated(ctx, req)
		if err != nil {
			tracer.RecordError(span, err)
			return nil, err
		}
		tracer.SetOK(span)
		return resp, nil
	}

	wire, err := p.post(ctx, req.Model, toOllamaMessages(req.Messages), req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	resp := p.toDomainResponse(req.Model, wire, domain.Message{
		Role:    domain.RoleAssistant,
		Content: wire.Message.Content,
	})
	setUsageAttrs(span, resp.Usage)
	tracer.SetOK(span)
	logChatCompleted(p.logger, "ollama", resp)
	return resp, nil
}

// chatEmulated performs a single non-streaming round trip with the tool
// catalog folded into the prompt, then recovers structured tool calls from
// the reply. When calls are recovered the message content is cleared so the
// conversation loop treats it as a pure tool-call turn.
func (p *OllamaProvider) chatEmulated(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	prompt := BuildToolPrompt(req.Messages, req.Tools)
	wire, err := p.post(ctx, req.Model, []ollamaMessage{{Role: "user", Content: prompt}}, req)
	if err != nil {
		return nil, err
	}

	content := wire.Message.Content
	msg := domain.Message{Role: domain.RoleAssistant, Content: content}
	if calls := ParseToolCalls(content); len(calls) > 0 {
		msg.Content = ""
		msg.ToolCalls = calls
		p.logger.Debug("recovered emulated tool calls", "model", req.Model, "count", len(calls))
	}

	resp := p.toDomainResponse(req.Model, wire, msg)
	logChatCompleted(p.logger, "ollama", resp)
	return resp, nil
}

func (p *OllamaProvider) post(ctx context.Context, model string, messages []ollamaMessage, req domain.ChatRequest) (*ollamaChatResponse, error) {
	body, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		return nil, domain.NewDomainError("llm.ollama", domain.ErrInvalidInput, err.Error())
	}

	respBody, err := doJSONRequest(ctx, p.client, p.baseURL+"/api/chat", body, nil)
	if err != nil {
		return nil, err
	}

	var wire ollamaChatResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return nil, domain.NewDomainError("llm.ollama", domain.ErrRequestFailed, "malformed response body")
	}
	return &wire, nil
}

func (p *OllamaProvider) toDomainResponse(model string, wire *ollamaChatResponse, msg domain.Message) *domain.ChatResponse {
	finishReason := "stop"
	if len(msg.ToolCalls) > 0 {
		finishReason = "tool_calls"
	}
	return &domain.ChatResponse{
		ID:    "ollama-" + model,
		Model: model,
		Choices: []domain.Choice{{
			Index:        0,
			Message:      msg,
			FinishReason: finishReason,
		}},
		Usage: domain.Usage{
			PromptTokens:     wire.PromptEvalCount,
			CompletionTokens: wire.EvalCount,
			TotalTokens:      wire.PromptEvalCount + wire.EvalCount,
		},
		Created: time.Now().Unix(),
	}
}

// ChatStream implements domain.StreamingChatProvider over Ollama's
// newline-delimited JSON stream. Tool emulation is non-streaming; callers
// must not pass tools here.
func (p *OllamaProvider) ChatStream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamDelta, error) {
	if len(req.Tools) > 0 {
		return nil, domain.NewDomainError("llm.ollama", domain.ErrInvalidInput, "tool calling is not supported on streaming requests")
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    req.Model,
		Messages: toOllamaMessages(req.Messages),
		Stream:   true,
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	})
	if err != nil {
		return nil, domain.NewDomainError("llm.ollama", domain.ErrInvalidInput, err.Error())
	}

	resp, err := doStreamRequest(ctx, p.client, p.baseURL+"/api/chat", body, nil)
	if err != nil {
		return nil, err
	}

	ch := make(chan domain.StreamDelta, 16)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var chunk ollamaChatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				continue
			}

			delta := domain.StreamDelta{Content: chunk.Message.Content, Done: chunk.Done}
			if chunk.Done {
				delta.Usage = &domain.Usage{
					PromptTokens:     chunk.PromptEvalCount,
					CompletionTokens: chunk.EvalCount,
					TotalTokens:      chunk.PromptEvalCount + chunk.EvalCount,
				}
			}

			select {
			case ch <- delta:
			case <-ctx.Done():
				return
			}
			if chunk.Done {
				return
			}
		}
	}()
	return ch, nil
}

// ListModels returns the models installed on the local server. Errors are
// logged and an empty list returned so callers can degrade gracefully.
func (p *OllamaProvider) ListModels(ctx context.Context) []OllamaModelInfo {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return nil
	}
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("failed to list local models", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Error("failed to list local models", "status", resp.StatusCode)
		return nil
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		p.logger.Error("failed to decode model list", "error", err)
		return nil
	}
	return tags.Models
}

// IsAvailable reports whether the local server is reachable.
func (p *OllamaProvider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Pull downloads a model onto the local server. Downloads can take minutes,
// so the request carries its own generous timeout.
func (p *OllamaProvider) Pull(ctx context.Context, model string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	body, _ := json.Marshal(map[string]string{"name": model})
	if _, err := doJSONRequest(ctx, p.client, p.baseURL+"/api/pull", body, nil); err != nil {
		return domain.NewDomainError("llm.ollama.pull", domain.ErrRequestFailed, err.Error())
	}
	return nil
}

func toOllamaMessages(messages []domain.Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, ollamaMessage{Role: msg.Role, Content: msg.Content})
	}
	return out
}
