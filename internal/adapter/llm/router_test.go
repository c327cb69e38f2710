package llm

import (
	"context"
	"errors"
	"testing"

	"model8cli/internal/domain"
)

// fakeProvider records the requests it receives and answers from a queue.
type fakeProvider struct {
	name     string
	requests []domain.ChatRequest
	response *domain.ChatResponse
	err      error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Chat(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.response
	resp.Model = req.Model
	return &resp, nil
}

func userMessage(content string) []domain.Message {
	return []domain.Message{{Role: domain.RoleUser, Content: content}}
}

func okResponse() *domain.ChatResponse {
	return &domain.ChatResponse{
		ID:      "resp-1",
		Choices: []domain.Choice{{Message: domain.Message{Role: domain.RoleAssistant, Content: "hi"}}},
	}
}

func newTestRouter(hosted, groq, local *fakeProvider) *Router {
	var h, g, l domain.ChatProvider
	if hosted != nil {
		h = hosted
	}
	if groq != nil {
		g = groq
	}
	if local != nil {
		l = local
	}
	return NewRouter(h, g, l, "moonshotai/kimi-k2:free", nil)
}

func TestRouterEmptyMessages(t *testing.T) {
	router := newTestRouter(&fakeProvider{name: "hosted", response: okResponse()}, nil, nil)
	_, err := router.Complete(context.Background(), domain.ChatRequest{Model: "m"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRouterDefaultModelGoesHosted(t *testing.T) {
	hosted := &fakeProvider{name: "hosted", response: okResponse()}
	router := newTestRouter(hosted, &fakeProvider{name: "groq", response: okResponse()}, nil)

	resp, err := router.Complete(context.Background(), domain.ChatRequest{Messages: userMessage("hi")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hosted.requests) != 1 {
		t.Fatalf("expected hosted to receive the request")
	}
	if hosted.requests[0].Model != "moonshotai/kimi-k2:free" {
		t.Errorf("empty model should resolve to the default, got %q", hosted.requests[0].Model)
	}
	if resp.ID != "resp-1" {
		t.Errorf("unexpected response id: %s", resp.ID)
	}
}

func TestRouterOllamaPrefixStripped(t *testing.T) {
	local := &fakeProvider{name: "ollama", response: okResponse()}
	router := newTestRouter(&fakeProvider{name: "hosted", response: okResponse()}, nil, local)

	resp, err := router.Complete(context.Background(), domain.ChatRequest{
		Model:    "ollama/llama3.2",
		Messages: userMessage("hi"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(local.requests) != 1 {
		t.Fatal("expected the local provider to receive the request")
	}
	if local.requests[0].Model != "llama3.2" {
		t.Errorf("prefix should be stripped before dispatch, got %q", local.requests[0].Model)
	}
	if resp.Model != "ollama/llama3.2" {
		t.Errorf("caller should see the original model id, got %q", resp.Model)
	}
}

func TestRouterGroqByPrefixAndCatalog(t *testing.T) {
	groq := &fakeProvider{name: "groq", response: okResponse()}
	router := newTestRouter(&fakeProvider{name: "hosted", response: okResponse()}, groq, nil)

	if _, err := router.Complete(context.Background(), domain.ChatRequest{
		Model:    "groq/some-model",
		Messages: userMessage("hi"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if groq.requests[0].Model != "some-model" {
		t.Errorf("groq/ prefix should be stripped, got %q", groq.requests[0].Model)
	}

	// Bare catalog membership also routes to Groq.
	if _, err := router.Complete(context.Background(), domain.ChatRequest{
		Model:    "llama-3.3-70b-versatile",
		Messages: userMessage("hi"),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groq.requests) != 2 {
		t.Fatalf("catalog model should route to groq, saw %d requests", len(groq.requests))
	}
	if groq.requests[1].Model != "llama-3.3-70b-versatile" {
		t.Errorf("bare catalog id must not be rewritten, got %q", groq.requests[1].Model)
	}
}

func TestRouterMissingProvider(t *testing.T) {
	router := newTestRouter(&fakeProvider{name: "hosted", response: okResponse()}, nil, nil)

	_, err := router.Complete(context.Background(), domain.ChatRequest{
		Model:    "ollama/llama3.2",
		Messages: userMessage("hi"),
	})
	if !errors.Is(err, domain.ErrNoProvider) {
		t.Fatalf("expected ErrNoProvider, got %v", err)
	}
}

func TestRouterStreamRejectsLocalTools(t *testing.T) {
	local := &fakeProvider{name: "ollama", response: okResponse()}
	router := newTestRouter(nil, nil, local)

	_, err := router.Stream(context.Background(), domain.ChatRequest{
		Model:    "ollama/llama3.2",
		Messages: userMessage("hi"),
		Tools:    []domain.ToolDefinition{{Name: "read_file"}},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for streaming with tools on local route, got %v", err)
	}
}

func TestRouterStreamNonStreamingProvider(t *testing.T) {
	hosted := &fakeProvider{name: "hosted", response: okResponse()}
	router := newTestRouter(hosted, nil, nil)

	_, err := router.Stream(context.Background(), domain.ChatRequest{
		Model:    "any-model",
		Messages: userMessage("hi"),
	})
	if !errors.Is(err, domain.ErrRequestFailed) {
		t.Fatalf("expected ErrRequestFailed for non-streaming provider, got %v", err)
	}
}

func TestRouterPropagatesProviderError(t *testing.T) {
	hosted := &fakeProvider{name: "hosted", err: domain.NewDomainError("llm.chat", domain.ErrRateLimit, "slow down")}
	router := newTestRouter(hosted, nil, nil)

	_, err := router.Complete(context.Background(), domain.ChatRequest{
		Model:    "any-model",
		Messages: userMessage("hi"),
	})
	if !errors.Is(err, domain.ErrRateLimit) {
		t.Fatalf("expected ErrRateLimit, got %v", err)
	}
}
