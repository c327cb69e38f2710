package llm

import (
	"context"
	"log/slog"
	"strings"

	"model8cli/internal/domain"
	"model8cli/internal/infra/tracer"
)

type routeKind int

const (
	routeHosted routeKind = iota
	routeGroq
	routeLocal
)

func (k routeKind) String() string {
	switch k {
	case routeGroq:
		return "groq"
	case routeLocal:
		return "local"
	default:
		return "hosted"
	}
}

// Router resolves a model id to the provider that serves it and dispatches
// the request. Resolution is by explicit prefix first ("ollama/", "groq/",
// both stripped before dispatch), then by Groq catalog membership, and
// finally the hosted default.
type Router struct {
	hosted       domain.ChatProvider
	groq         domain.ChatProvider
	local        domain.ChatProvider
	defaultModel string
	logger       *slog.Logger
}

// NewRouter wires the provider set behind a single ChatCompleter. Any
// provider slot may be nil; routing to a nil slot yields ErrNoProvider.
func NewRouter(hosted, groq, local domain.ChatProvider, defaultModel string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		hosted:       hosted,
		groq:         groq,
		local:        local,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// resolve returns the route kind and the provider-facing model id.
func (r *Router) resolve(model string) (routeKind, string) {
	if model == "" {
		model = r.defaultModel
	}
	if rest, ok := strings.CutPrefix(model, "ollama/"); ok {
		return routeLocal, rest
	}
	if rest, ok := strings.CutPrefix(model, "groq/"); ok {
		return routeGroq, rest
	}
	if IsGroqModel(model) {
		return routeGroq, model
	}
	return routeHosted, model
}

func (r *Router) provider(kind routeKind) domain.ChatProvider {
	switch kind {
	case routeGroq:
		return r.groq
	case routeLocal:
		return r.local
	default:
		return r.hosted
	}
}

// Complete implements domain.ChatCompleter.
func (r *Router) Complete(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, domain.NewDomainError("llm.route", domain.ErrInvalidInput, "messages cannot be empty")
	}

	kind, model := r.resolve(req.Model)
	provider := r.provider(kind)
	if provider == nil {
		return nil, domain.NewDomainError("llm.route", domain.ErrNoProvider, "no provider configured for route "+kind.String())
	}

	ctx, span := tracer.StartSpan(ctx, "llm.route",
		tracer.StringAttr("route", kind.String()),
		tracer.StringAttr("model", model),
	)
	defer span.End()

	originalModel := req.Model
	req.Model = model
	resp, err := provider.Chat(ctx, req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	// Callers see the id they asked for, prefix included.
	if originalModel != "" {
		resp.Model = originalModel
	}
	tracer.SetOK(span)
	return resp, nil
}

// Stream routes a streaming request. The local route rejects requests
// carrying tools: tool-call emulation needs the full reply to recover the
// JSON envelope, so it only works on the non-streaming path.
func (r *Router) Stream(ctx context.Context, req domain.ChatRequest) (<-chan domain.StreamDelta, error) {
	if len(req.Messages) == 0 {
		return nil, domain.NewDomainError("llm.route", domain.ErrInvalidInput, "messages cannot be empty")
	}

	kind, model := r.resolve(req.Model)
	provider := r.provider(kind)
	if provider == nil {
		return nil, domain.NewDomainError("llm.route", domain.ErrNoProvider, "no provider configured for route "+kind.String())
	}

	if kind == routeLocal && len(req.Tools) > 0 {
		return nil, domain.NewDomainError("llm.route", domain.ErrInvalidInput, "local models cannot stream tool calls")
	}

	streamer, ok := provider.(domain.StreamingChatProvider)
	if !ok {
		return nil, domain.NewDomainError("llm.route", domain.ErrRequestFailed, "provider "+provider.Name()+" does not support streaming")
	}

	req.Model = model
	return streamer.ChatStream(ctx, req)
}
