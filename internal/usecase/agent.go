package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"model8cli/internal/domain"
	"model8cli/internal/infra/tracer"
)

const defaultMaxIterations = 10

// AgentDeps holds injected dependencies for the agent.
type AgentDeps struct {
	Completer     domain.ChatCompleter
	Tools         domain.ToolExecutor
	Approver      domain.ToolApprover // optional, nil = no approval gating
	Logger        *slog.Logger
	Model         string
	SystemPrompt  string
	MaxIterations int
	Temperature   float64
	MaxTokens     int
}

// Agent orchestrates the conversation loop: send the history with the tool
// catalog, execute any tool calls the model emits, feed the results back,
// and repeat until the model answers in plain text.
type Agent struct {
	deps AgentDeps
}

// NewAgent creates an agent with the given dependencies.
func NewAgent(deps AgentDeps) *Agent {
	if deps.MaxIterations <= 0 {
		deps.MaxIterations = defaultMaxIterations
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Agent{deps: deps}
}

// Session is an in-memory conversation history.
type Session struct {
	Messages []domain.Message
}

// NewSession starts a conversation seeded with the system prompt.
func NewSession(systemPrompt string) *Session {
	s := &Session{}
	if systemPrompt != "" {
		s.Messages = append(s.Messages, domain.Message{
			Role:    domain.RoleSystem,
			Content: systemPrompt,
		})
	}
	return s
}

// HandleMessage processes one user message through the agent loop and
// returns the model's final text reply. The session history is extended
// with every intermediate turn.
func (a *Agent) HandleMessage(ctx context.Context, session *Session, userMsg string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "agent.handle_message")
	defer span.End()

	session.Messages = append(session.Messages, domain.Message{
		Role:    domain.RoleUser,
		Content: userMsg,
	})

	for iteration := 0; iteration < a.deps.MaxIterations; iteration++ {
		resp, err := a.deps.Completer.Complete(ctx, domain.ChatRequest{
			Model:       a.deps.Model,
			Messages:    session.Messages,
			Tools:       a.deps.Tools.Definitions(),
			Temperature: a.deps.Temperature,
			MaxTokens:   a.deps.MaxTokens,
		})
		if err != nil {
			tracer.RecordError(span, err)
			return "", err
		}
		if len(resp.Choices) == 0 {
			err := domain.NewDomainError("agent", domain.ErrRequestFailed, "response contained no choices")
			tracer.RecordError(span, err)
			return "", err
		}

		msg := resp.Choices[0].Message
		session.Messages = append(session.Messages, msg)

		if len(msg.ToolCalls) == 0 {
			tracer.SetOK(span)
			return msg.Content, nil
		}

		a.deps.Logger.Debug("model requested tool calls", "count", len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			session.Messages = append(session.Messages, a.executeTool(ctx, call))
		}
	}

	err := domain.NewDomainError("agent", domain.ErrMaxIterations,
		fmt.Sprintf("no final answer after %d iterations", a.deps.MaxIterations))
	tracer.RecordError(span, err)
	return "", err
}

// executeTool runs a single tool call and returns the result as a tool
// message tied back to the call id. Failures become message content so the
// model can react to them.
func (a *Agent) executeTool(ctx context.Context, call domain.ToolCall) domain.Message {
	ctx, span := tracer.StartSpan(ctx, "agent.execute_tool",
		tracer.StringAttr("tool", call.Function.Name),
	)
	defer span.End()

	toolMsg := func(content string) domain.Message {
		return domain.Message{
			Role:       domain.RoleTool,
			Name:       call.Function.Name,
			Content:    content,
			ToolCallID: call.ID,
		}
	}

	if a.deps.Approver != nil && a.deps.Approver.NeedsApproval(call) {
		approved, err := a.deps.Approver.RequestApproval(ctx, call)
		if err != nil {
			tracer.RecordError(span, err)
			return toolMsg("approval failed: " + err.Error())
		}
		if !approved {
			return toolMsg("tool call denied by user")
		}
	}

	args := map[string]any{}
	if call.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			tracer.RecordError(span, err)
			return toolMsg("invalid tool arguments: " + err.Error())
		}
	}

	result := a.deps.Tools.Execute(ctx, call.Function.Name, args)
	if !result.Success {
		tracer.RecordError(span, fmt.Errorf("%s", result.Error))
		return toolMsg("error: " + result.Error)
	}

	tracer.SetOK(span)
	return toolMsg(renderResult(result.Result))
}

// renderResult flattens a tool result payload into message content.
func renderResult(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "ok"
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
