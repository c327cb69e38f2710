package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model8cli/internal/domain"
)

// scriptedCompleter returns queued responses in order.
type scriptedCompleter struct {
	responses []*domain.ChatResponse
	requests  []domain.ChatRequest
}

func (s *scriptedCompleter) Complete(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	s.requests = append(s.requests, req)
	if len(s.responses) == 0 {
		return nil, errors.New("no scripted response left")
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

type recordingExecutor struct {
	calls   []string
	args    []map[string]any
	results map[string]*domain.ToolResult
}

func (r *recordingExecutor) Get(name string) (domain.Tool, bool)    { return nil, false }
func (r *recordingExecutor) Definitions() []domain.ToolDefinition   { return []domain.ToolDefinition{{Name: "echo"}} }
func (r *recordingExecutor) Execute(ctx context.Context, name string, args map[string]any) *domain.ToolResult {
	r.calls = append(r.calls, name)
	r.args = append(r.args, args)
	if res, ok := r.results[name]; ok {
		return res
	}
	return &domain.ToolResult{Success: true, Result: "echoed"}
}

func textResponse(content string) *domain.ChatResponse {
	return &domain.ChatResponse{
		Choices: []domain.Choice{{
			Message:      domain.Message{Role: domain.RoleAssistant, Content: content},
			FinishReason: "stop",
		}},
	}
}

func toolCallResponse(name, args string) *domain.ChatResponse {
	return &domain.ChatResponse{
		Choices: []domain.Choice{{
			Message: domain.Message{
				Role: domain.RoleAssistant,
				ToolCalls: []domain.ToolCall{{
					ID:       "call_1",
					Type:     "function",
					Function: domain.FunctionCall{Name: name, Arguments: args},
				}},
			},
			FinishReason: "tool_calls",
		}},
	}
}

func TestAgentPlainAnswer(t *testing.T) {
	completer := &scriptedCompleter{responses: []*domain.ChatResponse{textResponse("hello there")}}
	agent := NewAgent(AgentDeps{Completer: completer, Tools: &recordingExecutor{}})

	session := NewSession("be brief")
	reply, err := agent.HandleMessage(context.Background(), session, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)

	// system + user + assistant
	require.Len(t, session.Messages, 3)
	assert.Equal(t, domain.RoleSystem, session.Messages[0].Role)
	assert.Equal(t, domain.RoleUser, session.Messages[1].Role)
	assert.Equal(t, domain.RoleAssistant, session.Messages[2].Role)

	require.Len(t, completer.requests, 1)
	assert.Equal(t, []domain.ToolDefinition{{Name: "echo"}}, completer.requests[0].Tools)
}

func TestAgentToolCallLoop(t *testing.T) {
	completer := &scriptedCompleter{responses: []*domain.ChatResponse{
		toolCallResponse("echo", `{"text": "ping"}`),
		textResponse("the tool said: echoed"),
	}}
	tools := &recordingExecutor{}
	agent := NewAgent(AgentDeps{Completer: completer, Tools: tools})

	session := NewSession("")
	reply, err := agent.HandleMessage(context.Background(), session, "run echo")
	require.NoError(t, err)
	assert.Equal(t, "the tool said: echoed", reply)

	require.Equal(t, []string{"echo"}, tools.calls)
	assert.Equal(t, map[string]any{"text": "ping"}, tools.args[0])

	// user, assistant(tool_calls), tool result, assistant
	require.Len(t, session.Messages, 4)
	toolMsg := session.Messages[2]
	assert.Equal(t, domain.RoleTool, toolMsg.Role)
	assert.Equal(t, "echo", toolMsg.Name)
	assert.Equal(t, "call_1", toolMsg.ToolCallID)
	assert.Equal(t, "echoed", toolMsg.Content)
}

func TestAgentToolFailureRelayedToModel(t *testing.T) {
	completer := &scriptedCompleter{responses: []*domain.ChatResponse{
		toolCallResponse("echo", `{}`),
		textResponse("sorry, that failed"),
	}}
	tools := &recordingExecutor{results: map[string]*domain.ToolResult{
		"echo": {Success: false, Error: "parameter validation failed"},
	}}
	agent := NewAgent(AgentDeps{Completer: completer, Tools: tools})

	session := NewSession("")
	reply, err := agent.HandleMessage(context.Background(), session, "run echo")
	require.NoError(t, err)
	assert.Equal(t, "sorry, that failed", reply)

	toolMsg := session.Messages[2]
	assert.Contains(t, toolMsg.Content, "parameter validation failed")
}

func TestAgentMaxIterations(t *testing.T) {
	// The model keeps asking for tools forever.
	var responses []*domain.ChatResponse
	for i := 0; i < 5; i++ {
		responses = append(responses, toolCallResponse("echo", `{}`))
	}
	completer := &scriptedCompleter{responses: responses}
	agent := NewAgent(AgentDeps{Completer: completer, Tools: &recordingExecutor{}, MaxIterations: 3})

	session := NewSession("")
	_, err := agent.HandleMessage(context.Background(), session, "loop forever")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMaxIterations)
	assert.Len(t, completer.requests, 3)
}

type denyingApprover struct{ asked []domain.ToolCall }

func (d *denyingApprover) NeedsApproval(call domain.ToolCall) bool { return true }
func (d *denyingApprover) RequestApproval(ctx context.Context, call domain.ToolCall) (bool, error) {
	d.asked = append(d.asked, call)
	return false, nil
}

func TestAgentApprovalDenied(t *testing.T) {
	completer := &scriptedCompleter{responses: []*domain.ChatResponse{
		toolCallResponse("echo", `{}`),
		textResponse("understood"),
	}}
	tools := &recordingExecutor{}
	approver := &denyingApprover{}
	agent := NewAgent(AgentDeps{Completer: completer, Tools: tools, Approver: approver})

	session := NewSession("")
	_, err := agent.HandleMessage(context.Background(), session, "run echo")
	require.NoError(t, err)

	assert.Len(t, approver.asked, 1)
	assert.Empty(t, tools.calls, "denied calls must not execute")
	assert.Contains(t, session.Messages[2].Content, "denied")
}
