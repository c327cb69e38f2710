package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"model8cli/internal/domain"
)

// Tool-call emulation for local models without native tool support. The
// conversation, tool catalog and a response-format instruction are folded
// into a single prompt; the model's reply is scanned for the JSON envelope
// and recovered into structured tool calls. A reply that does not contain a
// parseable envelope is treated as plain text.

const emulationHeader = `You are an AI assistant with access to tools. When you need to use a tool, respond with a JSON object in this exact format:

{
  "tool_calls": [
    {
      "id": "call_<unique_id>",
      "type": "function",
      "function": {
        "name": "<tool_name>",
        "arguments": "<json_string_of_arguments>"
      }
    }
  ]
}`

const emulationFooter = `If you need to use a tool, respond ONLY with the JSON tool call format above. If you don't need to use a tool, respond normally with your answer.`

// BuildToolPrompt renders the conversation and tool catalog into a single
// prompt suitable for models without native tool calling. System messages
// are hoisted to the front of the conversation transcript.
func BuildToolPrompt(messages []domain.Message, tools []domain.ToolDefinition) string {
	var conversation strings.Builder
	var system string
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleUser:
			conversation.WriteString("Human: " + msg.Content + "\n")
		case domain.RoleAssistant:
			conversation.WriteString("Assistant: " + msg.Content + "\n")
		case domain.RoleSystem:
			system = "System: " + msg.Content + "\n"
		}
	}

	var catalog strings.Builder
	catalog.WriteString("Available tools:\n")
	for _, tool := range tools {
		desc := tool.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Fprintf(&catalog, "\n%s: %s\n", tool.Name, desc)

		props, _ := tool.Parameters["properties"].(map[string]any)
		if len(props) == 0 {
			continue
		}
		required := map[string]bool{}
		if reqList, ok := tool.Parameters["required"].([]string); ok {
			for _, name := range reqList {
				required[name] = true
			}
		} else if reqList, ok := tool.Parameters["required"].([]any); ok {
			for _, name := range reqList {
				if s, ok := name.(string); ok {
					required[s] = true
				}
			}
		}

		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)

		catalog.WriteString("Parameters:\n")
		for _, name := range names {
			info, _ := props[name].(map[string]any)
			paramType, _ := info["type"].(string)
			if paramType == "" {
				paramType = "string"
			}
			paramDesc, _ := info["description"].(string)
			marker := " (optional)"
			if required[name] {
				marker = " (required)"
			}
			fmt.Fprintf(&catalog, "  - %s (%s)%s: %s\n", name, paramType, marker, paramDesc)
		}
	}

	return emulationHeader + "\n\n" + catalog.String() + "\n" + system + conversation.String() + "\n" + emulationFooter
}

var toolCallEnvelope = regexp.MustCompile(`(?s)\{.*"tool_calls".*\}`)

type emulatedEnvelope struct {
	ToolCalls []emulatedCall `json:"tool_calls"`
}

type emulatedCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function *emulatedFuncRef `json:"function"`
}

type emulatedFuncRef struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ParseToolCalls extracts emulated tool calls from a model reply. Entries
// without a function object are dropped; a missing id is replaced with a
// positional "call_N". Arguments may be either a JSON string or an inline
// object; objects are re-encoded to the wire's string form. Any parse
// failure yields nil so the reply falls back to plain content.
func ParseToolCalls(content string) []domain.ToolCall {
	match := toolCallEnvelope.FindString(content)
	if match == "" {
		return nil
	}

	var envelope emulatedEnvelope
	if err := json.Unmarshal([]byte(match), &envelope); err != nil {
		return nil
	}

	var calls []domain.ToolCall
	for _, call := range envelope.ToolCalls {
		if call.Function == nil {
			continue
		}

		args := "{}"
		if len(call.Function.Arguments) > 0 {
			var asString string
			if err := json.Unmarshal(call.Function.Arguments, &asString); err == nil {
				args = asString
			} else {
				args = string(call.Function.Arguments)
			}
		}

		id := call.ID
		if id == "" {
			id = fmt.Sprintf("call_%d", len(calls))
		}

		calls = append(calls, domain.ToolCall{
			ID:   id,
			Type: "function",
			Function: domain.FunctionCall{
				Name:      call.Function.Name,
				Arguments: args,
			},
		})
	}
	return calls
}
