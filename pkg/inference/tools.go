// Package inference adapts an MCP tool catalog to the tool formats of model
// providers, and model tool calls back into MCP tool calls. It makes no model
// requests itself.
package inference

import (
	"encoding/json"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
	"github.com/sashabaranov/go-openai"

	mcperrors "github.com/ajitpratap0/mcp-sse-client/pkg/errors"
	"github.com/ajitpratap0/mcp-sse-client/pkg/protocol"
	"github.com/ajitpratap0/mcp-sse-client/pkg/utils"
)

// Source is reported on every error raised by this package
const Source = "model integration"

func schemaOf(tool protocol.Tool) (json.RawMessage, error) {
	if strings.TrimSpace(tool.Name) == "" {
		return nil, mcperrors.New(mcperrors.KindIntegration, "tool without a name", Source)
	}
	raw, err := tool.InputSchema.Raw()
	if err != nil {
		return nil, mcperrors.Wrap(err, mcperrors.KindIntegration, "encoding schema of tool "+tool.Name, Source)
	}
	if err := utils.ValidateObject(raw); err != nil {
		return nil, mcperrors.Wrap(err, mcperrors.KindIntegration, "invalid schema for tool "+tool.Name, Source)
	}
	return raw, nil
}

// OpenAITools converts tools into OpenAI function tools. Schemas are forwarded
// verbatim as the function parameters.
func OpenAITools(tools []protocol.Tool) ([]openai.Tool, error) {
	out := make([]openai.Tool, 0, len(tools))
	for _, tool := range tools {
		schema, err := schemaOf(tool)
		if err != nil {
			return nil, err
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  schema,
			},
		})
	}
	return out, nil
}

// AnthropicTools converts tools into Anthropic tool definitions. Schemas are
// forwarded verbatim as the input schema.
func AnthropicTools(tools []protocol.Tool) ([]anthropic.ToolDefinition, error) {
	out := make([]anthropic.ToolDefinition, 0, len(tools))
	for _, tool := range tools {
		schema, err := schemaOf(tool)
		if err != nil {
			return nil, err
		}
		out = append(out, anthropic.ToolDefinition{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}
	return out, nil
}

// FromOpenAIToolCall turns a model's function call into tools/call parameters
func FromOpenAIToolCall(call openai.ToolCall) (protocol.CallToolParams, error) {
	if call.Function.Name == "" {
		return protocol.CallToolParams{}, mcperrors.New(mcperrors.KindIntegration, "tool call without a function name", Source)
	}

	args := strings.TrimSpace(call.Function.Arguments)
	if args == "" {
		return protocol.CallToolParams{Name: call.Function.Name}, nil
	}
	raw, err := utils.MarshalObject(json.RawMessage(args))
	if err != nil {
		return protocol.CallToolParams{}, mcperrors.Wrap(err, mcperrors.KindIntegration, "invalid arguments for "+call.Function.Name, Source)
	}
	return protocol.CallToolParams{Name: call.Function.Name, Arguments: raw}, nil
}

// FromAnthropicToolUse turns a tool_use content block into tools/call parameters
func FromAnthropicToolUse(content anthropic.MessageContent) (protocol.CallToolParams, error) {
	if content.Type != anthropic.MessagesContentTypeToolUse || content.MessageContentToolUse == nil {
		return protocol.CallToolParams{}, mcperrors.Newf(mcperrors.KindIntegration, Source, "expected a tool_use block, got %q", content.Type)
	}

	use := content.MessageContentToolUse
	if use.Name == "" {
		return protocol.CallToolParams{}, mcperrors.New(mcperrors.KindIntegration, "tool_use block without a name", Source)
	}
	if len(use.Input) == 0 {
		return protocol.CallToolParams{Name: use.Name}, nil
	}
	raw, err := utils.MarshalObject(use.Input)
	if err != nil {
		return protocol.CallToolParams{}, mcperrors.Wrap(err, mcperrors.KindIntegration, "invalid input for "+use.Name, Source)
	}
	return protocol.CallToolParams{Name: use.Name, Arguments: raw}, nil
}

// ResultText joins the text content of a tool result
func ResultText(result *protocol.CallToolResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, c := range result.Content {
		if c.Type == "text" && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// OpenAIToolMessage wraps a tool result as the tool message answering callID
func OpenAIToolMessage(callID string, result *protocol.CallToolResult) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role:       openai.ChatMessageRoleTool,
		Content:    ResultText(result),
		ToolCallID: callID,
	}
}

// AnthropicToolResult wraps a tool result as the tool_result block answering toolUseID
func AnthropicToolResult(toolUseID string, result *protocol.CallToolResult) anthropic.MessageContent {
	isError := result != nil && result.IsError
	return anthropic.NewToolResultMessageContent(toolUseID, ResultText(result), isError)
}
