package client

import (
	"context"
	"encoding/json"

	mcperrors "github.com/ajitpratap0/mcp-sse-client/pkg/errors"
	"github.com/ajitpratap0/mcp-sse-client/pkg/pagination"
	"github.com/ajitpratap0/mcp-sse-client/pkg/protocol"
	"github.com/ajitpratap0/mcp-sse-client/pkg/utils"
)

// ListTools returns every tool the server exposes, following nextCursor until the
// last page
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	var tools []protocol.Tool

	collector := pagination.NewCollector()
	for collector.HasMore {
		var params interface{}
		if next := collector.NextParams(); next != nil {
			params = next
		}

		raw, err := c.Call(ctx, protocol.MethodToolsList, params)
		if err != nil {
			return nil, err
		}

		var page protocol.ListToolsResult
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, mcperrors.Wrap(err, mcperrors.KindParse, "malformed tools/list result", mcperrors.SourceCorrelator)
		}
		tools = append(tools, page.Tools...)

		if err := collector.Update(page.NextCursor); err != nil {
			return nil, mcperrors.Wrap(err, mcperrors.KindProtocol, "listing tools", mcperrors.SourceCorrelator)
		}
	}

	if tools == nil {
		tools = []protocol.Tool{}
	}
	return tools, nil
}

// CallTool invokes a tool. args must encode to a JSON object; nil sends no arguments.
func (c *Client) CallTool(ctx context.Context, name string, args interface{}) (*protocol.CallToolResult, error) {
	encoded, err := utils.MarshalObject(args)
	if err != nil {
		return nil, mcperrors.Wrap(err, mcperrors.KindIntegration, "arguments for "+name, "tool integration")
	}

	raw, err := c.Call(ctx, protocol.MethodToolsCall, protocol.CallToolParams{Name: name, Arguments: encoded})
	if err != nil {
		return nil, err
	}

	var result protocol.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, mcperrors.Wrap(err, mcperrors.KindParse, "malformed tools/call result", mcperrors.SourceCorrelator)
	}
	return &result, nil
}

// Ping checks that the server answers on the current session
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Call(ctx, protocol.MethodPing, nil)
	return err
}
