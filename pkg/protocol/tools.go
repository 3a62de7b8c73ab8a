package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Tool describes one callable capability exposed by a server
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema InputSchema `json:"inputSchema"`
}

// InputSchema is the JSON Schema describing a tool's parameters. The decoded fields
// are a convenience view; the original document is kept and re-emitted verbatim by
// MarshalJSON so that schemas reach model providers unchanged.
type InputSchema struct {
	Type                 string                     `json:"type"`
	Properties           map[string]json.RawMessage `json:"properties,omitempty"`
	Required             []string                   `json:"required,omitempty"`
	AdditionalProperties json.RawMessage            `json:"additionalProperties,omitempty"`
	Schema               string                     `json:"$schema,omitempty"`

	raw json.RawMessage
}

type inputSchemaFields InputSchema

// UnmarshalJSON decodes the schema and keeps a copy of the raw document
func (s *InputSchema) UnmarshalJSON(data []byte) error {
	var fields inputSchemaFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("invalid input schema: %w", err)
	}
	*s = InputSchema(fields)
	s.raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	return nil
}

// MarshalJSON emits the original document when the schema was decoded from the wire
func (s InputSchema) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	return json.Marshal(inputSchemaFields(s))
}

// Raw returns the schema document as received, or its encoding when it was built locally
func (s InputSchema) Raw() (json.RawMessage, error) {
	return s.MarshalJSON()
}

// PaginatedParams carries the opaque cursor of a list request
type PaginatedParams struct {
	Cursor string `json:"cursor,omitempty"`
}

// ListToolsResult is the result of tools/list
type ListToolsResult struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CallToolParams are the parameters of tools/call
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Content is one item of a tool result
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// CallToolResult is the result of tools/call
type CallToolResult struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}
