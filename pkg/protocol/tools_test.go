package protocol

import (
	"encoding/json"
	"testing"
)

func TestInputSchemaRoundTripIsVerbatim(t *testing.T) {
	// key order and unknown members must survive
	schema := `{"type":"object","properties":{"q":{"type":"string","minLength":1}},"required":["q"],"x-extra":true}`
	payload := `{"tools":[{"name":"search","description":"Search the index","inputSchema":` + schema + `}]}`

	var result ListToolsResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		t.Fatalf("Failed to unmarshal ListToolsResult: %v", err)
	}

	if len(result.Tools) != 1 {
		t.Fatalf("Expected 1 tool, got %d", len(result.Tools))
	}

	tool := result.Tools[0]
	if tool.Name != "search" {
		t.Errorf("Expected Name to be 'search', got %q", tool.Name)
	}
	if tool.InputSchema.Type != "object" {
		t.Errorf("Expected schema type 'object', got %q", tool.InputSchema.Type)
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "q" {
		t.Errorf("Expected required [q], got %v", tool.InputSchema.Required)
	}
	if _, ok := tool.InputSchema.Properties["q"]; !ok {
		t.Error("Expected property 'q'")
	}

	raw, err := tool.InputSchema.Raw()
	if err != nil {
		t.Fatalf("Raw failed: %v", err)
	}
	if string(raw) != schema {
		t.Errorf("Expected schema to be forwarded verbatim\n got: %s\nwant: %s", raw, schema)
	}
}

func TestInputSchemaBuiltLocally(t *testing.T) {
	s := InputSchema{Type: "object", Required: []string{"a"}}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded["type"] != "object" {
		t.Errorf("Expected type 'object', got %v", decoded["type"])
	}
	if _, ok := decoded["properties"]; ok {
		t.Error("Expected empty properties to be omitted")
	}
}

func TestInputSchemaRejectsNonObject(t *testing.T) {
	var tool Tool
	err := json.Unmarshal([]byte(`{"name":"x","inputSchema":"not a schema"}`), &tool)
	if err == nil {
		t.Fatal("Expected an error for a string schema")
	}
}

func TestCallToolResult(t *testing.T) {
	var result CallToolResult
	data := `{"content":[{"type":"text","text":"hello"}],"isError":true}`
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		t.Fatalf("Failed to unmarshal CallToolResult: %v", err)
	}

	if !result.IsError {
		t.Error("Expected IsError to be true")
	}
	if len(result.Content) != 1 || result.Content[0].Text != "hello" {
		t.Errorf("Unexpected content %+v", result.Content)
	}
}
