package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalObject encodes v as a JSON object. Raw messages and byte slices are checked
// and passed through untouched. A nil v yields nil.
func MarshalObject(v interface{}) (json.RawMessage, error) {
	var data []byte
	switch val := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		data = val
	case []byte:
		data = val
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal object: %w", err)
		}
	}

	if err := ValidateObject(data); err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}

// ValidateObject reports an error unless data is a single well-formed JSON object
func ValidateObject(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("expected a JSON object")
	}
	if !json.Valid(trimmed) {
		return fmt.Errorf("invalid JSON object")
	}
	return nil
}
