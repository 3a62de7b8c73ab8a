package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	mcperrors "github.com/ajitpratap0/mcp-sse-client/pkg/errors"
)

// Message is an inbound JSON-RPC message received on the event stream. It is one of
// *Success, *Failure, *Notification or *ServerRequest.
type Message interface {
	isMessage()
}

// Success is a response carrying a result for one of our requests
type Success struct {
	ID     RequestID
	Result json.RawMessage
}

// Failure is a response carrying an error for one of our requests
type Failure struct {
	ID    RequestID
	Error ErrorObject
}

// Notification is an unsolicited message from the server
type Notification struct {
	Method string
	Params json.RawMessage
}

// ServerRequest is a request initiated by the server that expects a reply
type ServerRequest struct {
	ID     json.RawMessage
	Method string
	Params json.RawMessage
}

func (*Success) isMessage()       {}
func (*Failure) isMessage()       {}
func (*Notification) isMessage()  {}
func (*ServerRequest) isMessage() {}

type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	Result  json.RawMessage `json:"result"`
	Error   *ErrorObject    `json:"error"`
}

// DecodeMessage decodes one event payload into its message variant. Payloads that do
// not match exactly one variant fail with a parse error.
func DecodeMessage(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, mcperrors.Wrap(err, mcperrors.KindParse, "malformed message", mcperrors.SourceSSEStream)
	}

	if w.JSONRPC != "" && w.JSONRPC != JSONRPCVersion {
		return nil, parseError("unsupported jsonrpc version %q", w.JSONRPC)
	}

	hasID := len(w.ID) > 0 && !bytes.Equal(w.ID, []byte("null"))
	hasResult := len(w.Result) > 0
	hasError := w.Error != nil

	if w.Method != "" {
		if hasResult || hasError {
			return nil, parseError("message %q carries both a method and a result or error", w.Method)
		}
		if hasID {
			return &ServerRequest{ID: w.ID, Method: w.Method, Params: w.Params}, nil
		}
		return &Notification{Method: w.Method, Params: w.Params}, nil
	}

	if !hasID {
		return nil, parseError("message has neither an id nor a method")
	}

	var id RequestID
	if err := json.Unmarshal(w.ID, &id); err != nil {
		return nil, mcperrors.Wrap(err, mcperrors.KindParse, "malformed message id", mcperrors.SourceSSEStream)
	}

	switch {
	case hasResult && hasError:
		return nil, parseError("response %d carries both a result and an error", id)
	case hasError:
		return &Failure{ID: id, Error: *w.Error}, nil
	case hasResult:
		return &Success{ID: id, Result: w.Result}, nil
	default:
		return nil, parseError("response %d carries neither a result nor an error", id)
	}
}

func parseError(format string, args ...interface{}) error {
	return mcperrors.New(mcperrors.KindParse, fmt.Sprintf(format, args...), mcperrors.SourceSSEStream)
}
