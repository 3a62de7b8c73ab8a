// Package errors provides the classified error type used across the MCP SSE client.
// Every failure the client surfaces carries a Kind and a fixed JSON-RPC style code so
// callers can decide programmatically whether to retry, reconnect or give up.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind classifies a failure
type Kind string

const (
	// KindConnection marks transport level failures of the event stream. Only this
	// kind triggers automatic reconnection.
	KindConnection Kind = "connection"
	// KindProtocol marks responses that violate the expected shape or semantics.
	KindProtocol Kind = "protocol"
	// KindTimeout marks deadlines that elapsed locally.
	KindTimeout Kind = "timeout"
	// KindNetwork marks failures of the underlying HTTP exchange.
	KindNetwork Kind = "network"
	// KindParse marks malformed JSON.
	KindParse Kind = "parse"
	// KindIntegration marks failures attributed to the layer consuming results,
	// such as a model inference integration.
	KindIntegration Kind = "integration"
)

// Kinds lists every kind in a stable order
var Kinds = []Kind{KindConnection, KindProtocol, KindTimeout, KindNetwork, KindParse, KindIntegration}

// Code returns the fixed code associated with the kind
func (k Kind) Code() int {
	switch k {
	case KindTimeout:
		return CodeTimeout
	case KindNetwork:
		return CodeNetwork
	case KindParse:
		return CodeParse
	case KindConnection:
		return CodeConnection
	case KindIntegration:
		return CodeIntegration
	default:
		return CodeProtocol
	}
}

// String implements fmt.Stringer
func (k Kind) String() string {
	return string(k)
}

// Error is a classified failure. It is immutable once created: the With* helpers
// return modified copies.
type Error struct {
	// Kind is the classification of the failure
	Kind Kind
	// Code is the fixed code for Kind
	Code int
	// Message is a human readable description
	Message string
	// Source describes where the failure was observed, e.g. "SSE stream"
	Source string
	// RemoteCode is the code sent by the server for errors that arrived in a
	// JSON-RPC error response, zero otherwise
	RemoteCode int
	// Data is the optional structured payload sent by the server
	Data json.RawMessage
	// Timestamp is when the failure was first observed
	Timestamp time.Time

	cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s error (%s): %s", e.Kind, e.Source, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is a classified error of the same kind. It lets callers
// write errors.Is(err, &mcperrors.Error{Kind: mcperrors.KindTimeout}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// WithSource returns a copy of the error observed at a different source
func (e *Error) WithSource(source string) *Error {
	newErr := *e
	newErr.Source = source
	return &newErr
}

// WithData returns a copy of the error with structured data attached
func (e *Error) WithData(data json.RawMessage) *Error {
	newErr := *e
	newErr.Data = data
	return &newErr
}

// ToJSON returns the error as a JSON-serializable map
func (e *Error) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"kind":    string(e.Kind),
		"code":    e.Code,
		"message": e.Message,
	}

	if e.Source != "" {
		result["source"] = e.Source
	}
	if e.RemoteCode != 0 {
		result["remote_code"] = e.RemoteCode
	}
	if len(e.Data) > 0 {
		result["data"] = e.Data
	}
	if e.cause != nil {
		result["cause"] = e.cause.Error()
	}

	return result
}

// MarshalJSON implements json.Marshaler
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}

// New creates a classified error
func New(kind Kind, message, source string) *Error {
	return &Error{
		Kind:      kind,
		Code:      kind.Code(),
		Message:   message,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// Newf creates a classified error with a formatted message
func Newf(kind Kind, source, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...), source)
}

// Wrap classifies an existing error with an explicit kind
func Wrap(err error, kind Kind, message, source string) *Error {
	e := New(kind, message, source)
	if err != nil {
		e.Message = fmt.Sprintf("%s: %v", message, err)
		e.cause = err
	}
	return e
}

// Remote builds a protocol error from a JSON-RPC error object sent by the server
func Remote(code int, message string, data json.RawMessage, source string) *Error {
	e := New(KindProtocol, message, source)
	e.RemoteCode = code
	e.Data = data
	return e
}

// As extracts a classified error from an error chain
func As(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of a classified error, or the empty kind
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// IsKind checks if an error is classified with the given kind
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
