package errors

import (
	"fmt"
)

// Sources used by the transport and client when they first observe a failure
const (
	SourceSSEOpen    = "SSE connection"
	SourceSSEStream  = "SSE stream"
	SourceHandshake  = "SSE handshake"
	SourcePost       = "POST /message"
	SourceCorrelator = "request correlator"
	SourceShutdown   = "connection shutdown"
)

// ConnectionFailed creates an error for a stream that could not be established
func ConnectionFailed(endpoint string, cause error) *Error {
	return Wrap(cause, KindConnection, fmt.Sprintf("failed to open event stream %s", endpoint), SourceSSEOpen)
}

// StreamClosed creates an error for an event stream that ended unexpectedly
func StreamClosed(cause error) *Error {
	if cause == nil {
		return New(KindConnection, "event stream closed by server", SourceSSEStream)
	}
	return Wrap(cause, KindConnection, "event stream interrupted", SourceSSEStream)
}

// PostFailed creates an error for an outbound POST that never got an answer
func PostFailed(method string, cause error) *Error {
	return Wrap(cause, KindNetwork, fmt.Sprintf("failed to send %s", method), SourcePost)
}

// AckRejected creates an error for a POST acknowledgement other than "Accepted"
func AckRejected(method, body string) *Error {
	const maxBody = 256
	if len(body) > maxBody {
		body = body[:maxBody] + "..."
	}
	return Newf(KindProtocol, SourcePost, "server did not accept %s: %q", method, body)
}

// RequestTimeout creates an error for a request whose deadline elapsed
func RequestTimeout(method string, id int64) *Error {
	return Newf(KindTimeout, SourceCorrelator, "request %d (%s) timed out waiting for a response", id, method)
}

// Shutdown creates the error used to fail outstanding work on a deliberate close
func Shutdown() *Error {
	return New(KindConnection, "client closed", SourceShutdown)
}
