// Package mcp is the root of a Model Context Protocol client for servers that speak
// the HTTP+SSE transport (protocol version 2024-11-05).
//
// A server exposes an event stream at {base}/sse. The first event on that stream,
// "endpoint", names the session; requests are then POSTed as JSON-RPC 2.0 messages
// to {base}/message?sessionId=<id> and their responses arrive as "message" events
// on the stream.
//
// # Overview
//
// The module consists of several sub-packages:
//
//   - pkg/client: Session negotiation, request correlation, failure handling and reconnection
//   - pkg/transport: The HTTP+SSE binding (stream reader and message poster)
//   - pkg/protocol: JSON-RPC envelopes and the MCP messages the client exchanges
//   - pkg/errors: Classified failures (timeout, network, connection, protocol, parse, integration)
//   - pkg/pagination: Cursor following for paginated list results
//   - pkg/inference: Conversion between MCP tools and model provider tool formats
//   - pkg/config: Configuration from files, MCP_ environment variables and flags
//   - pkg/logging, pkg/observability: Structured logs, Prometheus metrics and OpenTelemetry spans
//
// # Creating a Client
//
//	import (
//	    "context"
//
//	    "github.com/ajitpratap0/mcp-sse-client/pkg/client"
//	    "github.com/ajitpratap0/mcp-sse-client/pkg/transport"
//	)
//
//	func main() {
//	    t, err := transport.NewSSETransport("http://localhost:3001")
//	    if err != nil {
//	        // Handle error
//	    }
//
//	    c := client.New(t, client.WithClientInfo("MyClient", "1.0.0"))
//	    defer c.Close()
//
//	    // The first call negotiates the session
//	    tools, err := c.ListTools(context.Background())
//	    if err != nil {
//	        // Handle error
//	    }
//	    _ = tools
//	}
//
// # Examples
//
// examples/sse-client is a command line client that lists and calls tools and
// shows how the configuration, logging, metrics and tracing packages are wired
// together.
package mcp
