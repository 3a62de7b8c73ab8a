// Package protocol defines the wire types exchanged with an MCP server over the
// HTTP+SSE transport.
//
// # Package Organization
//
//   - jsonrpc.go: outbound JSON-RPC 2.0 requests and replies, request identifiers
//   - message.go: the closed set of inbound messages and the strict decoder
//   - mcp.go: method names, protocol version and initialize types
//   - tools.go: tool catalog and tool call types
//
// # Inbound Messages
//
// Every payload delivered on the event stream decodes into exactly one of:
//
//   - *Success: a response with a result for one of our requests
//   - *Failure: a response with an error for one of our requests
//   - *Notification: a server message without an id
//   - *ServerRequest: a server request that expects a reply
//
// Payloads matching none of these, or more than one, are rejected by DecodeMessage
// with a parse error:
//
//	msg, err := protocol.DecodeMessage(data)
//	if err != nil {
//		return err
//	}
//	switch m := msg.(type) {
//	case *protocol.Success:
//		resolve(int64(m.ID), m.Result)
//	case *protocol.Failure:
//		reject(int64(m.ID), m.Error)
//	}
//
// # Tool Schemas
//
// InputSchema keeps the document it was decoded from and re-encodes it unchanged, so
// schemas can be handed to other systems exactly as the server published them.
package protocol
