// Package transport implements the HTTP+SSE transport of the Model Context Protocol.
//
// A client opens GET {base}/sse and keeps it open. The server first sends an
// "endpoint" event whose data carries the session id, then pushes every JSON-RPC
// message as a "message" event. Outbound messages are sent as
// POST {base}/message?sessionId=<id>, which the server acknowledges with the literal
// body "Accepted"; the actual response arrives later on the stream.
//
// # Usage
//
//	t, err := transport.NewSSETransport("http://localhost:3000",
//		transport.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//
//	stream, err := t.Open(ctx, transport.Handlers{
//		OnEndpoint: func(data string) { ... },
//		OnMessage:  func(data []byte) { ... },
//		OnClose:    func(err error) { ... },
//	})
//
// # Failures
//
// Errors returned or delivered by this package are classified (see pkg/errors):
//
//   - the stream cannot be opened, or ends without Stream.Close: connection
//   - the POST exchange fails: network
//   - the POST is answered with anything but "Accepted": protocol
//
// The transport never retries. Reconnection policy belongs to the session layer.
package transport
