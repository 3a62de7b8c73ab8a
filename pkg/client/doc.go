// Package client implements an MCP session over the HTTP+SSE transport.
//
// A Client owns one session at a time. The first call negotiates it: the event
// stream is opened, the server's endpoint event supplies the session id, and an
// initialize request completes the handshake. Requests are then posted to the
// message endpoint and matched to their responses on the stream by id, in any
// order.
//
// # Creating a Client
//
//	t, err := transport.NewSSETransport("http://localhost:3000")
//	if err != nil {
//	    return err
//	}
//	c := client.New(t,
//	    client.WithClientInfo("notes-app", "1.2.0"),
//	    client.WithLogger(logger),
//	)
//	defer c.Close()
//
//	tools, err := c.ListTools(ctx)
//
// # Failures
//
// Every error returned by the client is a *errors.Error carrying a Kind and a fixed
// code. Only connection failures are recovered automatically: the session is
// discarded, pending requests fail with the same error, and a new negotiation is
// scheduled after 1s, 2s and 4s. Later failures are left to the caller, whose next
// call negotiates a fresh session.
//
// Install WithErrorHandler to observe failures as they happen.
package client
