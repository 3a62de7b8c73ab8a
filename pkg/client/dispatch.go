package client

import (
	"context"
	"encoding/json"

	mcperrors "github.com/ajitpratap0/mcp-sse-client/pkg/errors"
	"github.com/ajitpratap0/mcp-sse-client/pkg/logging"
	"github.com/ajitpratap0/mcp-sse-client/pkg/protocol"
	"github.com/ajitpratap0/mcp-sse-client/pkg/transport"
)

func (c *Client) handleEndpoint(s *session, data string) {
	sessionID, err := transport.ParseEndpoint(c.transport.BaseURL(), data)

	c.mu.Lock()
	if c.sess != s || s.id != "" {
		c.mu.Unlock()
		c.logger.Debug("Ignoring endpoint event", logging.String("data", data))
		return
	}
	if err == nil {
		s.id = sessionID
	}
	c.mu.Unlock()

	select {
	case s.endpoint <- endpointResult{sessionID: sessionID, err: err}:
	default:
	}
}

func (c *Client) handleClose(s *session, err error) {
	if err == nil {
		return
	}
	c.fail(s.gen, err, mcperrors.SourceSSEStream)
}

// handleMessage demultiplexes one stream message. Malformed messages are dropped.
func (c *Client) handleMessage(s *session, data []byte) {
	msg, err := protocol.DecodeMessage(data)
	if err != nil {
		c.logger.WithError(err).Warn("Dropping malformed message", logging.Int("size", len(data)))
		return
	}

	switch m := msg.(type) {
	case *protocol.Success:
		c.resolve(s, int64(m.ID), m.Result, nil)
	case *protocol.Failure:
		c.resolve(s, int64(m.ID), nil, mcperrors.Remote(m.Error.Code, m.Error.Message, m.Error.Data, mcperrors.SourceCorrelator))
	case *protocol.Notification:
		c.notify(m)
	case *protocol.ServerRequest:
		go c.answer(s, m)
	}
}

func (c *Client) resolve(s *session, id int64, result json.RawMessage, err error) {
	call := c.pending.take(id, s.gen)
	if call == nil {
		c.logger.Debug("Ignoring response without a pending request", logging.Int64(logging.KeyRequestID, id))
		return
	}
	c.metrics.SetPending(c.pending.len())

	call.log.Debug("Response received", logging.Duration("elapsed", c.clock.Since(call.started)))
	call.complete(result, err)
}

func (c *Client) notify(n *protocol.Notification) {
	c.logger.Debug("Notification received", logging.String("method", n.Method))
	if c.onNotification == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Notification handler panicked",
				logging.String("method", n.Method),
				logging.Any("panic", r),
			)
		}
	}()
	c.onNotification(n.Method, n.Params)
}

// answer replies to a request initiated by the server. Only ping is supported.
func (c *Client) answer(s *session, req *protocol.ServerRequest) {
	var resp *protocol.Response
	switch req.Method {
	case protocol.MethodPing:
		var err error
		if resp, err = protocol.NewResponse(req.ID, struct{}{}); err != nil {
			return
		}
	default:
		resp = protocol.NewErrorResponse(req.ID, mcperrors.CodeMethodNotFound, "method not found: "+req.Method)
	}

	body, err := json.Marshal(resp)
	if err != nil {
		c.logger.WithError(err).Error("Failed to encode reply", logging.String("method", req.Method))
		return
	}

	c.mu.Lock()
	current := c.sess == s
	sessionID := s.id
	c.mu.Unlock()
	if !current || sessionID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(logging.ContextWithSessionID(context.Background(), sessionID), c.requestTimeout)
	defer cancel()
	if _, err := c.transport.Post(ctx, sessionID, body); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to answer server request", logging.String("method", req.Method))
	}
}
