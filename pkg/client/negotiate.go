package client

import (
	"context"
	"encoding/json"

	mcperrors "github.com/ajitpratap0/mcp-sse-client/pkg/errors"
	"github.com/ajitpratap0/mcp-sse-client/pkg/logging"
	"github.com/ajitpratap0/mcp-sse-client/pkg/observability"
	"github.com/ajitpratap0/mcp-sse-client/pkg/protocol"
	"github.com/ajitpratap0/mcp-sse-client/pkg/transport"
)

// flightKey coalesces concurrent negotiations into one handshake
const flightKey = "negotiate"

// EnsureConnection returns once a session is ready. A ready session is reused
// without any network traffic; otherwise a new one is negotiated, shared by every
// caller waiting at the same time. ctx only bounds this caller's wait.
func (c *Client) EnsureConnection(ctx context.Context) error {
	_, err := c.ready(ctx)
	return err
}

func (c *Client) ready(ctx context.Context) (*session, error) {
	c.mu.Lock()
	if s := c.sess; s != nil && s.ready {
		c.mu.Unlock()
		return s, nil
	}
	c.mu.Unlock()

	ch := c.flight.DoChan(flightKey, func() (interface{}, error) {
		return c.negotiate(nil)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*session), nil
	case <-ctx.Done():
		return nil, mcperrors.Wrap(ctx.Err(), mcperrors.KindTimeout, "waiting for a session", mcperrors.SourceHandshake)
	}
}

// ensure negotiates on behalf of the reconnection timer. guard is evaluated under
// c.mu before a new session is created.
func (c *Client) ensure(guard func() bool) error {
	res := <-c.flight.DoChan(flightKey, func() (interface{}, error) {
		return c.negotiate(guard)
	})
	return res.Err
}

func (c *Client) negotiate(guard func() bool) (*session, error) {
	c.mu.Lock()
	if guard != nil && !guard() {
		c.mu.Unlock()
		return nil, mcperrors.New(mcperrors.KindConnection, "reconnection cancelled", mcperrors.SourceShutdown)
	}
	if s := c.sess; s != nil && s.ready {
		c.mu.Unlock()
		return s, nil
	}

	staleErr := mcperrors.New(mcperrors.KindConnection, "stale session discarded", mcperrors.SourceHandshake)
	stale, drained := c.detachLocked(staleErr)
	c.gen++
	c.attempts++
	attempt := c.attempts
	s := &session{
		gen:      c.gen,
		endpoint: make(chan endpointResult, 1),
		ended:    make(chan struct{}),
	}
	c.sess = s
	c.mu.Unlock()

	c.release(stale, drained, staleErr)

	log := c.logger.WithFields(
		logging.String("operation", "negotiate"),
		logging.Int("attempt", attempt),
	)
	log.Info("Connecting", logging.String("url", c.transport.BaseURL().String()))

	if err := c.handshake(s, log); err != nil {
		c.metrics.RecordConnectionAttempt(observability.StatusError)
		return nil, err
	}
	c.metrics.RecordConnectionAttempt(observability.StatusSuccess)
	return s, nil
}

func (c *Client) handshake(s *session, log logging.Logger) error {
	handlers := transport.Handlers{
		OnEndpoint: func(data string) { c.handleEndpoint(s, data) },
		OnMessage:  func(data []byte) { c.handleMessage(s, data) },
		OnClose:    func(err error) { c.handleClose(s, err) },
	}

	// Dialing is bounded by wall-clock time; the protocol deadlines below use c.clock.
	openCtx, cancel := context.WithTimeout(context.Background(), c.handshakeTimeout)
	stream, err := c.transport.Open(openCtx, handlers)
	cancel()
	if err != nil {
		return c.abort(s, err)
	}

	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		stream.Close()
		return retiredErr(s)
	}
	s.stream = stream
	c.mu.Unlock()

	timer := c.clock.NewTimer(c.handshakeTimeout)
	var sessionID string
	select {
	case ep := <-s.endpoint:
		timer.Stop()
		if ep.err != nil {
			return c.abort(s, ep.err)
		}
		sessionID = ep.sessionID
	case <-s.ended:
		timer.Stop()
		return s.err
	case <-timer.Chan():
		return c.abort(s, mcperrors.Newf(mcperrors.KindTimeout, mcperrors.SourceHandshake,
			"no endpoint event within %s", c.handshakeTimeout))
	}
	log.Debug("Endpoint received", logging.String("session_id", sessionID))

	deadline := c.clock.NewTimer(c.handshakeTimeout)
	defer deadline.Stop()

	raw, err := c.exchange(context.Background(), s, protocol.MethodInitialize, protocol.NewInitializeParams(c.info), deadline.Chan(), nil)
	if err != nil {
		return c.abort(s, err)
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return c.abort(s, mcperrors.Wrap(err, mcperrors.KindParse, "malformed initialize result", mcperrors.SourceHandshake))
	}
	if result.ProtocolVersion == "" {
		// Not a success and not a failure: the handshake stays open until its deadline.
		log.Warn("Initialize result carries no protocolVersion")
		select {
		case <-deadline.Chan():
			return c.abort(s, mcperrors.Newf(mcperrors.KindTimeout, mcperrors.SourceHandshake,
				"initialize not acknowledged within %s", c.handshakeTimeout))
		case <-s.ended:
			return s.err
		}
	}

	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return retiredErr(s)
	}
	s.ready = true
	s.readyAt = c.clock.Now()
	c.serverInfo = &result
	c.cancelReconnectLocked()
	c.mu.Unlock()

	c.metrics.SetConnected(true)
	log.Info("Connected",
		logging.String("session_id", sessionID),
		logging.String("server", result.ServerInfo.Name),
		logging.String("protocol_version", result.ProtocolVersion),
	)
	return nil
}

// abort fails the handshake of s and discards it
func (c *Client) abort(s *session, err error) error {
	e := c.fail(s.gen, err, mcperrors.SourceHandshake)
	c.retire(s, e)
	return e
}
