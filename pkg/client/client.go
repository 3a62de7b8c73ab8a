package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	mcperrors "github.com/ajitpratap0/mcp-sse-client/pkg/errors"
	"github.com/ajitpratap0/mcp-sse-client/pkg/logging"
	"github.com/ajitpratap0/mcp-sse-client/pkg/observability"
	"github.com/ajitpratap0/mcp-sse-client/pkg/protocol"
	"github.com/ajitpratap0/mcp-sse-client/pkg/transport"
)

const (
	// DefaultClientName is announced during initialize unless WithClientInfo is used
	DefaultClientName = "mcp-sse-client"
	// DefaultClientVersion is announced during initialize unless WithClientInfo is used
	DefaultClientVersion = "1.0.0"

	// DefaultRequestTimeout bounds the wait for each response
	DefaultRequestTimeout = 30 * time.Second
	// DefaultHandshakeTimeout bounds the endpoint wait and the initialize request
	DefaultHandshakeTimeout = 30 * time.Second
)

// ErrorHandler observes every classified failure. Panics are recovered and logged.
type ErrorHandler func(err *mcperrors.Error)

// NotificationHandler receives server notifications. It runs on the stream reader
// and must not block.
type NotificationHandler func(method string, params json.RawMessage)

// Option configures a Client
type Option func(*Client)

// WithLogger sets the client logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClientInfo sets the name and version announced during initialize
func WithClientInfo(name, version string) Option {
	return func(c *Client) {
		if name != "" {
			c.info.Name = name
		}
		if version != "" {
			c.info.Version = version
		}
	}
}

// WithErrorHandler installs the failure observer
func WithErrorHandler(h ErrorHandler) Option {
	return func(c *Client) {
		c.onError = h
	}
}

// WithNotificationHandler installs the notification handler
func WithNotificationHandler(h NotificationHandler) Option {
	return func(c *Client) {
		c.onNotification = h
	}
}

// WithClock replaces the clock driving deadlines and reconnection delays
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithRequestTimeout sets the deadline of each request
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithHandshakeTimeout sets the deadlines of the endpoint wait and of initialize
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.handshakeTimeout = d
		}
	}
}

// WithReconnectPolicy replaces the reconnection policy
func WithReconnectPolicy(p ReconnectPolicy) Option {
	return func(c *Client) {
		c.policy = p
	}
}

// WithMetrics records session metrics
func WithMetrics(m *observability.SessionMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for call spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// session is one negotiated stream. It is retired exactly once, by detachLocked.
type session struct {
	gen      uint64
	stream   *transport.Stream
	id       string
	endpoint chan endpointResult
	ended    chan struct{}
	err      *mcperrors.Error
	ready    bool
	readyAt  time.Time
	nextID   int64
}

type endpointResult struct {
	sessionID string
	err       error
}

// Client is a session with one MCP server. Create it with New and share it; all
// methods are safe for concurrent use.
type Client struct {
	transport        transport.Transport
	logger           logging.Logger
	clock            clockwork.Clock
	tracer           trace.Tracer
	metrics          *observability.SessionMetrics
	info             protocol.Implementation
	id               string
	requestTimeout   time.Duration
	handshakeTimeout time.Duration
	policy           ReconnectPolicy
	onError          ErrorHandler
	onNotification   NotificationHandler

	flight  singleflight.Group
	pending *pendingTable

	mu             sync.Mutex
	sess           *session
	gen            uint64
	attempts       int
	closing        bool
	serverInfo     *protocol.InitializeResult
	reconnectTimer clockwork.Timer
	reconnectSeq   uint64
}

// New creates a client for the server behind t. No connection is made until the
// first call or EnsureConnection.
func New(t transport.Transport, opts ...Option) *Client {
	c := &Client{
		transport:        t,
		logger:           logging.NewNop(),
		clock:            clockwork.NewRealClock(),
		info:             protocol.Implementation{Name: DefaultClientName, Version: DefaultClientVersion},
		id:               uuid.NewString(),
		requestTimeout:   DefaultRequestTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		policy:           DefaultReconnectPolicy(),
		pending:          newPendingTable(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(observability.TracerName)
	}
	c.logger = c.logger.WithFields(
		logging.String("component", "session"),
		logging.String("client_id", c.id),
	)
	return c
}

// ID returns the identifier of this client instance
func (c *Client) ID() string {
	return c.id
}

// Call sends method with params and waits for the matching response. It connects
// first when no session is ready.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	start := c.clock.Now()
	ctx, span := c.tracer.Start(ctx, "mcp.client.call "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			observability.AttrMethod.String(method),
			observability.AttrClientID.String(c.id),
		),
	)
	defer span.End()

	result, err := c.call(ctx, span, method, params)

	status := observability.StatusSuccess
	if err != nil {
		status = observability.StatusError
		observability.RecordError(span, err)
	}
	c.metrics.RecordRequest(method, status, c.clock.Since(start))
	return result, err
}

func (c *Client) call(ctx context.Context, span trace.Span, method string, params interface{}) (json.RawMessage, error) {
	s, err := c.ready(ctx)
	if err != nil {
		return nil, err
	}

	deadline := c.clock.NewTimer(c.requestTimeout)
	defer deadline.Stop()

	result, err := c.exchange(ctx, s, method, params, deadline.Chan(), func(id int64, sessionID string) {
		span.SetAttributes(
			observability.AttrRequestID.Int64(id),
			observability.AttrSessionID.String(sessionID),
		)
	})
	if err != nil {
		return nil, c.fail(s.gen, err, mcperrors.SourceCorrelator)
	}
	return result, nil
}

// exchange registers a request on s, posts it and waits for its outcome, the
// deadline or ctx. Failures are returned unreported.
func (c *Client) exchange(ctx context.Context, s *session, method string, params interface{}, deadline <-chan time.Time, sent func(id int64, sessionID string)) (json.RawMessage, error) {
	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return nil, retiredErr(s)
	}
	s.nextID++
	id := s.nextID
	sessionID := s.id
	ctx = logging.ContextWithRequestID(logging.ContextWithSessionID(ctx, sessionID), strconv.FormatInt(id, 10))
	log := c.logger.WithContext(ctx).WithFields(
		logging.String(logging.KeyOperation, "call"),
		logging.String("method", method),
	)
	call := c.pending.add(id, s.gen, method, c.clock.Now(), log)
	c.mu.Unlock()
	c.metrics.SetPending(c.pending.len())

	if sent != nil {
		sent(id, sessionID)
	}

	req, err := protocol.NewRequest(id, method, params)
	if err != nil {
		c.forget(call)
		return nil, mcperrors.Wrap(err, mcperrors.KindProtocol, "encoding "+method, mcperrors.SourceCorrelator)
	}
	body, err := json.Marshal(req)
	if err != nil {
		c.forget(call)
		return nil, mcperrors.Wrap(err, mcperrors.KindProtocol, "encoding "+method, mcperrors.SourceCorrelator)
	}

	log.Debug("Sending request")
	if _, err := c.transport.Post(ctx, sessionID, body); err != nil {
		if c.forget(call) {
			return nil, err
		}
		// already drained or answered; that outcome wins
		out := <-call.done
		return out.result, out.err
	}

	select {
	case out := <-call.done:
		return out.result, out.err
	case <-deadline:
		if c.forget(call) {
			log.Debug("Request timed out")
			return nil, mcperrors.RequestTimeout(method, id)
		}
	case <-ctx.Done():
		if c.forget(call) {
			return nil, mcperrors.Wrap(ctx.Err(), mcperrors.KindTimeout, fmt.Sprintf("request %d (%s) abandoned", id, method), mcperrors.SourceCorrelator)
		}
	}
	out := <-call.done
	return out.result, out.err
}

// forget removes call from the pending table, reporting whether it was still there
func (c *Client) forget(call *pendingCall) bool {
	removed := c.pending.remove(call)
	if removed {
		c.metrics.SetPending(c.pending.len())
	}
	return removed
}

func retiredErr(s *session) error {
	if s.err != nil {
		return s.err
	}
	return mcperrors.StreamClosed(nil)
}

// fail classifies err, reports it and starts recovery for connection failures.
// Failures of a retired session generation were reported when it was retired and
// are only classified.
func (c *Client) fail(gen uint64, err error, source string) *mcperrors.Error {
	e := mcperrors.Classify(err, source)

	c.mu.Lock()
	current := c.sess != nil && c.sess.gen == gen
	c.mu.Unlock()
	if !current {
		return e
	}

	c.report(e)
	if e.Kind == mcperrors.KindConnection {
		c.recover(gen, e)
	}
	return e
}

// report hands e to the observer
func (c *Client) report(e *mcperrors.Error) {
	c.metrics.RecordError(e.Kind.String())
	c.logger.WithError(e).Warn("Session failure")

	if c.onError == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Error handler panicked", logging.Any("panic", r))
		}
	}()
	c.onError(e)
}

// recover retires session gen after a connection failure and schedules the next
// negotiation when the policy allows one
func (c *Client) recover(gen uint64, cause *mcperrors.Error) {
	c.mu.Lock()
	if c.closing || c.sess == nil || c.sess.gen != gen {
		c.mu.Unlock()
		return
	}

	s := c.sess
	if c.policy.ResetAfter > 0 && s.ready && c.clock.Since(s.readyAt) >= c.policy.ResetAfter {
		c.logger.Debug("Resetting reconnection attempts after a healthy session",
			logging.Duration("uptime", c.clock.Since(s.readyAt)))
		c.attempts = 1
	}

	retired, drained := c.detachLocked(cause)
	if delay, ok := c.policy.next(c.attempts); ok {
		c.scheduleReconnectLocked(delay)
	} else {
		c.logger.Warn("Giving up reconnecting",
			logging.String("operation", "reconnect"),
			logging.Int("attempts", c.attempts))
	}
	c.mu.Unlock()

	c.release(retired, drained, cause)
}

// retire discards session s, if still current, without scheduling a reconnection
func (c *Client) retire(s *session, cause *mcperrors.Error) {
	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return
	}
	retired, drained := c.detachLocked(cause)
	c.mu.Unlock()

	c.release(retired, drained, cause)
}

// detachLocked unlinks the current session and empties the pending table in one
// step. c.mu must be held; the caller finishes with release.
func (c *Client) detachLocked(cause *mcperrors.Error) (*session, []*pendingCall) {
	s := c.sess
	if s != nil {
		c.sess = nil
		s.err = cause
		close(s.ended)
	}
	c.serverInfo = nil
	return s, c.pending.drain()
}

func (c *Client) release(s *session, drained []*pendingCall, cause *mcperrors.Error) {
	if s != nil && s.stream != nil {
		s.stream.Close()
	}
	for _, p := range drained {
		p.complete(nil, cause)
	}
	if len(drained) > 0 {
		c.logger.Debug("Failed pending requests", logging.Int("count", len(drained)))
	}
	c.metrics.SetPending(c.pending.len())
	c.metrics.SetConnected(false)
}

// Close shuts the session down. Pending requests fail with a connection error and
// a scheduled reconnection is cancelled. The client may be used again afterwards;
// the next call negotiates a new session.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closing = true
	c.cancelReconnectLocked()
	retired, drained := c.detachLocked(mcperrors.Shutdown())
	c.mu.Unlock()

	c.release(retired, drained, mcperrors.Shutdown())
	c.flight.Forget(flightKey)

	c.mu.Lock()
	c.closing = false
	c.mu.Unlock()

	c.logger.Info("Session closed", logging.String("operation", "close"))
	return nil
}

// SessionID returns the id of the current session, empty when there is none
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.id
}

// Attempts returns how many negotiations this client has started
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Pending returns the number of requests waiting for a response
func (c *Client) Pending() int {
	return c.pending.len()
}

// Connected reports whether a negotiated session is open
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess != nil && c.sess.ready
}

// ServerInfo returns the initialize result of the current session, nil when there
// is none
func (c *Client) ServerInfo() *protocol.InitializeResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.serverInfo == nil {
		return nil
	}
	info := *c.serverInfo
	return &info
}
