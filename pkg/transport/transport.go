package transport

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
)

// Transport is the connection to a single MCP server: one long-lived event stream
// plus a POST channel for outbound messages.
type Transport interface {
	// Open establishes the event stream. The handlers are installed before the first
	// event is read. Open returns once the server has answered with a stream.
	Open(ctx context.Context, handlers Handlers) (*Stream, error)

	// Post delivers one JSON-RPC message for the given session. It returns the
	// acknowledgement body and an error unless the body is exactly "Accepted".
	Post(ctx context.Context, sessionID string, body []byte) (string, error)

	// BaseURL returns the server root the stream and message URLs are derived from
	BaseURL() *url.URL
}

// Handlers receive the events of one stream. They are called from the stream's
// reader goroutine, one at a time, in arrival order.
type Handlers struct {
	// OnEndpoint receives the data of each "endpoint" event
	OnEndpoint func(data string)
	// OnMessage receives the data of each "message" or untyped event
	OnMessage func(data []byte)
	// OnClose is called exactly once when the stream ends. err is nil when the
	// stream was closed with Stream.Close, a connection error otherwise.
	OnClose func(err error)
}

func (h Handlers) endpoint(data string) {
	if h.OnEndpoint != nil {
		h.OnEndpoint(data)
	}
}

func (h Handlers) message(data []byte) {
	if h.OnMessage != nil {
		h.OnMessage(data)
	}
}

func (h Handlers) close(err error) {
	if h.OnClose != nil {
		h.OnClose(err)
	}
}

// Stream is a handle on an open event stream
type Stream struct {
	cancel  context.CancelFunc
	done    chan struct{}
	closing atomic.Bool

	mu  sync.Mutex
	err error
}

func newStream(cancel context.CancelFunc) *Stream {
	return &Stream{
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Close stops the stream. It does not wait for the reader to exit and may be called
// any number of times.
func (s *Stream) Close() {
	s.closing.Store(true)
	s.cancel()
}

// Done is closed once the reader has exited and OnClose has returned
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the error the stream ended with, or nil while it is running or after
// a deliberate close
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}
