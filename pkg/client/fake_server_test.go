package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/tmaxmax/go-sse"

	mcperrors "github.com/ajitpratap0/mcp-sse-client/pkg/errors"
	"github.com/ajitpratap0/mcp-sse-client/pkg/logging"
	"github.com/ajitpratap0/mcp-sse-client/pkg/transport"
)

const echoTool = `{"name":"echo","inputSchema":{"type":"object","properties":{},"required":[],"additionalProperties":false,"$schema":"http://json-schema.org/draft-07/schema#"}}`

// inbound is a message the fake server received on /message
type inbound struct {
	Session   string          `json:"-"`
	RequestID string          `json:"-"`
	ID        json.RawMessage `json:"id"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params"`
	Result    json.RawMessage `json:"result"`
	Error     json.RawMessage `json:"error"`
}

// fakeSession is one open event stream of the fake server
type fakeSession struct {
	id     string
	out    chan string
	hangup chan struct{}
	once   sync.Once
}

func (s *fakeSession) send(data string) {
	s.out <- data
}

func (s *fakeSession) close() {
	s.once.Do(func() { close(s.hangup) })
}

// fakeServer speaks the server side of the HTTP+SSE binding. By default it answers
// initialize, tools/list and ping; onRequest replaces that behavior.
type fakeServer struct {
	srv *httptest.Server

	opens    atomic.Int32
	refuse   atomic.Bool
	silent   atomic.Bool
	received chan inbound

	mu        sync.Mutex
	sessions  []*fakeSession
	acks      map[string]string
	onRequest func(s *fakeSession, req inbound)
	done      chan struct{}
}

func newFakeServer(t testing.TB) *fakeServer {
	t.Helper()
	f := &fakeServer{
		received: make(chan inbound, 256),
		acks:     make(map[string]string),
		done:     make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/sse", f.serveStream)
	mux.HandleFunc("/message", f.serveMessage)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		close(f.done)
		f.srv.Close()
	})
	return f
}

func (f *fakeServer) transport(t testing.TB) *transport.SSETransport {
	t.Helper()
	tr, err := transport.NewSSETransport(f.srv.URL)
	require.NoError(t, err)
	return tr
}

// ack makes the server acknowledge method with body instead of "Accepted"
func (f *fakeServer) ack(method, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks[method] = body
}

func (f *fakeServer) handle(h func(s *fakeSession, req inbound)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRequest = h
}

// latest returns the most recently opened stream
func (f *fakeServer) latest() *fakeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return nil
	}
	return f.sessions[len(f.sessions)-1]
}

func (f *fakeServer) serveStream(w http.ResponseWriter, r *http.Request) {
	n := f.opens.Add(1)
	if f.refuse.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}

	sess, err := sse.Upgrade(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	fs := &fakeSession{
		id:     fmt.Sprintf("session-%d", n),
		out:    make(chan string, 64),
		hangup: make(chan struct{}),
	}
	f.mu.Lock()
	f.sessions = append(f.sessions, fs)
	f.mu.Unlock()

	if !f.silent.Load() {
		msg := sse.Message{Type: sse.Type("endpoint")}
		msg.AppendData("/message?sessionId=" + fs.id)
		if err := sess.Send(&msg); err != nil {
			return
		}
	}
	if err := sess.Flush(); err != nil {
		return
	}

	for {
		select {
		case data := <-fs.out:
			msg := sse.Message{Type: sse.Type("message")}
			msg.AppendData(data)
			if err := sess.Send(&msg); err != nil {
				return
			}
			if err := sess.Flush(); err != nil {
				return
			}
		case <-fs.hangup:
			return
		case <-f.done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (f *fakeServer) serveMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("sessionId")

	f.mu.Lock()
	var target *fakeSession
	for _, s := range f.sessions {
		if s.id == id {
			target = s
		}
	}
	f.mu.Unlock()
	if target == nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req inbound
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.Session = id
	req.RequestID = r.Header.Get(logging.RequestIDHeader)
	select {
	case f.received <- req:
	default:
	}

	f.mu.Lock()
	ack, ok := f.acks[req.Method]
	handler := f.onRequest
	f.mu.Unlock()
	if !ok {
		ack = transport.AckAccepted
	}

	// a known length lets the client finish reading before the handler returns
	w.Header().Set("Content-Length", strconv.Itoa(len(ack)))
	w.WriteHeader(http.StatusAccepted)
	_, _ = io.WriteString(w, ack)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	if ack != transport.AckAccepted || req.Method == "" {
		return
	}

	if handler != nil {
		handler(target, req)
		return
	}
	respond(target, req)
}

// respond is the default server behavior
func respond(s *fakeSession, req inbound) {
	switch req.Method {
	case "initialize":
		s.send(resultFor(req.ID, `{"protocolVersion":"2024-11-05","capabilities":{"tools":{}},"serverInfo":{"name":"fake","version":"0.1.0"}}`))
	case "tools/list":
		s.send(resultFor(req.ID, `{"tools":[`+echoTool+`]}`))
	case "ping":
		s.send(resultFor(req.ID, `{}`))
	default:
		s.send(errorFor(req.ID, -32601, "method not found"))
	}
}

func resultFor(id json.RawMessage, result string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"result":%s}`, id, result)
}

func errorFor(id json.RawMessage, code int, message string) string {
	return fmt.Sprintf(`{"jsonrpc":"2.0","id":%s,"error":{"code":%d,"message":%q}}`, id, code, message)
}

// next returns the next message the server received, skipping nothing
func (f *fakeServer) next(t *testing.T) inbound {
	t.Helper()
	select {
	case req := <-f.received:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a posted message")
	}
	return inbound{}
}

// errorLog collects the errors reported to the observer
type errorLog struct {
	mu   sync.Mutex
	errs []*mcperrors.Error
}

func (l *errorLog) handler(e *mcperrors.Error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, e)
}

func (l *errorLog) kinds() []mcperrors.Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]mcperrors.Kind, len(l.errs))
	for i, e := range l.errs {
		kinds[i] = e.Kind
	}
	return kinds
}

// logBuffer collects log output written from several goroutines
type logBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// newDebugLogger returns a debug level text logger without timestamps
func newDebugLogger(out *logBuffer) logging.Logger {
	f := logging.NewTextFormatter()
	f.DisableTimestamp = true
	logger := logging.New(out, f)
	logger.SetLevel(logging.DebugLevel)
	return logger
}

// waitForTimers blocks until the fake clock has n pending timers
func waitForTimers(t *testing.T, clock clockwork.FakeClock, n int) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		clock.BlockUntil(n)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected %d pending timers", n)
	}
}

// newTestClient builds a client for f and closes it when the test ends
func newTestClient(t testing.TB, f *fakeServer, opts ...Option) *Client {
	t.Helper()
	c := New(f.transport(t), opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
