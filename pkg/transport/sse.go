package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tmaxmax/go-sse"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	mcperrors "github.com/ajitpratap0/mcp-sse-client/pkg/errors"
	"github.com/ajitpratap0/mcp-sse-client/pkg/logging"
)

const (
	// AckAccepted is the only acknowledgement body that counts as success
	AckAccepted = "Accepted"

	// DefaultUserAgent is sent on the stream request
	DefaultUserAgent = "node"

	eventEndpoint = "endpoint"
	eventMessage  = "message"

	maxAckSize = 4096
)

// SSETransport implements Transport over the legacy HTTP+SSE binding
type SSETransport struct {
	base         *url.URL
	httpClient   *http.Client
	headers      http.Header
	userAgent    string
	maxEventSize int
	logger       logging.Logger
}

// SSEOption configures an SSETransport
type SSEOption func(*SSETransport)

// WithHTTPClient sets the HTTP client used for both the stream and POSTs. The
// client must not set a Timeout, which would cut the stream short.
func WithHTTPClient(client *http.Client) SSEOption {
	return func(t *SSETransport) {
		t.httpClient = client
	}
}

// WithHeader adds a header to every request
func WithHeader(key, value string) SSEOption {
	return func(t *SSETransport) {
		t.headers.Add(key, value)
	}
}

// WithUserAgent overrides the User-Agent of the stream request
func WithUserAgent(ua string) SSEOption {
	return func(t *SSETransport) {
		t.userAgent = ua
	}
}

// WithMaxEventSize sets the largest event the reader accepts. Zero keeps the
// library default.
func WithMaxEventSize(n int) SSEOption {
	return func(t *SSETransport) {
		t.maxEventSize = n
	}
}

// WithLogger sets the transport logger
func WithLogger(logger logging.Logger) SSEOption {
	return func(t *SSETransport) {
		t.logger = logger
	}
}

// NewSSETransport creates a transport for the server rooted at baseURL
func NewSSETransport(baseURL string, opts ...SSEOption) (*SSETransport, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid server URL %q: scheme must be http or https", baseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: missing host", baseURL)
	}

	t := &SSETransport{
		base:       base,
		httpClient: http.DefaultClient,
		headers:    make(http.Header),
		userAgent:  DefaultUserAgent,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.WithFields(logging.String("component", "transport"))

	return t, nil
}

// BaseURL implements Transport
func (t *SSETransport) BaseURL() *url.URL {
	u := *t.base
	return &u
}

// StreamURL returns {base}/sse
func (t *SSETransport) StreamURL() string {
	return t.base.JoinPath("sse").String()
}

// MessageURL returns {base}/message?sessionId=<sessionID>
func (t *SSETransport) MessageURL(sessionID string) string {
	u := t.base.JoinPath("message")
	q := url.Values{}
	q.Set("sessionId", sessionID)
	u.RawQuery = q.Encode()
	return u.String()
}

// Open implements Transport
func (t *SSETransport) Open(ctx context.Context, handlers Handlers) (*Stream, error) {
	endpoint := t.StreamURL()

	// The stream outlives ctx; ctx only bounds the wait for response headers.
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		cancel()
		return nil, mcperrors.ConnectionFailed(endpoint, err)
	}
	t.setHeaders(req.Header)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Accept-Language", "*")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", t.userAgent)

	t.logger.Debug("Opening event stream", logging.String("url", endpoint))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, mcperrors.Wrap(ctx.Err(), mcperrors.KindTimeout, "event stream not established", mcperrors.SourceSSEOpen)
		}
		return nil, mcperrors.ConnectionFailed(endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, mcperrors.ConnectionFailed(endpoint, fmt.Errorf("unexpected status %s", resp.Status))
	}

	stream := newStream(cancel)
	go t.read(resp.Body, stream, handlers)

	return stream, nil
}

func (t *SSETransport) read(body io.ReadCloser, stream *Stream, handlers Handlers) {
	defer close(stream.done)
	defer body.Close()

	var config *sse.ReadConfig
	if t.maxEventSize > 0 {
		config = &sse.ReadConfig{MaxEventSize: t.maxEventSize}
	}

	var readErr error
	for ev, err := range sse.Read(body, config) {
		if err != nil {
			readErr = err
			break
		}

		switch ev.Type {
		case eventEndpoint:
			t.logger.Debug("Received endpoint event", logging.String("data", ev.Data))
			handlers.endpoint(ev.Data)
		case eventMessage, "":
			handlers.message([]byte(ev.Data))
		default:
			t.logger.Debug("Dropping event of unknown type", logging.String("type", ev.Type))
		}
	}

	if stream.closing.Load() {
		t.logger.Debug("Event stream closed")
		handlers.close(nil)
		return
	}

	closeErr := mcperrors.StreamClosed(readErr)
	if readErr != nil && errors.Is(readErr, context.Canceled) {
		closeErr = mcperrors.StreamClosed(nil)
	}
	stream.finish(closeErr)
	t.logger.WithError(closeErr).Warn("Event stream ended")
	handlers.close(closeErr)
}

// Post implements Transport
func (t *SSETransport) Post(ctx context.Context, sessionID string, body []byte) (string, error) {
	method := methodOf(body)
	endpoint := t.MessageURL(sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", mcperrors.PostFailed(method, err)
	}
	t.setHeaders(req.Header)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", mcperrors.Wrap(ctx.Err(), mcperrors.KindTimeout, fmt.Sprintf("sending %s", method), mcperrors.SourcePost)
		}
		return "", mcperrors.PostFailed(method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAckSize))
	if err != nil {
		return "", mcperrors.PostFailed(method, err)
	}

	ack := string(data)
	if ack != AckAccepted {
		t.logger.Warn("Message not accepted",
			logging.String("method", method),
			logging.Int("status", resp.StatusCode),
			logging.String("ack", ack),
		)
		return ack, mcperrors.AckRejected(method, ack)
	}

	return ack, nil
}

func (t *SSETransport) setHeaders(h http.Header) {
	for k, vs := range t.headers {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
}

// methodOf names an outbound message for errors and logs
func methodOf(body []byte) string {
	var peek struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(body, &peek); err != nil || peek.Method == "" {
		return "response"
	}
	return peek.Method
}

// ParseEndpoint extracts the session id from the data of an "endpoint" event. The
// data may be an absolute URL or a path relative to base.
func ParseEndpoint(base *url.URL, data string) (string, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return "", mcperrors.New(mcperrors.KindProtocol, "empty endpoint event", mcperrors.SourceHandshake)
	}

	ref, err := url.Parse(data)
	if err != nil {
		return "", mcperrors.Wrap(err, mcperrors.KindProtocol, "invalid endpoint URL", mcperrors.SourceHandshake)
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}

	q := ref.Query()
	for _, key := range []string{"sessionId", "sessionID", "session_id"} {
		if id := q.Get(key); id != "" {
			return id, nil
		}
	}

	return "", mcperrors.Newf(mcperrors.KindProtocol, mcperrors.SourceHandshake, "endpoint %q carries no session id", data)
}
