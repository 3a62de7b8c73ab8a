// Package logging provides the structured logger used by the session manager,
// the transport and the command line client.
//
// Every record carries the component and operation that produced it and, when
// known, the MCP session id and JSON-RPC request id it belongs to. Those two
// travel on the context (see ContextWithSessionID and ContextWithRequestID) so a
// request logged by the client and the HTTP POST carrying it share one tag.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mcperrors "github.com/ajitpratap0/mcp-sse-client/pkg/errors"
)

// Level is the severity of a record
type Level int32

const (
	DebugLevel Level = iota - 1
	InfoLevel
	WarnLevel
	ErrorLevel

	// silent is above every level a record can have
	silent
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int32(l))
	}
}

// ParseLevel maps a configured level name to a Level. Names are case
// insensitive and an empty name means info.
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return InfoLevel, fmt.Errorf("unknown log level %q", name)
}

// Reserved field keys. Records lift these out of their fields and formatters
// render them in the record header.
const (
	KeyComponent = "component"
	KeyOperation = "operation"
	KeySessionID = "session_id"
	KeyRequestID = "request_id"
)

// Field is one key/value pair attached to a record
type Field struct {
	Key   string
	Value interface{}
}

func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger writes leveled records. Derived loggers share their parent's output
// and level.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithFields returns a logger that adds fields to every record. A later
	// field replaces an earlier one with the same key.
	WithFields(fields ...Field) Logger
	// WithContext returns a logger tagged with the session and request ids
	// carried by ctx
	WithContext(ctx context.Context) Logger
	// WithError returns a logger carrying err. Classified errors also add
	// their kind, code, source and remote code.
	WithError(err error) Logger

	// SetLevel changes the minimum level of this logger and every logger
	// derived from the same root
	SetLevel(level Level)
}

// Entry is one record handed to a Formatter
type Entry struct {
	Time      time.Time
	Level     Level
	Message   string
	Component string
	Operation string
	SessionID string
	RequestID string
	// Fields holds the remaining fields in the order they were first added
	Fields []Field
}

// Formatter renders an Entry, including its trailing newline
type Formatter interface {
	Format(entry *Entry) ([]byte, error)
}

// sink is the output shared by a root logger and everything derived from it
type sink struct {
	mu        sync.Mutex
	out       io.Writer
	formatter Formatter
	level     atomic.Int32
}

type logger struct {
	sink   *sink
	fields []Field
}

// New returns an info level logger writing to out. A nil out writes to stderr
// and a nil formatter renders text.
func New(out io.Writer, formatter Formatter) Logger {
	if out == nil {
		out = os.Stderr
	}
	if formatter == nil {
		formatter = NewTextFormatter()
	}
	s := &sink{out: out, formatter: formatter}
	s.level.Store(int32(InfoLevel))
	return &logger{sink: s}
}

// NewNop returns a logger that discards everything
func NewNop() Logger {
	l := New(io.Discard, NewTextFormatter())
	l.SetLevel(silent)
	return l
}

func (l *logger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.log(InfoLevel, msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.log(WarnLevel, msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

func (l *logger) SetLevel(level Level) {
	l.sink.level.Store(int32(level))
}

func (l *logger) WithFields(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	return &logger{sink: l.sink, fields: merge(l.fields, fields)}
}

func (l *logger) WithContext(ctx context.Context) Logger {
	var fields []Field
	if id := SessionIDFromContext(ctx); id != "" {
		fields = append(fields, String(KeySessionID, id))
	}
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, String(KeyRequestID, id))
	}
	return l.WithFields(fields...)
}

func (l *logger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	fields := []Field{{Key: "error", Value: err}}
	if e, ok := mcperrors.As(err); ok {
		fields = append(fields,
			String("error_kind", e.Kind.String()),
			Int("error_code", e.Code),
		)
		if e.Source != "" {
			fields = append(fields, String("error_source", e.Source))
		}
		if e.RemoteCode != 0 {
			fields = append(fields, Int("remote_code", e.RemoteCode))
		}
	}
	return l.WithFields(fields...)
}

func (l *logger) log(level Level, msg string, fields []Field) {
	if level < Level(l.sink.level.Load()) {
		return
	}

	entry := &Entry{Time: time.Now(), Level: level, Message: msg}
	for _, f := range merge(l.fields, fields) {
		switch f.Key {
		case KeyComponent:
			entry.Component = fmt.Sprint(f.Value)
		case KeyOperation:
			entry.Operation = fmt.Sprint(f.Value)
		case KeySessionID:
			entry.SessionID = fmt.Sprint(f.Value)
		case KeyRequestID:
			entry.RequestID = fmt.Sprint(f.Value)
		default:
			entry.Fields = append(entry.Fields, f)
		}
	}

	data, err := l.sink.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: cannot format %q: %v\n", msg, err)
		return
	}

	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if _, err := l.sink.out.Write(data); err != nil {
		fmt.Fprintf(os.Stderr, "logging: cannot write %q: %v\n", msg, err)
	}
}

// merge returns base followed by extra, with a key from extra replacing the
// value of the same key in base in place. base is never modified.
func merge(base, extra []Field) []Field {
	if len(extra) == 0 {
		return base
	}
	out := make([]Field, len(base), len(base)+len(extra))
	copy(out, base)
next:
	for _, f := range extra {
		for i := range out {
			if out[i].Key == f.Key {
				out[i].Value = f.Value
				continue next
			}
		}
		out = append(out, f)
	}
	return out
}

type contextKey int

const (
	sessionIDKey contextKey = iota
	requestIDKey
)

// ContextWithSessionID tags ctx with the MCP session id a request belongs to
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext returns the session id set by ContextWithSessionID
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// ContextWithRequestID tags ctx with the id of the request being made. The
// client uses the JSON-RPC id; RoundTripper uses it as the X-Request-ID header.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request id set by ContextWithRequestID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
