package logging

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	mcperrors "github.com/ajitpratap0/mcp-sse-client/pkg/errors"
)

// TextFormatter renders one line per record:
//
//	2024-11-05 10:00:00.000 [INFO] session/call [sess-1#3]: Sending request | method=tools/list
//
// The bracketed tag holds the session id and the request id when they are known.
type TextFormatter struct {
	TimestampFormat  string
	DisableTimestamp bool
	// Colors wraps the level in ANSI colors
	Colors bool
}

func NewTextFormatter() *TextFormatter {
	return &TextFormatter{TimestampFormat: "2006-01-02 15:04:05.000"}
}

func (f *TextFormatter) Format(entry *Entry) ([]byte, error) {
	var b strings.Builder

	if !f.DisableTimestamp {
		b.WriteString(entry.Time.Format(f.TimestampFormat))
		b.WriteByte(' ')
	}

	level := "[" + entry.Level.String() + "]"
	if f.Colors {
		level = colorize(entry.Level, level)
	}
	b.WriteString(level)

	if entry.Component != "" || entry.Operation != "" {
		b.WriteByte(' ')
		b.WriteString(entry.Component)
		if entry.Operation != "" {
			if entry.Component != "" {
				b.WriteByte('/')
			}
			b.WriteString(entry.Operation)
		}
	}

	if tag := correlationTag(entry); tag != "" {
		b.WriteString(" [")
		b.WriteString(tag)
		b.WriteByte(']')
	}

	if b.Len() > 0 {
		b.WriteString(": ")
	}
	b.WriteString(entry.Message)

	for i, field := range entry.Fields {
		if i == 0 {
			b.WriteString(" |")
		}
		b.WriteByte(' ')
		b.WriteString(field.Key)
		b.WriteByte('=')
		b.WriteString(textValue(field.Value))
	}

	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// correlationTag is "session#request", "session" or "#request"
func correlationTag(entry *Entry) string {
	if entry.RequestID == "" {
		return entry.SessionID
	}
	return entry.SessionID + "#" + entry.RequestID
}

func textValue(v interface{}) string {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case error:
		return strconv.Quote(val.Error())
	case fmt.Stringer:
		s = val.String()
	default:
		return fmt.Sprint(v)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func colorize(level Level, text string) string {
	var code string
	switch level {
	case DebugLevel:
		code = "90"
	case InfoLevel:
		code = "34"
	case WarnLevel:
		code = "33"
	case ErrorLevel:
		code = "31"
	default:
		return text
	}
	return "\033[" + code + "m" + text + "\033[0m"
}

// JSONFormatter renders one JSON object per record. Correlation values become
// the session_id and request_id members, and classified errors are rendered as
// objects.
type JSONFormatter struct {
	TimestampFormat  string
	DisableTimestamp bool
}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
}

func (f *JSONFormatter) Format(entry *Entry) ([]byte, error) {
	record := make(map[string]interface{}, len(entry.Fields)+7)
	for _, field := range entry.Fields {
		record[field.Key] = jsonValue(field.Value)
	}

	if !f.DisableTimestamp {
		record["time"] = entry.Time.Format(f.TimestampFormat)
	}
	record["level"] = entry.Level.String()
	record["message"] = entry.Message
	for key, value := range map[string]string{
		KeyComponent: entry.Component,
		KeyOperation: entry.Operation,
		KeySessionID: entry.SessionID,
		KeyRequestID: entry.RequestID,
	} {
		if value != "" {
			record[key] = value
		}
	}

	out, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode log record: %w", err)
	}
	return append(out, '\n'), nil
}

func jsonValue(v interface{}) interface{} {
	switch val := v.(type) {
	case *mcperrors.Error:
		return val.ToJSON()
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	}
	return v
}
