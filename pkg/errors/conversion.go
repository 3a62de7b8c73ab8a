package errors

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// integrationKeywords mark sources that belong to the layer consuming tool results
var integrationKeywords = []string{"integration", "inference", "model", "openai", "anthropic"}

// Classify converts any error into a classified error. The first matching rule wins:
//
//  1. an error that is already classified keeps its kind
//  2. context deadlines and cancellations are timeouts, JSON decoding failures are parse errors
//  3. the message mentions "timeout", then "network" or "fetch", then "parse"
//  4. the source mentions "SSE" or "connection", then an integration keyword
//  5. anything else is a protocol error
//
// Rule 1 deliberately precedes the message checks. A classified error is never
// reclassified from its text, so a connection error reading "SSE connection
// timeout" stays a connection error and a server error whose message says
// "timeout" stays a protocol error. DESIGN.md (Open Question decision 4) records
// this ordering.
//
// A nil error yields nil.
func Classify(err error, source string) *Error {
	if err == nil {
		return nil
	}

	if e, ok := As(err); ok {
		if e.Source == "" && source != "" {
			return e.WithSource(source)
		}
		return e
	}

	if kind, ok := classifyTyped(err); ok {
		return wrapClassified(err, kind, source)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return wrapClassified(err, KindTimeout, source)
	case strings.Contains(msg, "network"), strings.Contains(msg, "fetch"):
		return wrapClassified(err, KindNetwork, source)
	case strings.Contains(msg, "parse"):
		return wrapClassified(err, KindParse, source)
	}

	src := strings.ToLower(source)
	switch {
	case strings.Contains(src, "sse"), strings.Contains(src, "connection"):
		return wrapClassified(err, KindConnection, source)
	case containsAny(src, integrationKeywords):
		return wrapClassified(err, KindIntegration, source)
	}

	return wrapClassified(err, KindProtocol, source)
}

func classifyTyped(err error) (Kind, bool) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout, true
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return KindParse, true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return KindParse, true
	}

	return "", false
}

func wrapClassified(err error, kind Kind, source string) *Error {
	e := New(kind, err.Error(), source)
	e.cause = err
	return e
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
