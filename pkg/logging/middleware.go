package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request id on outbound HTTP requests
const RequestIDHeader = "X-Request-ID"

// RoundTripper wraps next with debug logging of every HTTP exchange. Requests
// without an X-Request-ID header get one: the request id from the request
// context when the caller set one, otherwise a random UUID. A nil next uses
// http.DefaultTransport.
func RoundTripper(logger Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingRoundTripper{logger: logger, next: next}
}

type loggingRoundTripper struct {
	logger Logger
	next   http.RoundTripper
}

func (rt *loggingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if r.Header.Get(RequestIDHeader) == "" {
		requestID := RequestIDFromContext(ctx)
		if requestID == "" {
			requestID = uuid.NewString()
			ctx = ContextWithRequestID(ctx, requestID)
		}
		r = r.Clone(ctx)
		r.Header.Set(RequestIDHeader, requestID)
	}

	log := rt.logger.WithContext(ctx).WithFields(
		String(KeyOperation, "http"),
		String("method", r.Method),
		String("path", r.URL.Path),
	)
	if RequestIDFromContext(ctx) == "" {
		log = log.WithFields(String(KeyRequestID, r.Header.Get(RequestIDHeader)))
	}
	log.Debug("HTTP request started")

	start := time.Now()
	resp, err := rt.next.RoundTrip(r)
	elapsed := time.Since(start)
	if err != nil {
		log.WithError(err).Debug("HTTP request failed", Duration("duration", elapsed))
		return nil, err
	}

	log.Debug("HTTP request completed", Int("status", resp.StatusCode), Duration("duration", elapsed))
	return resp, nil
}
