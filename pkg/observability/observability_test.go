package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	mcperrors "github.com/ajitpratap0/mcp-sse-client/pkg/errors"
)

func TestSessionMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewSessionMetrics(reg, "test")
	require.NoError(t, err)

	m.RecordConnectionAttempt(StatusSuccess)
	m.RecordConnectionAttempt(StatusError)
	m.RecordConnectionAttempt(StatusError)
	m.RecordReconnect(2 * time.Second)
	m.SetConnected(true)
	m.SetPending(3)
	m.RecordRequest("tools/list", StatusSuccess, 15*time.Millisecond)
	m.RecordError("connection")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.connectionAttempts.WithLabelValues(StatusSuccess)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.connectionAttempts.WithLabelValues(StatusError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.reconnections))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connected))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.pending))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestTotal.WithLabelValues("tools/list", StatusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errorTotal.WithLabelValues("connection")))

	m.SetConnected(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(m.connected))

	// a second registration under the same namespace collides
	_, err = NewSessionMetrics(reg, "test")
	assert.Error(t, err)
}

func TestNilSessionMetrics(t *testing.T) {
	var m *SessionMetrics
	assert.NotPanics(t, func() {
		m.RecordConnectionAttempt(StatusSuccess)
		m.RecordReconnect(time.Second)
		m.SetConnected(true)
		m.SetPending(1)
		m.RecordRequest("ping", StatusError, time.Millisecond)
		m.RecordError("timeout")
	})
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewSessionMetrics(reg, "")
	require.NoError(t, err)
	m.SetPending(2)

	rec := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "mcp_client_pending_requests 2"), rec.Body.String())
}

func TestTracingProvider(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp, err := NewTracingProvider(TracingConfig{Exporter: exporter})
	require.NoError(t, err)

	_, span := tp.Tracer().Start(context.Background(), "mcp.client.call tools/list")
	span.SetAttributes(AttrMethod.String("tools/list"))
	RecordError(span, mcperrors.New(mcperrors.KindTimeout, "late", mcperrors.SourceCorrelator))
	span.End()

	_, plain := tp.Tracer().Start(context.Background(), "plain")
	RecordError(plain, errors.New("boom"))
	RecordError(plain, nil)
	plain.End()

	require.NoError(t, tp.ForceFlush(context.Background()))
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	got := spans[0]
	assert.Equal(t, "mcp.client.call tools/list", got.Name)
	assert.Equal(t, codes.Error, got.Status.Code)

	attrs := map[string]interface{}{}
	for _, kv := range got.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "tools/list", attrs["mcp.method"])
	assert.Equal(t, "timeout", attrs["mcp.error.kind"])
	assert.Equal(t, int64(-32000), attrs["mcp.error.code"])

	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracingProviderRejectsUnknownExporter(t *testing.T) {
	_, err := NewTracingProvider(TracingConfig{ExporterType: "zipkin"})
	assert.Error(t, err)
}
