package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"betascale/internal/infrastructure"
	"betascale/internal/shared/testutil"
)

func newTestOTelMiddleware(t *testing.T) (*OTelMiddleware, *tracetest.SpanRecorder) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { tp.Shutdown(context.Background()) })

	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { mp.Shutdown(context.Background()) })

	logger, _ := testutil.NewTestLogger(t)
	providers := &infrastructure.OTelProviders{
		Tracer: tp.Tracer("test"),
		Meter:  mp.Meter("test"),
		Logger: logger,
	}

	m, err := NewOTelMiddleware(providers)
	require.NoError(t, err)
	return m, recorder
}

func TestOTelMiddlewareHandler(t *testing.T) {
	m, recorder := newTestOTelMiddleware(t)

	var gotTraceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/runs", nil)

	m.Handler(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, gotTraceID)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/runs", spans[0].Name())
	assert.Equal(t, gotTraceID, spans[0].SpanContext().TraceID().String())
}

func TestOTelMiddlewareErrorStatus(t *testing.T) {
	m, recorder := newTestOTelMiddleware(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/runs/missing", nil)

	m.Handler(next).ServeHTTP(w, r)

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	foundStatus := false
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == "http.response.status_code" {
			foundStatus = true
			assert.Equal(t, int64(http.StatusNotFound), attr.Value.AsInt64())
		}
	}
	assert.True(t, foundStatus, "expected http.response.status_code attribute")
}

func TestOTelMiddlewareRunMetricsAccessor(t *testing.T) {
	m, _ := newTestOTelMiddleware(t)
	assert.NotNil(t, m.RunMetrics())
}

func TestWebSocketTraceMiddleware(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)

	var gotTraceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceID = infrastructure.GetTraceID(r.Context())
		w.WriteHeader(http.StatusSwitchingProtocols)
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Origin", "http://localhost:3000")

	WebSocketTraceMiddleware(logger)(next).ServeHTTP(w, r)

	assert.True(t, logs.ContainsMessage("websocket upgrade attempt"))
	assert.NotEmpty(t, gotTraceID)
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "x-forwarded-for wins",
			headers: map[string]string{"X-Forwarded-For": "10.0.0.1", "X-Real-IP": "10.0.0.2"},
			want:    "10.0.0.1",
		},
		{
			name:    "x-real-ip fallback",
			headers: map[string]string{"X-Real-IP": "10.0.0.2"},
			want:    "10.0.0.2",
		},
		{
			name: "remote addr fallback",
			want: "192.0.2.1:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/test", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetRealIP(r))
		})
	}
}

func TestGetRoutePattern(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/runs/42", nil)
	assert.Equal(t, "/api/runs/42", getRoutePattern(r))
}
