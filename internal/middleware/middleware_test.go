package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"betascale/internal/infrastructure"
	"betascale/internal/shared/testutil"
)

func TestRequestID(t *testing.T) {
	t.Run("generates an id when none is supplied", func(t *testing.T) {
		var gotReqID, gotTraceID string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotReqID = GetReqID(r.Context())
			gotTraceID = infrastructure.GetTraceID(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/test", nil)

		RequestID(next).ServeHTTP(w, r)

		assert.NotEmpty(t, gotReqID)
		assert.Equal(t, gotReqID, gotTraceID)
		assert.Equal(t, gotReqID, w.Header().Get("X-Request-ID"))
	})

	t.Run("honors an incoming X-Request-ID", func(t *testing.T) {
		var gotReqID string
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotReqID = GetReqID(r.Context())
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/test", nil)
		r.Header.Set("X-Request-ID", "client-supplied-id")

		RequestID(next).ServeHTTP(w, r)

		assert.Equal(t, "client-supplied-id", gotReqID)
		assert.Equal(t, "client-supplied-id", w.Header().Get("X-Request-ID"))
	})
}

func TestStructuredLogger(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/transform", nil)

	StructuredLogger(logger)(next).ServeHTTP(w, r)

	assert.True(t, logs.ContainsMessage("request started"))
	assert.True(t, logs.ContainsMessage("request completed"))
	assert.True(t, logs.ContainsAttr("status", int64(http.StatusCreated)))
	assert.True(t, logs.ContainsAttr("path", "/api/transform"))
}

func TestRecoverer(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	Recoverer(logger)(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.True(t, logs.ContainsMessage("panic recovered"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "/errors/internal", body["type"])
	assert.Equal(t, float64(http.StatusInternalServerError), body["status"])
}

func TestRecovererPassesThrough(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("fine"))
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	Recoverer(logger)(next).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fine", w.Body.String())
	assert.Equal(t, 0, logs.Count())
}

func TestRateLimiter(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	limiter := NewRateLimiter(1, 1, logger)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := limiter.Handler(next)

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest("GET", "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
	assert.True(t, logs.ContainsMessage("rate limit exceeded"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(second.Body).Decode(&body))
	assert.Equal(t, "/errors/rate-limit", body["type"])
}

func TestTimeout(t *testing.T) {
	t.Run("answers 504 when the handler overruns", func(t *testing.T) {
		logger, logs := testutil.NewTestLogger(t)

		block := make(chan struct{})
		defer close(block)
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-block
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/slow", nil)

		Timeout(10*time.Millisecond, logger)(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.True(t, logs.ContainsMessage("request timeout"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "/errors/timeout", body["type"])
	})

	t.Run("passes fast handlers through", func(t *testing.T) {
		logger, _ := testutil.NewTestLogger(t)

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("fast"))
		})

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/fast", nil)

		Timeout(time.Second, logger)(next).ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "fast", w.Body.String())
	})
}

func TestCORS(t *testing.T) {
	config := CORSConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		ExposedHeaders: []string{"X-Run-ID"},
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := CORS(config)(next)

	t.Run("allows configured origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/test", nil)
		r.Header.Set("Origin", "http://localhost:3000")

		handler.ServeHTTP(w, r)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "X-Run-ID", w.Header().Get("Access-Control-Expose-Headers"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects unknown origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/test", nil)
		r.Header.Set("Origin", "http://evil.example")

		handler.ServeHTTP(w, r)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("answers preflight with 204", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("OPTIONS", "/test", nil)
		r.Header.Set("Origin", "http://localhost:3000")

		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	})

	t.Run("wildcard origin", func(t *testing.T) {
		wildcard := CORS(CORSConfig{AllowedOrigins: []string{"*"}})(next)

		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/test", nil)
		r.Header.Set("Origin", "http://anywhere.example")

		wildcard.ServeHTTP(w, r)

		assert.Equal(t, "http://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestSecurityHeaders(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	SecurityHeaders(next).ServeHTTP(w, r)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}
