package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/guitar-ai/internal/auth"
	"github.com/sakif/guitar-ai/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("hello"))
})

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"success", http.StatusOK, "INFO"},
		{"client error", http.StatusNotFound, "WARN"},
		{"server error", http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("12345"))
			})
			h := chimiddleware.RequestID(Logger(logger)(inner))

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/examples", nil))

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.wantLevel, line["level"])
			assert.Equal(t, "GET", line["method"])
			assert.Equal(t, "/api/examples", line["path"])
			assert.EqualValues(t, tt.status, line["status"])
			assert.EqualValues(t, 5, line["bytes"])
			assert.NotEmpty(t, line["requestID"])
		})
	}
}

func TestLogger_DefaultStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("implicit 200"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Contains(t, buf.String(), "status=200")
}

func newLimiter(t *testing.T, perMinute float64, burst, maxKeys int) *RateLimiter {
	t.Helper()
	rl, err := NewRateLimiter(RateLimitConfig{PerMinute: perMinute, Burst: burst, MaxKeys: maxKeys}, quietLogger())
	require.NoError(t, err)
	return rl
}

func asUser(id string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
	return req.WithContext(auth.WithPrincipal(req.Context(), model.Principal{UserID: id}))
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	// One token per minute: after the burst nothing refills during the test.
	rl := newLimiter(t, 1, 2, 100)
	h := rl.Middleware(okHandler)

	for i := range 2 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, asUser("alice"))
		require.Equal(t, http.StatusOK, rr.Code, "request %d", i+1)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, asUser("alice"))

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.JSONEq(t, rateLimitedBody, rr.Body.String())
}

func TestRateLimiter_PerCaller(t *testing.T) {
	rl := newLimiter(t, 1, 1, 100)
	h := rl.Middleware(okHandler)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, asUser("alice"))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, asUser("alice"))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, asUser("bob"))
	assert.Equal(t, http.StatusOK, rr.Code, "bob has his own bucket")
}

func TestRateLimiter_AnonymousByIP(t *testing.T) {
	rl := newLimiter(t, 1, 1, 100)
	h := rl.Middleware(okHandler)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("{}"))
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1111"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:2222"), "same host, different port")
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1111"))
}

func TestRateLimiter_EvictionIsBounded(t *testing.T) {
	rl := newLimiter(t, 1, 1, 2)
	h := rl.Middleware(okHandler)

	for _, id := range []string{"a", "b", "c"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, asUser(id))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	assert.Equal(t, 2, rl.buckets.Len())

	// "a" was evicted, so it starts over with a full bucket.
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, asUser("a"))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestNewRateLimiter_RejectsZeroSize(t *testing.T) {
	_, err := NewRateLimiter(RateLimitConfig{PerMinute: 1, Burst: 1, MaxKeys: 0}, quietLogger())
	assert.Error(t, err)
}
