package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"loanbook/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 2}
	middleware := NewRateLimiterMiddleware(ctx, cfg, logger)

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.Middleware(nextHandler)

	request := func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/loans", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("allows requests within the burst", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, request("127.0.0.1:12345").Code)
		assert.Equal(t, http.StatusOK, request("127.0.0.1:12345").Code)
	})

	t.Run("blocks requests exceeding the rate limit", func(t *testing.T) {
		rec := request("127.0.0.1:12345")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "1", rec.Header().Get("Retry-After"))

		var response map[string]map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "Rate limit exceeded", response["error"]["message"])
	})

	t.Run("limits each client separately", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, request("10.1.1.1:4000").Code)
	})

	t.Run("extractIP handles various headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1")
		assert.Equal(t, "192.168.1.1", middleware.extractIP(req))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "10.0.0.1")
		assert.Equal(t, "10.0.0.1", middleware.extractIP(req))

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		assert.Equal(t, "127.0.0.1", middleware.extractIP(req))
	})
}

func TestRateLimiterMiddleware_Disabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	middleware := NewRateLimiterMiddleware(context.Background(), config.RateLimitConfig{Enabled: false}, logger)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := middleware.Middleware(next)
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimiterMiddleware_EvictIdle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	middleware := NewRateLimiterMiddleware(ctx, config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 1}, logger)
	clock := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)
	middleware.now = func() time.Time { return clock }

	middleware.getLimiter("10.0.0.1")
	clock = clock.Add(5 * time.Minute)
	middleware.getLimiter("10.0.0.2")

	clock = clock.Add(6 * time.Minute)
	assert.Equal(t, 1, middleware.evictIdle())

	middleware.mu.Lock()
	defer middleware.mu.Unlock()
	assert.NotContains(t, middleware.visitors, "10.0.0.1")
	assert.Contains(t, middleware.visitors, "10.0.0.2")
}
