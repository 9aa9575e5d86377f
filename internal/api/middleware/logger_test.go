package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger(t *testing.T) {
	serve := func(status int, ctx context.Context) map[string]interface{} {
		logBuffer := new(bytes.Buffer)
		testLogger := slog.New(slog.NewJSONHandler(logBuffer, nil))

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte("body"))
		})

		req := httptest.NewRequest(http.MethodGet, "/loans?page=2", nil).WithContext(ctx)
		req.RemoteAddr = "192.0.2.1:12345"
		req.Header.Set("User-Agent", "TestAgent/1.0")
		rr := httptest.NewRecorder()
		StructuredLogger(testLogger)(next).ServeHTTP(rr, req)
		require.Equal(t, status, rr.Code)

		var logEntry map[string]interface{}
		require.NoError(t, json.Unmarshal(logBuffer.Bytes(), &logEntry), "Failed to unmarshal log output")
		return logEntry
	}

	t.Run("Logs successful request at info", func(t *testing.T) {
		ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-123")
		ctx = WithUsername(ctx, "ada")
		logEntry := serve(http.StatusAccepted, ctx)

		assert.Equal(t, "INFO", logEntry["level"])
		assert.Equal(t, "Served request", logEntry["msg"])
		assert.Equal(t, "GET", logEntry["method"])
		assert.Equal(t, "/loans", logEntry["path"])
		assert.Equal(t, "192.0.2.1:12345", logEntry["remote_addr"])
		assert.Equal(t, "TestAgent/1.0", logEntry["user_agent"])
		assert.Equal(t, float64(http.StatusAccepted), logEntry["status"])
		assert.Equal(t, float64(4), logEntry["bytes_written"])
		assert.Equal(t, "req-123", logEntry["request_id"])
		assert.Equal(t, "ada", logEntry["username"])
		assert.Contains(t, logEntry, "latency_ms")
	})

	t.Run("Client errors log at warn", func(t *testing.T) {
		logEntry := serve(http.StatusNotFound, context.Background())
		assert.Equal(t, "WARN", logEntry["level"])
		assert.NotContains(t, logEntry, "username")
	})

	t.Run("Server errors log at error", func(t *testing.T) {
		logEntry := serve(http.StatusInternalServerError, context.Background())
		assert.Equal(t, "ERROR", logEntry["level"])
	})
}
