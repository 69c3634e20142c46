package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(buf, nil))

	r := gin.New()
	r.Use(CorrelationIDMiddleware(), SlogLoggerMiddleware(logger))
	r.GET("/echo", func(c *gin.Context) {
		c.String(http.StatusOK, GetCorrelationID(c)+"|"+CorrelationIDFromContext(c.Request.Context()))
	})
	r.GET("/fail", func(c *gin.Context) {
		c.Status(http.StatusBadGateway)
	})
	r.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func serve(r *gin.Engine, path, correlationID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if correlationID != "" {
		req.Header.Set(CorrelationIDHeader, correlationID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCorrelationIDIsPropagated(t *testing.T) {
	var buf bytes.Buffer
	w := serve(newEngine(&buf), "/echo", "req-123")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123|req-123", w.Body.String())
	assert.Equal(t, "req-123", w.Header().Get(CorrelationIDHeader))
	assert.Contains(t, buf.String(), "correlation_id=req-123")
}

func TestCorrelationIDIsRegeneratedWhenUnusable(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(&buf)

	for _, incoming := range []string{"", "bad id with spaces", strings.Repeat("a", 65)} {
		w := serve(r, "/echo", incoming)
		id := w.Header().Get(CorrelationIDHeader)
		assert.NotEqual(t, incoming, id)
		assert.Len(t, id, 36)
	}
}

func TestLoggerLevelsAndQuietPaths(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(&buf)

	serve(r, "/health", "")
	assert.Empty(t, buf.String())

	serve(r, "/fail", "")
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "status=502")
}

func TestLoggerFromContextFallsBack(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Same(t, slog.Default(), LoggerFromContext(c))
}
