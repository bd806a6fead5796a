package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestContextLogger_CarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	base := NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))
	fallback := NewSlogLogger(slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil)))

	router := gin.New()
	router.Use(ContextLogger(base))
	router.GET("/ping", func(c *gin.Context) {
		LoggerFromContext(c, fallback).Info("pong")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	requestID := w.Header().Get("X-Request-ID")
	require.NotEmpty(t, requestID)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "pong", line["msg"])
	assert.Equal(t, requestID, line["request_id"])
	assert.Equal(t, "/ping", line["path"])
}

func TestLoggerFromContext_Fallback(t *testing.T) {
	fallback := NewSlogLogger(slog.Default())
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Same(t, fallback, LoggerFromContext(c, fallback))
}
