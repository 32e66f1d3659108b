package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompactHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.With("component", "parser").Info("parsed file",
		"path", "src/lib.rs",
		"durationMs", int64(12),
		"error", errors.New("boom"),
		"note", "two words",
	)

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "[INFO]  "), line)
	assert.Contains(t, line, "parser: parsed file | path=src/lib.rs")
	assert.Contains(t, line, "duration=12ms")
	assert.Contains(t, line, `error="boom"`)
	assert.Contains(t, line, `note="two words"`)
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestCompactHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	h := NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	log := slog.New(NewCompactHandler(&buf, &slog.HandlerOptions{Level: LevelTrace}))
	log.Log(context.Background(), LevelTrace, "deep")
	assert.Contains(t, buf.String(), "[TRACE]")
}

func TestLevelFromConfig(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, LevelFromConfig("", 0))
	assert.Equal(t, slog.LevelDebug, LevelFromConfig("", 1))
	assert.Equal(t, LevelTrace, LevelFromConfig("", 3))
	assert.Equal(t, slog.LevelWarn, LevelFromConfig("WARN", 2))
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelInfo)

	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("X-Request-ID", "0123456789abcdef")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "0123456789abcdef", seen)
	assert.Equal(t, "0123456789abcdef", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, buf.String(), "request failed")
	assert.Contains(t, buf.String(), "req=01234567")
}

func TestComponentLoggerFollowsLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelInfo)
	log := New("early")

	log.Debug("hidden")
	assert.Empty(t, buf.String())

	SetOutput(&buf, slog.LevelDebug)
	log.WithGroup("g").Debug("shown", "k", "v")
	assert.Contains(t, buf.String(), "early: shown | g.k=v")
	SetOutput(&buf, slog.LevelInfo)
}

func TestSetOutputKeepsWriterAcrossFormats(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelInfo)
	defer SetOutput(&buf, slog.LevelInfo)

	SetJSONOutput(slog.LevelInfo)
	New("store").Info("saved run", "files", 2)

	line := strings.TrimSpace(buf.String())
	assert.True(t, strings.HasPrefix(line, "{"), line)
	assert.Contains(t, line, `"component":"store"`)
	assert.Contains(t, line, `"files":2`)
}
