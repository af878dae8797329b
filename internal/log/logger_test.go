package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: component, JSON: true, Output: buf})
}

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, ComponentWorker)

	logger.InfoContext(context.Background(), "hello", "k", "v")
	rec := lastRecord(t, &buf)
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, ComponentWorker, rec[FieldComponent])
	assert.Equal(t, "v", rec["k"])

	httpLogger := logger.WithComponent(ComponentHTTP)
	assert.Equal(t, ComponentHTTP, httpLogger.Component())
	assert.Equal(t, ComponentWorker, logger.Component())
}

func TestNewDefaultsComponent(t *testing.T) {
	logger := New(Config{Output: &bytes.Buffer{}})
	assert.Equal(t, ComponentApp, logger.Component())
}

func TestFromContextFallsBack(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	assert.Equal(t, "unknown", logger.Component())

	var buf bytes.Buffer
	stored := newJSONLogger(&buf, ComponentBudget)
	assert.Same(t, stored, FromContext(IntoContext(context.Background(), stored)))
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, ComponentHTTP)

	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).InfoContext(r.Context(), "inside")
	})
	handler = RequestIDMiddleware(func(*http.Request) string { return "req-42" })(handler)
	handler = Middleware(logger)(handler)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := lastRecord(t, &buf)
	assert.Equal(t, "req-42", rec[FieldRequestID])
	assert.Equal(t, ComponentHTTP, rec[FieldComponent])
}

func TestLogHTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newJSONLogger(&buf, ComponentHTTP))
		r := httptest.NewRequest(http.MethodPost, "/months/1/2025-01?x=1", nil)

		sl.LogHTTPEnd(context.Background(), r, tt.status, 12, "10.0.0.1")

		rec := lastRecord(t, &buf)
		assert.Equal(t, tt.level, rec["level"], "status %d", tt.status)
		assert.Equal(t, float64(tt.status), rec[FieldStatusCode])
		assert.Equal(t, tt.status < 400, rec[FieldSuccess])
		assert.Equal(t, "x=1", rec[FieldQuery])
		assert.Equal(t, "10.0.0.1", rec[FieldClientIP])
	}
}

func TestLogMonthUpdated(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newJSONLogger(&buf, ComponentHTTP))

	sl.LogMonthUpdated(context.Background(), "u1", "period1", "2025-03", "salary", 2500)

	rec := lastRecord(t, &buf)
	assert.Equal(t, "Month updated", rec["msg"])
	assert.Equal(t, "u1", rec[FieldUserID])
	assert.Equal(t, "2025-03", rec[FieldMonthID])
	assert.Equal(t, "salary", rec[FieldField])
	assert.Equal(t, float64(2500), rec[FieldValue])
	assert.Equal(t, OpUpdate, rec[FieldOperation])
}

func TestLogBudgetSavedWarning(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newJSONLogger(&buf, ComponentBudget))

	sl.LogBudgetSaved(context.Background(), "u1", 3, "")
	rec := lastRecord(t, &buf)
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, float64(3), rec[FieldVersion])

	sl.LogBudgetSaved(context.Background(), "u1", 4, "remote unavailable")
	rec = lastRecord(t, &buf)
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "remote unavailable", rec["warning"])
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newJSONLogger(&buf, ComponentHTTP))

	sl.LogError(context.Background(), "save failed", errors.New("disk full"), ComponentStorage, OpSync, nil)

	rec := lastRecord(t, &buf)
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "disk full", rec[FieldError])
	assert.Equal(t, ComponentStorage, rec[FieldComponent])
}
