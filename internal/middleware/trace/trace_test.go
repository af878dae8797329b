package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "budget/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	cfg := applog.DefaultConfig()
	cfg.Output = buf
	cfg.Level = applog.ParseLevel("debug")
	return NewMiddleware(applog.New(cfg), func(*http.Request) string { return "198.51.100.4" })
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	var ctxLogger *applog.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		ctxLogger = applog.FromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/save", nil))

	require.True(t, strings.HasPrefix(seen, "req_"))
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
	assert.NotNil(t, ctxLogger)
	assert.Contains(t, buf.String(), "request_id="+seen)
	assert.Contains(t, buf.String(), "status_code=201")
	assert.Contains(t, buf.String(), "client_ip=198.51.100.4")
}

func TestMiddlewareKeepsValidIncomingID(t *testing.T) {
	m := newTestMiddleware(&bytes.Buffer{})
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "abc-123", rr.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "bad id\n")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.NotEqual(t, "bad id\n", rr.Header().Get(RequestIDHeader))
}

func TestMetrics(t *testing.T) {
	m := newTestMiddleware(&bytes.Buffer{})
	ok := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	fail := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.WriteHeader(http.StatusOK)
	}))

	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	fail.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	got := m.GetMetrics()
	assert.Equal(t, int64(2), got.TotalRequests)
	assert.Equal(t, int64(1), got.ServerErrors)
	assert.GreaterOrEqual(t, got.AverageResponseTime, int64(0))
}

func TestValidRequestID(t *testing.T) {
	assert.True(t, validRequestID("req_0123abcd"))
	assert.False(t, validRequestID(""))
	assert.False(t, validRequestID(strings.Repeat("a", 65)))
	assert.False(t, validRequestID("a;b"))
}

func TestGetRequestIDMissing(t *testing.T) {
	assert.Empty(t, GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
