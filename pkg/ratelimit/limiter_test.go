package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"uptime/pkg/dispatch"
	"uptime/pkg/httpx"
	"uptime/pkg/telemetry"
)

func TestPool_AllowPerKey(t *testing.T) {
	p := NewPool(Config{RPS: 0.001, Burst: 2})
	defer p.Shutdown()

	assert.True(t, p.Allow("a"))
	assert.True(t, p.Allow("a"))
	assert.False(t, p.Allow("a"))
	assert.True(t, p.Allow("b"))
	assert.Equal(t, 2, p.Len())
}

func TestPool_Evict(t *testing.T) {
	p := NewPool(Config{RPS: 1, Burst: 1, TTL: time.Minute, CleanupPeriod: time.Hour})
	defer p.Shutdown()

	now := time.Now()
	p.now = func() time.Time { return now }
	p.Allow("old")
	now = now.Add(2 * time.Minute)
	p.Allow("new")

	p.evict()
	assert.Equal(t, 1, p.Len())
	p.Shutdown()
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "10.0.0.1", ClientIP("10.0.0.1:4242"))
	assert.Equal(t, "::1", ClientIP("[::1]:80"))
	assert.Equal(t, "pipe", ClientIP("pipe"))
}

func TestMiddleware(t *testing.T) {
	m := telemetry.NewMetrics(prometheus.NewRegistry())
	p := NewPool(Config{RPS: 0.001, Burst: 1})
	defer p.Shutdown()

	d := dispatch.New(nil, dispatch.Options{Metrics: m})
	calls := 0
	h := httpx.Chain(func(w httpx.ResponseWriter, r *httpx.Request) {
		calls++
		w.WriteHeader(http.StatusNoContent)
	}, Middleware(p, d, m))

	req := &httpx.Request{RemoteAddr: "10.0.0.1:1000", Transport: httpx.TransportHTTP, Header: http.Header{}}

	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Len(t, rec.Header().Get(dispatch.RequestIDHeader), 36)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Limited))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("http", "429")))
}
