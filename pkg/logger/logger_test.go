package logger

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"uptime/pkg/httpx"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestMaskedValue(t *testing.T) {
	assert.Equal(t, "", maskedValue(""))
	assert.Equal(t, "<redacted>", maskedValue("ab"))
	assert.Equal(t, "B*****n", maskedValue("Bearer token"))
	assert.Equal(t, "é*****ü", maskedValue("éxyzü"))
}

func TestSafeHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Accept", "application/json")
	h["Empty"] = nil
	assert.Equal(t, "Accept=a*****n; Authorization=B*****t", SafeHeaders(h))
}

func TestLogRequest(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug")
	defer func() { Log = nil }()

	LogRequest(&httpx.Request{Method: "GET", Target: "/ping?x=1", Transport: httpx.TransportHTTP, Header: http.Header{}})
	out := buf.String()
	assert.Contains(t, out, "incoming_request")
	assert.Contains(t, out, "target=\"/ping?x=1\"")
	assert.Contains(t, out, "transport=http")
}

func TestNilLoggerIsSafe(t *testing.T) {
	Log = nil
	assert.NotPanics(t, func() {
		Info("x")
		Warn("x")
		Error("x")
		Debug("x")
		LogRequest(&httpx.Request{})
	})
}
