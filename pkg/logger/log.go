package logger

import (
	"net/http"
	"sort"
	"strings"
	"unicode/utf8"

	"uptime/pkg/httpx"
)

func maskedValue(v string) string {
	if v == "" {
		return ""
	}
	// keep first and last rune, mask the middle with fixed asterisks
	l := utf8.RuneCountInString(v)
	if l <= 2 {
		return "<redacted>"
	}
	first, _ := utf8.DecodeRuneInString(v)
	last, _ := utf8.DecodeLastRuneInString(v)
	return string(first) + "*****" + string(last)
}

// SafeHeaders returns a compact string representation of headers suitable for
// logging with values masked.
func SafeHeaders(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+maskedValue(h[k][0]))
	}
	return strings.Join(parts, "; ")
}

// LogRequest logs a concise, safe summary of an incoming request.
func LogRequest(r *httpx.Request) {
	if Log == nil {
		return
	}
	Debug("incoming_request",
		"method", r.Method,
		"target", r.Target,
		"transport", r.Transport,
		"remote", r.RemoteAddr,
		"headers", SafeHeaders(r.Header),
	)
}
