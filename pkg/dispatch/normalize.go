package dispatch

import (
	"net/url"
	"strings"
)

// NormalizePath strips every leading and trailing '/' from p. Interior
// separators, case and escaping are left untouched.
func NormalizePath(p string) string {
	return strings.Trim(p, "/")
}

// NormalizeMethod lower-cases the method token.
func NormalizeMethod(m string) string {
	return strings.ToLower(m)
}

// Normalize splits a raw request target into its normalized path and the
// parsed query. It never fails.
func Normalize(target string) (string, url.Values) {
	path, rawQuery := splitTarget(target)
	// absolute-form targets carry a scheme and authority before the path
	if !strings.HasPrefix(target, "/") {
		if u, err := url.Parse(target); err == nil && u.Scheme != "" {
			path, rawQuery = u.EscapedPath(), u.RawQuery
		}
	}
	return NormalizePath(path), parseQuery(rawQuery)
}

// parseQuery splits pairs on '&' only, so ';' stays part of a value. Escapes
// that do not decode are kept verbatim.
func parseQuery(raw string) url.Values {
	query := url.Values{}
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key := unescape(k)
		query[key] = append(query[key], unescape(v))
	}
	return query
}

func unescape(s string) string {
	if u, err := url.QueryUnescape(s); err == nil {
		return u
	}
	return s
}

func splitTarget(target string) (string, string) {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	path, rawQuery, _ := strings.Cut(target, "?")
	return path, rawQuery
}
