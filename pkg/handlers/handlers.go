// Package handlers holds the built-in route handlers and the name catalogue
// the configuration refers to.
package handlers

import (
	"fmt"
	"net/http"
	"sort"

	"uptime/pkg/dispatch"
)

// Handler names accepted in the routes configuration.
const (
	NamePing     = "ping"
	NameHello    = "hello"
	NameEcho     = "echo"
	NameHealth   = "health"
	NameNotFound = "notFound"
)

// DefaultRoutes is the route table used when the configuration names none.
var DefaultRoutes = map[string]string{
	"ping":   NamePing,
	"hello":  NameHello,
	"sample": NameEcho,
}

// Ping answers 200 with no payload.
func Ping(_ *dispatch.Request, done dispatch.Done) {
	done(http.StatusOK, nil)
}

// Hello greets the caller, by name when the query or payload carries one.
func Hello(r *dispatch.Request, done dispatch.Done) {
	name := r.Query.Get("name")
	if v, ok := r.Payload.Get("name"); ok && v.Str() != "" {
		name = v.Str()
	}
	msg := "Hello, world!"
	if name != "" {
		msg = fmt.Sprintf("Hello, %s!", name)
	}
	done(http.StatusOK, map[string]any{"message": msg})
}

// Echo reflects the normalized request back to the caller.
func Echo(r *dispatch.Request, done dispatch.Done) {
	query := make(map[string]any, len(r.Query))
	for k, vals := range r.Query {
		query[k] = vals
	}
	done(http.StatusOK, map[string]any{
		"path":    r.Path,
		"method":  r.Method,
		"query":   query,
		"payload": r.Payload,
	})
}

// Health reports liveness.
func Health(_ *dispatch.Request, done dispatch.Done) {
	done(http.StatusOK, map[string]any{"status": "ok"})
}

// NotFound answers 404 with no payload.
func NotFound(_ *dispatch.Request, done dispatch.Done) {
	done(http.StatusNotFound, nil)
}

var catalogue = map[string]dispatch.Handler{
	NamePing:     Ping,
	NameHello:    Hello,
	NameEcho:     Echo,
	NameHealth:   Health,
	NameNotFound: NotFound,
}

// Lookup returns the built-in handler called name.
func Lookup(name string) (dispatch.Handler, bool) {
	h, ok := catalogue[name]
	return h, ok
}

// Names lists the built-in handler names in sorted order.
func Names() []string {
	out := make([]string, 0, len(catalogue))
	for n := range catalogue {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// BuildRegistry resolves a path → handler-name table into an immutable
// registry. Paths are normalized the same way request targets are. An empty
// notFound selects the built-in NotFound handler.
func BuildRegistry(routes map[string]string, notFound string) (*dispatch.Registry, error) {
	if routes == nil {
		routes = DefaultRoutes
	}
	table := make(map[string]dispatch.Handler, len(routes))
	for path, name := range routes {
		h, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("route %q: unknown handler %q", path, name)
		}
		table[dispatch.NormalizePath(path)] = h
	}
	if notFound == "" {
		notFound = NameNotFound
	}
	fallback, ok := Lookup(notFound)
	if !ok {
		return nil, fmt.Errorf("not_found: unknown handler %q", notFound)
	}
	return dispatch.NewRegistry(table, fallback), nil
}
