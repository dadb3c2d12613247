package dispatch

import (
	"net/http"
	"sort"
)

// Registry maps normalized paths to handlers. It is immutable once built and
// safe for concurrent lookups.
type Registry struct {
	routes   map[string]Handler
	notFound Handler
}

// NewRegistry copies routes into a new registry. notFound serves every path
// without an entry; when nil a bare 404 handler is used.
func NewRegistry(routes map[string]Handler, notFound Handler) *Registry {
	r := &Registry{routes: make(map[string]Handler, len(routes)), notFound: notFound}
	for path, h := range routes {
		if h == nil {
			continue
		}
		r.routes[path] = h
	}
	if r.notFound == nil {
		r.notFound = func(_ *Request, done Done) { done(http.StatusNotFound, nil) }
	}
	return r
}

// Lookup returns the handler registered for path, or the fallback handler
// with found set to false.
func (r *Registry) Lookup(path string) (h Handler, found bool) {
	if h, ok := r.routes[path]; ok {
		return h, true
	}
	return r.notFound, false
}

// Paths returns the registered paths in sorted order.
func (r *Registry) Paths() []string {
	out := make([]string, 0, len(r.routes))
	for p := range r.routes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
