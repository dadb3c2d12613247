package httpx

import (
	"context"
	"io"
	"net/http"
)

// Transport labels the listener a request arrived on.
const (
	TransportHTTP  = "http"
	TransportHTTPS = "https"
)

// Request is the unified request representation handed to the dispatcher by
// every listener, whatever engine or transport accepted it.
type Request struct {
	Ctx    context.Context
	Method string
	// Target is the raw request-URI (path plus optional query) as sent by
	// the client.
	Target     string
	Header     http.Header
	Body       io.Reader
	RemoteAddr string
	Transport  string
	// Raw holds the underlying transport-specific request object
	// (e.g. *http.Request or *fasthttp.RequestCtx) for escape hatches.
	Raw interface{}
}

// ResponseWriter is a small subset of http.ResponseWriter semantics
// that we require from adapters.
type ResponseWriter interface {
	Header() http.Header
	Write([]byte) (int, error)
	WriteHeader(status int)
}

// HandlerFunc is the handler signature shared by all adapters.
type HandlerFunc func(w ResponseWriter, r *Request)

// Middleware wraps a HandlerFunc.
type Middleware func(HandlerFunc) HandlerFunc

// Chain applies middlewares so that the first one listed runs first.
func Chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
