package dispatch

import (
	"context"
	"net/http"
	"net/url"

	"uptime/pkg/value"
)

// Request is the canonical record handed to a handler. It is built once the
// whole body has arrived and must be treated as read-only.
type Request struct {
	Ctx     context.Context
	Path    string
	Query   url.Values
	Method  string
	Headers http.Header
	Payload value.Value

	Transport  string
	RemoteAddr string
	RequestID  string
}

// Outcome is what a handler reports through its completion callback.
// A Status outside 100..999 means "not supplied" and a Payload that is not a
// JSON object means "no payload".
type Outcome struct {
	Status  int
	Payload any
}

// Done is the completion callback passed to handlers. Only the first call
// has any effect; it may be made from any goroutine.
type Done func(status int, payload any)

// Handler serves one dispatched request and reports through done.
type Handler func(req *Request, done Done)
