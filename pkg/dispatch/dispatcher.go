package dispatch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"uptime/pkg/httpx"
	"uptime/pkg/logger"
	"uptime/pkg/telemetry"
	"uptime/pkg/value"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-Id"

// Options tunes a Dispatcher. The zero value reads bodies of any size and
// waits for handlers indefinitely.
type Options struct {
	// MaxBodySize caps the request body in bytes; 0 means unlimited.
	MaxBodySize int64
	// ReplyTimeout bounds the wait for a handler's completion; 0 means
	// wait until the handler replies or the client goes away.
	ReplyTimeout time.Duration
	Metrics      *telemetry.Metrics
}

// Dispatcher runs the request-to-response cycle shared by every listener.
type Dispatcher struct {
	reg  *Registry
	opts Options
}

// New returns a Dispatcher serving the handlers in reg.
func New(reg *Registry, opts Options) *Dispatcher {
	if reg == nil {
		reg = NewRegistry(nil, nil)
	}
	return &Dispatcher{reg: reg, opts: opts}
}

// Registry returns the handler table the dispatcher was built with.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Serve handles one request. It satisfies httpx.HandlerFunc.
func (d *Dispatcher) Serve(w httpx.ResponseWriter, r *httpx.Request) {
	tr := d.opts.Metrics.Track()
	logger.LogRequest(r)
	rec := newRecord(r)

	body, size, err := ReadBody(r.Body, d.opts.MaxBodySize)
	tr.Mark("body")
	if err != nil {
		out := Outcome{
			Status:  http.StatusRequestEntityTooLarge,
			Payload: map[string]any{"error": "request body too large"},
		}
		if !errors.Is(err, ErrBodyTooLarge) {
			logger.Warn("body_read_failed", "path", rec.Path, "request_id", rec.RequestID, "error", err)
			out = Outcome{
				Status:  http.StatusBadRequest,
				Payload: map[string]any{"error": "request body could not be read"},
			}
		}
		d.respond(w, rec, tr, out)
		return
	}
	if d.opts.Metrics != nil {
		d.opts.Metrics.BodyBytes.Observe(float64(size))
	}
	rec.Payload = value.ParseOrEmpty([]byte(body))

	h, found := d.reg.Lookup(rec.Path)
	if !found && d.opts.Metrics != nil {
		d.opts.Metrics.Fallbacks.Inc()
	}

	out, ok := d.invoke(rec.Ctx, h, rec)
	tr.Mark("handler")
	if !ok {
		logger.Warn("request_abandoned", "path", rec.Path, "request_id", rec.RequestID, "error", rec.Ctx.Err())
		return
	}
	d.respond(w, rec, tr, out)
}

// Reject answers r with out without reading the body or consulting the
// registry. The reply carries the request ID, metrics and response_sent
// event of a dispatched one.
func (d *Dispatcher) Reject(w httpx.ResponseWriter, r *httpx.Request, out Outcome) {
	tr := d.opts.Metrics.Track()
	d.respond(w, newRecord(r), tr, out)
}

// newRecord fills everything but the payload from r.
func newRecord(r *httpx.Request) *Request {
	ctx := r.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	path, query := Normalize(r.Target)
	reqID := r.Header.Get(RequestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	return &Request{
		Ctx:        ctx,
		Path:       path,
		Query:      query,
		Method:     NormalizeMethod(r.Method),
		Headers:    r.Header,
		Payload:    value.EmptyObject(),
		Transport:  r.Transport,
		RemoteAddr: r.RemoteAddr,
		RequestID:  reqID,
	}
}

// invoke calls h once and waits for the first completion. It reports false
// when the client went away before the handler replied.
func (d *Dispatcher) invoke(ctx context.Context, h Handler, rec *Request) (Outcome, bool) {
	results := make(chan Outcome, 1)
	var once sync.Once
	done := func(status int, payload any) {
		once.Do(func() {
			results <- Outcome{Status: status, Payload: payload}
		})
	}

	h(rec, done)

	select {
	case out := <-results:
		return out, true
	default:
	}

	var timeout <-chan time.Time
	if d.opts.ReplyTimeout > 0 {
		t := time.NewTimer(d.opts.ReplyTimeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case out := <-results:
		return out, true
	case <-timeout:
		logger.Warn("reply_timeout", "path", rec.Path, "request_id", rec.RequestID, "timeout", d.opts.ReplyTimeout)
		return Outcome{
			Status:  http.StatusGatewayTimeout,
			Payload: map[string]any{"error": "handler did not reply in time"},
		}, true
	case <-ctx.Done():
		return Outcome{}, false
	}
}

func (d *Dispatcher) respond(w httpx.ResponseWriter, rec *Request, tr *telemetry.Trace, out Outcome) {
	w.Header().Set(RequestIDHeader, rec.RequestID)
	status, body, err := WriteOutcome(w, out)
	tr.Mark("encode")
	d.opts.Metrics.ObserveResponse(rec.Transport, status, tr.Elapsed())
	if err != nil {
		logger.Warn("response_write_failed", "path", rec.Path, "request_id", rec.RequestID, "error", err)
	}
	logger.Info("response_sent",
		"path", rec.Path,
		"status", status,
		"body", string(body),
		"method", rec.Method,
		"transport", rec.Transport,
		"request_id", rec.RequestID,
		"duration_ms", tr.Elapsed().Milliseconds(),
	)
}
