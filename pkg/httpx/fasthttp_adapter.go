package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/valyala/fasthttp"
)

// FastHTTPAdapter adapts a HandlerFunc into a fasthttp.RequestHandler. When the
// server runs with StreamRequestBody the body is read from the connection as
// the dispatcher consumes it.
//
// fasthttp reports no client disconnect to a running handler. Request.Ctx
// derives from the RequestCtx, so it is cancelled when the server shuts down
// and otherwise only when the handler returns.
func FastHTTPAdapter(h HandlerFunc, transport string) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		cctx, cancel := context.WithCancel(ctx)
		defer cancel()

		// build headers
		hdr := make(http.Header)
		ctx.Request.Header.VisitAll(func(k, v []byte) {
			key := http.CanonicalHeaderKey(string(k))
			hdr[key] = append(hdr[key], string(v))
		})

		var body io.Reader
		if ctx.Request.IsBodyStream() {
			body = ctx.RequestBodyStream()
		} else {
			// buffered mode: fasthttp reuses the body slice after the handler returns
			body = bytes.NewReader(append([]byte(nil), ctx.PostBody()...))
		}

		req := &Request{
			Ctx:        cctx,
			Method:     string(ctx.Method()),
			Target:     string(ctx.RequestURI()),
			Header:     hdr,
			Body:       body,
			RemoteAddr: ctx.RemoteAddr().String(),
			Transport:  transport,
			Raw:        ctx,
		}

		rw := &fastHTTPResponseWriter{ctx: ctx, header: make(http.Header)}
		h(rw, req)
	}
}

type fastHTTPResponseWriter struct {
	ctx    *fasthttp.RequestCtx
	header http.Header
	status int
}

func (f *fastHTTPResponseWriter) Header() http.Header { return f.header }

func (f *fastHTTPResponseWriter) WriteHeader(status int) {
	if f.status != 0 {
		return
	}
	f.status = status
	// copy headers into fasthttp response header
	for k, vals := range f.header {
		for i, v := range vals {
			if i == 0 {
				f.ctx.Response.Header.Set(k, v)
				continue
			}
			f.ctx.Response.Header.Add(k, v)
		}
	}
	f.ctx.SetStatusCode(status)
}

func (f *fastHTTPResponseWriter) Write(b []byte) (int, error) {
	if f.status == 0 {
		f.WriteHeader(http.StatusOK)
	}
	return f.ctx.Write(b)
}
