package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uptime/pkg/dispatch"
	"uptime/pkg/httpx"
	"uptime/pkg/value"
)

func call(h dispatch.Handler, r *dispatch.Request) dispatch.Outcome {
	var out dispatch.Outcome
	h(r, func(status int, payload any) { out = dispatch.Outcome{Status: status, Payload: payload} })
	return out
}

func TestBuiltins(t *testing.T) {
	req := &dispatch.Request{
		Path:    "sample",
		Method:  "post",
		Query:   url.Values{"name": {"ada"}},
		Payload: value.Of(map[string]any{"x": 1}),
	}

	out := call(Ping, req)
	assert.Equal(t, http.StatusOK, out.Status)
	assert.Nil(t, out.Payload)

	out = call(NotFound, req)
	assert.Equal(t, http.StatusNotFound, out.Status)
	assert.Nil(t, out.Payload)

	out = call(Health, req)
	assert.Equal(t, map[string]any{"status": "ok"}, out.Payload)

	out = call(Hello, req)
	assert.Equal(t, map[string]any{"message": "Hello, ada!"}, out.Payload)

	out = call(Hello, &dispatch.Request{Query: url.Values{}, Payload: value.EmptyObject()})
	assert.Equal(t, map[string]any{"message": "Hello, world!"}, out.Payload)

	_, body := dispatch.Resolve(call(Echo, req))
	assert.JSONEq(t, `{"path":"sample","method":"post","query":{"name":["ada"]},"payload":{"x":1}}`, string(body))
}

func TestBuildRegistry(t *testing.T) {
	reg, err := BuildRegistry(map[string]string{"/api/ping/": NamePing, "hi": NameHello}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"api/ping", "hi"}, reg.Paths())

	_, found := reg.Lookup("api/ping")
	assert.True(t, found)
	h, found := reg.Lookup("missing")
	assert.False(t, found)
	assert.Equal(t, http.StatusNotFound, call(h, &dispatch.Request{}).Status)
}

func TestBuildRegistry_Defaults(t *testing.T) {
	reg, err := BuildRegistry(nil, NameHealth)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", "ping", "sample"}, reg.Paths())

	h, found := reg.Lookup("nowhere")
	assert.False(t, found)
	assert.Equal(t, map[string]any{"status": "ok"}, call(h, &dispatch.Request{}).Payload)
}

func TestBuildRegistry_UnknownNames(t *testing.T) {
	_, err := BuildRegistry(map[string]string{"x": "bogus"}, "")
	assert.ErrorContains(t, err, `unknown handler "bogus"`)

	_, err = BuildRegistry(map[string]string{}, "bogus")
	assert.ErrorContains(t, err, "not_found")
}

func TestSampleRouteThroughDispatcher(t *testing.T) {
	reg, err := BuildRegistry(nil, "")
	require.NoError(t, err)
	d := dispatch.New(reg, dispatch.Options{})

	rec := httptest.NewRecorder()
	d.Serve(rec, &httpx.Request{
		Ctx:       context.Background(),
		Method:    "PUT",
		Target:    "/sample?name=ada",
		Header:    http.Header{},
		Body:      strings.NewReader(`{"x":1}`),
		Transport: httpx.TransportHTTPS,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":"sample","method":"put","query":{"name":["ada"]},"payload":{"x":1}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	d.Serve(rec, &httpx.Request{Ctx: context.Background(), Method: "GET", Target: "/nope", Header: http.Header{}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "{}", rec.Body.String())
}
