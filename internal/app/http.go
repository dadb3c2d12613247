package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"uptime/pkg/config"
	"uptime/pkg/httpx"
	"uptime/pkg/logger"
)

// listener is one bound socket and the server draining it.
type listener struct {
	name     string
	addr     string
	ln       net.Listener
	serve    func(net.Listener) error
	shutdown func(context.Context) error
}

// startHTTP binds the plain, TLS and metrics listeners and serves them in
// goroutines. The returned channel delivers the first serve error.
func (a *App) startHTTP(_ context.Context) (<-chan error, error) {
	cfg := a.eff.Config

	var ls []*listener
	ls = append(ls, a.dispatchListener(httpx.TransportHTTP, cfg.HTTPAddr(), "", ""))
	if cfg.TLSEnabled() {
		ls = append(ls, a.dispatchListener(httpx.TransportHTTPS, cfg.HTTPSAddr(), cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile))
	}
	if cfg.Metrics.Address != "" {
		ls = append(ls, a.metricsListener(cfg.Metrics.Address))
	}

	for i, l := range ls {
		ln, err := net.Listen("tcp", l.addr)
		if err != nil {
			for _, prev := range ls[:i] {
				_ = prev.ln.Close()
			}
			return nil, fmt.Errorf("listen %s on %s: %w", l.name, l.addr, err)
		}
		l.ln = ln
	}

	a.mu.Lock()
	a.listeners = ls
	a.mu.Unlock()

	errCh := make(chan error, len(ls))
	for _, l := range ls {
		l := l
		logger.Info("http_listener_started", "listener", l.name, "addr", l.ln.Addr().String(), "engine", cfg.Server.Engine)
		go func() {
			err := l.serve(l.ln)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s listener: %w", l.name, err)
			}
		}()
	}
	return errCh, nil
}

func (a *App) dispatchListener(transport, addr, certFile, keyFile string) *listener {
	cfg := a.eff.Config
	l := &listener{name: transport, addr: addr}

	switch cfg.Server.Engine {
	case config.EngineFastHTTP:
		srv := &fasthttp.Server{
			Handler:               httpx.FastHTTPAdapter(a.handler, transport),
			StreamRequestBody:     true,
			ReadTimeout:           cfg.Server.ReadTimeout.Duration(),
			WriteTimeout:          cfg.Server.WriteTimeout.Duration(),
			IdleTimeout:           cfg.Server.IdleTimeout.Duration(),
			NoDefaultServerHeader: true,
		}
		if certFile != "" {
			l.serve = func(ln net.Listener) error { return srv.ServeTLS(ln, certFile, keyFile) }
		} else {
			l.serve = srv.Serve
		}
		l.shutdown = fastShutdown(srv)
	default:
		srv := &http.Server{
			Handler:      httpx.NetHTTPAdapter(a.handler, transport),
			ReadTimeout:  cfg.Server.ReadTimeout.Duration(),
			WriteTimeout: cfg.Server.WriteTimeout.Duration(),
			IdleTimeout:  cfg.Server.IdleTimeout.Duration(),
		}
		if certFile != "" {
			l.serve = func(ln net.Listener) error { return srv.ServeTLS(ln, certFile, keyFile) }
		} else {
			l.serve = srv.Serve
		}
		l.shutdown = srv.Shutdown
	}
	return l
}

func (a *App) metricsListener(addr string) *listener {
	l := &listener{name: "metrics", addr: addr}
	metrics := promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})

	if a.eff.Config.Server.Engine == config.EngineFastHTTP {
		fastMetrics := fasthttpadaptor.NewFastHTTPHandler(metrics)
		srv := &fasthttp.Server{
			Handler: func(ctx *fasthttp.RequestCtx) {
				if string(ctx.Path()) != "/metrics" {
					ctx.SetStatusCode(fasthttp.StatusNotFound)
					return
				}
				fastMetrics(ctx)
			},
			NoDefaultServerHeader: true,
		}
		l.serve = srv.Serve
		l.shutdown = fastShutdown(srv)
		return l
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics)
	srv := &http.Server{Handler: mux}
	l.serve = srv.Serve
	l.shutdown = srv.Shutdown
	return l
}

// fastShutdown bounds fasthttp's blocking Shutdown by ctx.
func fastShutdown(srv *fasthttp.Server) func(context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan error, 1)
		go func() { done <- srv.Shutdown() }()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
