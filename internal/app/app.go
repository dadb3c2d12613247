package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"uptime/pkg/config"
	"uptime/pkg/config/banner"
	"uptime/pkg/dispatch"
	"uptime/pkg/handlers"
	"uptime/pkg/httpx"
	"uptime/pkg/logger"
	"uptime/pkg/ratelimit"
	"uptime/pkg/telemetry"
)

// App groups server state and components.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	registry *dispatch.Registry
	handler  httpx.HandlerFunc
	limiter  *ratelimit.Pool
	metrics  *telemetry.Metrics
	gatherer prometheus.Gatherer
	out      io.Writer

	mu        sync.Mutex
	listeners []*listener
	ready     chan struct{}
	state     string
}

// New builds the registry, dispatcher and middleware chain. It does not
// bind any sockets; call Run for that.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	return newApp(eff, version, commit, buildDate, telemetry.Default, prometheus.DefaultGatherer)
}

func newApp(eff config.EffectiveConfigResult, version, commit, buildDate string, m *telemetry.Metrics, g prometheus.Gatherer) (*App, error) {
	if err := config.ValidateConfig(eff); err != nil {
		return nil, err
	}
	cfg := eff.Config

	reg, err := handlers.BuildRegistry(cfg.Routes, cfg.NotFound)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	d := dispatch.New(reg, dispatch.Options{
		MaxBodySize:  cfg.Server.MaxBodySize.Int64(),
		ReplyTimeout: cfg.Dispatch.ReplyTimeout.Duration(),
		Metrics:      m,
	})

	a := &App{
		eff:       eff,
		version:   version,
		commit:    commit,
		buildDate: buildDate,
		registry:  reg,
		handler:   d.Serve,
		metrics:   m,
		gatherer:  g,
		out:       os.Stdout,
		ready:     make(chan struct{}),
		state:     "initialized",
	}

	if cfg.RateLimit.RPS > 0 {
		a.limiter = ratelimit.NewPool(ratelimit.Config{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
			TTL:   cfg.RateLimit.TTL.Duration(),
		})
		a.handler = httpx.Chain(a.handler, ratelimit.Middleware(a.limiter, d, m))
	}

	logger.Info("app_initialized",
		"env", cfg.Env,
		"engine", cfg.Server.Engine,
		"routes", len(reg.Paths()),
		"tls", cfg.TLSEnabled(),
		"rate_limit", a.limiter != nil,
	)
	return a, nil
}

// Run starts the listeners and blocks until ctx is cancelled or a listener
// fails.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	errCh, err := a.startHTTP(ctx)
	if err != nil {
		return err
	}
	a.setState("running")
	close(a.ready)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Ready is closed once every listener is bound.
func (a *App) Ready() <-chan struct{} { return a.ready }

// Addr returns the bound address of the named listener ("http", "https" or
// "metrics"), or "" if it is not running.
func (a *App) Addr(name string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, l := range a.listeners {
		if l.name == name && l.ln != nil {
			return l.ln.Addr().String()
		}
	}
	return ""
}

// State reports the lifecycle phase.
func (a *App) State() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *App) setState(s string) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.Print(a.out, a.eff, a.registry.Paths(), verStr)
}
