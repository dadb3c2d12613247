// Package ratelimit throttles clients per remote IP with token buckets.
package ratelimit

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"uptime/pkg/dispatch"
	"uptime/pkg/httpx"
	"uptime/pkg/logger"
	"uptime/pkg/telemetry"
)

// Config sets the bucket refill rate and size. RPS 0 disables limiting.
type Config struct {
	RPS   float64
	Burst int
	// TTL evicts buckets idle for longer; CleanupPeriod is how often.
	TTL           time.Duration
	CleanupPeriod time.Duration
}

type entry struct {
	l        *rate.Limiter
	lastSeen time.Time
}

// Pool hands out one limiter per key and forgets idle keys.
type Pool struct {
	mu           sync.Mutex
	m            map[string]*entry
	cfg          Config
	startCleanup sync.Once
	stopOnce     sync.Once
	stopCh       chan struct{}
	now          func() time.Time
}

// NewPool returns a pool for cfg. A Burst below 1 is raised to 1.
func NewPool(cfg Config) *Pool {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.TTL == 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.CleanupPeriod == 0 {
		cfg.CleanupPeriod = time.Minute
	}
	return &Pool{
		m:      make(map[string]*entry),
		cfg:    cfg,
		stopCh: make(chan struct{}),
		now:    time.Now,
	}
}

func (p *Pool) get(key string) *rate.Limiter {
	p.startCleanup.Do(func() { go p.cleanupLoop() })

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.m[key]; ok {
		e.lastSeen = p.now()
		return e.l
	}
	l := rate.NewLimiter(rate.Limit(p.cfg.RPS), p.cfg.Burst)
	p.m[key] = &entry{l: l, lastSeen: p.now()}
	return l
}

// Allow reports whether key may make a request now.
func (p *Pool) Allow(key string) bool {
	return p.get(key).Allow()
}

// Len returns the number of tracked keys.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

// Shutdown stops the cleanup goroutine.
func (p *Pool) Shutdown() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

func (p *Pool) evict() {
	cutoff := p.now().Add(-p.cfg.TTL)
	p.mu.Lock()
	for k, e := range p.m {
		if e.lastSeen.Before(cutoff) {
			delete(p.m, k)
		}
	}
	p.mu.Unlock()
}

func (p *Pool) cleanupLoop() {
	ticker := time.NewTicker(p.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.evict()
		case <-p.stopCh:
			return
		}
	}
}

// ClientIP strips the port from a remote address.
func ClientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// Rejecter answers a request without dispatching it. *dispatch.Dispatcher
// implements it.
type Rejecter interface {
	Reject(w httpx.ResponseWriter, r *httpx.Request, out dispatch.Outcome)
}

// Middleware rejects requests over the per-IP limit with a 429 JSON reply
// written through rj.
func Middleware(p *Pool, rj Rejecter, m *telemetry.Metrics) httpx.Middleware {
	return func(next httpx.HandlerFunc) httpx.HandlerFunc {
		return func(w httpx.ResponseWriter, r *httpx.Request) {
			ip := ClientIP(r.RemoteAddr)
			if p.Allow(ip) {
				next(w, r)
				return
			}
			if m != nil {
				m.Limited.Inc()
			}
			logger.Warn("rate_limited", "remote", ip, "target", r.Target, "transport", r.Transport)
			rj.Reject(w, r, dispatch.Outcome{
				Status:  http.StatusTooManyRequests,
				Payload: map[string]any{"error": "rate limit exceeded"},
			})
		}
	}
}
