package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the dispatcher collectors.
type Metrics struct {
	Requests  *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
	Fallbacks prometheus.Counter
	BodyBytes prometheus.Histogram
	Steps     *prometheus.HistogramVec
	Limited   prometheus.Counter
}

// Default is registered with the prometheus default registerer.
var Default = NewMetrics(prometheus.DefaultRegisterer)

// NewMetrics builds the collectors and registers them with reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uptime_requests_total",
			Help: "Dispatched requests by transport and response status.",
		}, []string{"transport", "status"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uptime_request_duration_seconds",
			Help:    "Time from request arrival to response written.",
			Buckets: prometheus.DefBuckets,
		}, []string{"transport"}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptime_fallback_total",
			Help: "Requests routed to the not-found handler.",
		}),
		BodyBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "uptime_request_body_bytes",
			Help:    "Size of accumulated request bodies.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		}),
		Steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "uptime_dispatch_step_seconds",
			Help:    "Duration of each dispatch step.",
			Buckets: prometheus.DefBuckets,
		}, []string{"step"}),
		Limited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptime_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Duration, m.Fallbacks, m.BodyBytes, m.Steps, m.Limited)
	}
	return m
}

// ObserveResponse records one completed request.
func (m *Metrics) ObserveResponse(transport string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(transport, strconv.Itoa(status)).Inc()
	m.Duration.WithLabelValues(transport).Observe(elapsed.Seconds())
}

// Trace measures the steps of a single dispatch.
type Trace struct {
	Start    time.Time
	lastMark time.Time
	m        *Metrics
}

// Track starts a new trace.
func (m *Metrics) Track() *Trace {
	now := time.Now()
	return &Trace{Start: now, lastMark: now, m: m}
}

// Mark records the elapsed duration since the last mark under label.
func (tr *Trace) Mark(label string) {
	now := time.Now()
	if tr.m != nil {
		tr.m.Steps.WithLabelValues(label).Observe(now.Sub(tr.lastMark).Seconds())
	}
	tr.lastMark = now
}

// Elapsed returns the time since the trace started.
func (tr *Trace) Elapsed() time.Duration {
	return time.Since(tr.Start)
}
