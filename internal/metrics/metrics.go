// Package metrics exposes Prometheus counters for callbacks, provider calls and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/brizzai/entitlement-gate/internal/auth/flow"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "entitlement_gate"

// Recorder owns a private registry so tests and multiple instances do not collide.
type Recorder struct {
	registry *prometheus.Registry

	callbacksTotal      *prometheus.CounterVec
	providerCallsTotal  *prometheus.CounterVec
	providerCallSeconds *prometheus.HistogramVec
	sessionChecksTotal  *prometheus.CounterVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestSeconds  *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		callbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callbacks_total",
			Help:      "OAuth callbacks by outcome and reason",
		}, []string{"outcome", "reason"}),
		providerCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Outbound provider calls by step and result",
		}, []string{"step", "result"}),
		providerCallSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Latency of outbound provider calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"step"}),
		sessionChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_checks_total",
			Help:      "Session checks by result",
		}, []string{"authenticated"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "path", "status"}),
		httpRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.callbacksTotal,
		r.providerCallsTotal,
		r.providerCallSeconds,
		r.sessionChecksTotal,
		r.httpRequestsTotal,
		r.httpRequestSeconds,
	)
	return r
}

// ObserveCall implements flow.CallObserver.
func (r *Recorder) ObserveCall(step flow.Step, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.providerCallsTotal.WithLabelValues(string(step), result).Inc()
	r.providerCallSeconds.WithLabelValues(string(step)).Observe(d.Seconds())
}

// ObserveCallback counts a finished callback.
func (r *Recorder) ObserveCallback(res flow.Result) {
	r.callbacksTotal.WithLabelValues(string(res.Outcome), string(res.Reason)).Inc()
}

// ObserveSessionCheck counts a session check.
func (r *Recorder) ObserveSessionCheck(authenticated bool) {
	r.sessionChecksTotal.WithLabelValues(strconv.FormatBool(authenticated)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Middleware records request counts and latency, labelled by the chi route pattern.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		path := "unmatched"
		if rc := chi.RouteContext(req.Context()); rc != nil {
			if pattern := rc.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.httpRequestsTotal.WithLabelValues(req.Method, path, strconv.Itoa(status)).Inc()
		r.httpRequestSeconds.WithLabelValues(req.Method, path).Observe(time.Since(start).Seconds())
	})
}
