// Package observability exposes prometheus metrics for speech backends.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Call metrics
	backendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "narrate_backend_calls_total",
		Help: "Total number of backend operations",
	}, []string{"backend", "op", "status"})

	backendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "narrate_backend_latency_seconds",
		Help:    "Backend operation latency in seconds",
		Buckets: []float64{0.001, 0.005, 0.025, 0.1, 0.5, 1.0, 5.0, 10.0},
	}, []string{"backend", "op"})

	// Text metrics
	textBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "narrate_text_bytes_total",
		Help: "Total bytes of text submitted for speech",
	}, []string{"backend"})

	// Init metrics
	backendReady = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "narrate_backend_ready",
		Help: "Whether a backend is initialized (0 or 1)",
	}, []string{"backend"})
)

// Call tracks one backend operation.
type Call struct {
	backend string
	op      string
	start   time.Time
}

// StartCall begins timing an operation.
func StartCall(backend, op string) *Call {
	return &Call{backend: backend, op: op, start: time.Now()}
}

// End records the operation's latency and outcome. status is "ok" for a
// nil error and the error's name otherwise.
func (c *Call) End(err error) {
	backendLatency.WithLabelValues(c.backend, c.op).Observe(time.Since(c.start).Seconds())
	backendCalls.WithLabelValues(c.backend, c.op, Status(err)).Inc()
}

// Status maps an error to a metric label.
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	if s, ok := err.(interface{ String() string }); ok {
		return s.String()
	}
	return "error"
}

// RecordText counts submitted text bytes.
func RecordText(backend string, n int) {
	textBytes.WithLabelValues(backend).Add(float64(n))
}

// SetReady records a backend's readiness.
func SetReady(backend string, ready bool) {
	v := 0.0
	if ready {
		v = 1
	}
	backendReady.WithLabelValues(backend).Set(v)
}

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
