package bench

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels used on the request counter.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)

// Exporter publishes live bench metrics in Prometheus format on its own
// registry.
type Exporter struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	inFlight prometheus.Gauge
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "httpcst",
			Subsystem: "bench",
			Name:      "request_duration_seconds",
			Help:      "Latency of completed bench requests.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"request"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "httpcst",
			Subsystem: "bench",
			Name:      "requests_total",
			Help:      "Bench requests by outcome.",
		}, []string{"request", "outcome"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "httpcst",
			Subsystem: "bench",
			Name:      "requests_in_flight",
			Help:      "Bench requests currently waiting for a response.",
		}),
	}
	e.registry.MustRegister(e.duration, e.requests, e.inFlight)
	return e
}

func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Observe records one request. Timeouts carry no latency.
func (e *Exporter) Observe(name, outcome string, d time.Duration) {
	e.requests.WithLabelValues(name, outcome).Inc()
	if outcome != OutcomeTimeout {
		e.duration.WithLabelValues(name).Observe(d.Seconds())
	}
}

// Serve exposes /metrics on addr until ctx is done.
func (e *Exporter) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
