// Package metrics exports model-call and cluster metrics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/specvital/codedoc/internal/adapter/ai/provider"
	"github.com/specvital/codedoc/internal/domain/docgen"
	docgenuc "github.com/specvital/codedoc/internal/usecase/docgen"
)

// Buckets sized for model latencies from sub-second local calls to multi-minute
// hosted generations.
var callDurationBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300}

var (
	_ provider.CallObserver   = (*Recorder)(nil)
	_ docgenuc.ClusterObserver = (*Recorder)(nil)
)

// Recorder implements provider.CallObserver and the use case's ClusterObserver.
type Recorder struct {
	callDuration    *prometheus.HistogramVec
	calls           *prometheus.CounterVec
	clusterDuration prometheus.Histogram
	clusters        *prometheus.CounterVec
	registry        *prometheus.Registry
}

// NewRecorder registers the metrics on a fresh registry under namespace.
func NewRecorder(namespace string) *Recorder {
	registry := prometheus.NewRegistry()

	r := &Recorder{
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Duration of model calls by provider family.",
			Buckets:   callDurationBuckets,
		}, []string{"family"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Finished model calls by model, provider family and provenance.",
		}, []string{"model", "family", "provenance"}),
		clusterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cluster_duration_seconds",
			Help:      "Time to generate, render and write one class document.",
			Buckets:   callDurationBuckets,
		}),
		clusters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clusters_total",
			Help:      "Finished clusters by outcome.",
		}, []string{"outcome"}),
		registry: registry,
	}

	registry.MustRegister(r.callDuration, r.calls, r.clusterDuration, r.clusters)
	return r
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveCall(model string, family provider.Family, provenance docgen.Provenance, d time.Duration) {
	r.calls.WithLabelValues(model, string(family), string(provenance)).Inc()
	r.callDuration.WithLabelValues(string(family)).Observe(d.Seconds())
}

func (r *Recorder) ObserveCluster(outcome string, d time.Duration) {
	r.clusters.WithLabelValues(outcome).Inc()
	r.clusterDuration.Observe(d.Seconds())
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	slog.InfoContext(ctx, "metrics endpoint listening", "address", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
