package metrics

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registry is the process-wide Prometheus registry. nil until InitRegistry
// is called, which is how IsEnabled distinguishes "metrics off".
var registry *prometheus.Registry

// InitRegistry creates the process-wide metrics registry and registers the
// standard Go and process collectors. It must be called before any
// New*Metrics constructor for metrics to be collected; calling it twice is
// a no-op.
func InitRegistry() {
	if registry != nil {
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// IsEnabled reports whether metrics collection is enabled.
func IsEnabled() bool {
	return registry != nil
}

// GetRegistry returns the process-wide registry, or nil when metrics are
// disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// RegisterBuildInfo publishes a constant build_info gauge labeled with the
// binary's version, commit, build date, and Go version. No-op when metrics
// are disabled.
func RegisterBuildInfo(version, commit, buildDate string) {
	if !IsEnabled() {
		return
	}

	buildInfo := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatd_build_info",
			Help: "A metric with a constant '1' value labeled by version, commit, builddate and goversion from which chatd was built.",
		},
		[]string{"version", "commit", "builddate", "goversion"},
	)
	registry.MustRegister(buildInfo)
	buildInfo.WithLabelValues(version, commit, buildDate, runtime.Version()).Set(1)
}

// NewServer returns an HTTP server exposing the registry on /metrics at the
// given port. The caller owns the server lifecycle (ListenAndServe and
// Shutdown). Returns nil when metrics are disabled.
func NewServer(port int) *http.Server {
	if !IsEnabled() {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
