package config

import (
	"net/http"

	"github.com/Andreysim/Chat/pkg/metrics"
)

// MetricsInitResult reports what InitializeMetrics set up.
type MetricsInitResult struct {
	// Server exposes the /metrics endpoint. nil when metrics are disabled;
	// the caller owns ListenAndServe and Shutdown.
	Server *http.Server
}

// InitializeMetrics enables the process-wide metrics registry when the
// configuration asks for it. It must run before any component constructs
// its collectors, otherwise they register against a disabled registry and
// record nothing.
func InitializeMetrics(cfg *Config) MetricsInitResult {
	if !cfg.Metrics.Enabled {
		return MetricsInitResult{}
	}

	metrics.InitRegistry()
	return MetricsInitResult{Server: metrics.NewServer(cfg.Metrics.Port)}
}
