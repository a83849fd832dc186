package processor

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/telemetry"
)

func newTelemetryCollector(cfg config.TelemetryConfig) (telemetry.Collector, prometheus.Gatherer, error) {
	if !cfg.Enabled {
		return telemetry.Noop(), nil, nil
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "prometheus":
		registry := prometheus.NewRegistry()
		collector, err := telemetry.NewPrometheusCollector(registry)
		if err != nil {
			return nil, nil, err
		}
		return collector, registry, nil
	default:
		return telemetry.Noop(), nil, fmt.Errorf("unsupported telemetry provider %q", cfg.Provider)
	}
}
