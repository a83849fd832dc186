package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Poll outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeUnreachable = "unreachable"
)

// Fetch miss kinds.
const (
	MissSoft = "soft_miss"
	MissHTTP = "http_error"
)

// Collector captures telemetry events emitted by the display engine.
//
// Hooks run inline with the poll and render activities and must be cheap.
type Collector interface {
	IncPoll(outcome string)
	IncFetchMiss(kind string)
	IncLayoutRebuild()
	IncRenderError()
	SetDisplays(count int)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncPoll(string)      {}
func (noopCollector) IncFetchMiss(string) {}
func (noopCollector) IncLayoutRebuild()   {}
func (noopCollector) IncRenderError()     {}
func (noopCollector) SetDisplays(int)     {}

// PrometheusCollector exposes telemetry via Prometheus.
type PrometheusCollector struct {
	polls        *prometheus.CounterVec
	fetchMisses  *prometheus.CounterVec
	rebuilds     prometheus.Counter
	renderErrors prometheus.Counter
	displays     prometheus.Gauge
}

// NewPrometheusCollector registers the metrics with the provided registerer.
// Registering twice on the same registerer reuses the existing collectors.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	polls, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metricdisplay_polls_total",
		Help: "Number of poll cycles by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	misses, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metricdisplay_fetch_misses_total",
		Help: "Number of per-display fetches rendered as unknown, by kind.",
	}, []string{"kind"}))
	if err != nil {
		return nil, err
	}
	rebuilds, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metricdisplay_layout_rebuilds_total",
		Help: "Number of display array rebuilds caused by layout changes.",
	}))
	if err != nil {
		return nil, err
	}
	renderErrors, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "metricdisplay_render_errors_total",
		Help: "Number of render passes where at least one display failed.",
	}))
	if err != nil {
		return nil, err
	}
	displays, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "metricdisplay_displays",
		Help: "Number of displays in the active layout.",
	}))
	if err != nil {
		return nil, err
	}

	return &PrometheusCollector{
		polls:        polls,
		fetchMisses:  misses,
		rebuilds:     rebuilds,
		renderErrors: renderErrors,
		displays:     displays,
	}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// IncPoll counts one poll cycle.
func (p *PrometheusCollector) IncPoll(outcome string) {
	if p == nil || p.polls == nil {
		return
	}
	p.polls.WithLabelValues(outcome).Inc()
}

// IncFetchMiss counts one display whose value could not be shown.
func (p *PrometheusCollector) IncFetchMiss(kind string) {
	if p == nil || p.fetchMisses == nil {
		return
	}
	p.fetchMisses.WithLabelValues(kind).Inc()
}

// IncLayoutRebuild counts one display array rebuild.
func (p *PrometheusCollector) IncLayoutRebuild() {
	if p == nil || p.rebuilds == nil {
		return
	}
	p.rebuilds.Inc()
}

// IncRenderError counts one failed render pass.
func (p *PrometheusCollector) IncRenderError() {
	if p == nil || p.renderErrors == nil {
		return
	}
	p.renderErrors.Inc()
}

// SetDisplays records the size of the active layout.
func (p *PrometheusCollector) SetDisplays(count int) {
	if p == nil || p.displays == nil {
		return
	}
	p.displays.Set(float64(count))
}
