package processor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/internal/logging"
	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/remote"
	"github.com/timzifer/metricdisplay/service"
	"github.com/timzifer/metricdisplay/serviceio"
	"github.com/timzifer/metricdisplay/telemetry"
)

// Option configures the processor during construction.
type Option func(*settings) error

type settings struct {
	config            *config.Config
	configPath        string
	logger            zerolog.Logger
	customLogger      bool
	telemetry         telemetry.Collector
	telemetryProvided bool
	backends          map[string]serviceio.BackendFactory
	source            layout.Source
	httpClient        *http.Client
	hostInit          func() error
}

// Processor wires configuration, hardware and the display engine and owns
// their lifecycle.
type Processor struct {
	mu sync.Mutex

	config    *config.Config
	logger    zerolog.Logger
	cleanup   func()
	collector telemetry.Collector
	gatherer  prometheus.Gatherer

	srv     *service.Service
	running bool
	closed  bool
}

// New constructs a processor with the supplied options. Hardware is opened here;
// displays are set up when Run starts.
func New(ctx context.Context, opts ...Option) (*Processor, error) {
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	s := settings{
		logger:    zerolog.Nop(),
		telemetry: telemetry.Noop(),
		hostInit:  initHost,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&s); err != nil {
			return nil, err
		}
	}

	if s.config == nil {
		if s.configPath == "" {
			s.config = config.Default()
		} else {
			loaded, err := config.Load(s.configPath)
			if err != nil {
				return nil, fmt.Errorf("load configuration: %w", err)
			}
			s.config = loaded
		}
	}
	cfg := s.config
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := s.logger
	cleanup := func() {}
	if !s.customLogger {
		configured, closer, err := logging.Setup(cfg.Logging, cfg.Remote.Hostname)
		if err != nil {
			return nil, fmt.Errorf("setup logging: %w", err)
		}
		logger, cleanup = configured, closer
	}

	collector, gatherer := s.telemetry, prometheus.Gatherer(nil)
	if !s.telemetryProvided {
		built, reg, err := newTelemetryCollector(cfg.Telemetry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
			built = telemetry.Noop()
		}
		collector, gatherer = built, reg
	}

	proc := &Processor{
		config:    cfg,
		logger:    logger,
		cleanup:   cleanup,
		collector: collector,
		gatherer:  gatherer,
	}
	srv, err := proc.buildService(s)
	if err != nil {
		cleanup()
		return nil, err
	}
	proc.srv = srv
	return proc, nil
}

func (p *Processor) buildService(s settings) (*service.Service, error) {
	cfg := p.config
	if needsHost(cfg, s) && s.hostInit != nil {
		if err := s.hostInit(); err != nil {
			return nil, err
		}
	}

	factories := builtinBackends()
	for name, factory := range s.backends {
		factories[name] = factory
	}
	factory, ok := factories[cfg.Display.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown display backend %q", cfg.Display.Backend)
	}
	backend, err := factory(cfg.Display, serviceio.BackendDependencies{
		Logger: p.logger.With().Str("component", "display").Str("backend", cfg.Display.Backend).Logger(),
	})
	if err != nil {
		return nil, fmt.Errorf("create display backend: %w", err)
	}

	source := s.source
	if source == nil {
		source, err = newLayoutSource(cfg.Layout)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	padding := '0'
	if runes := []rune(cfg.Remote.Padding); len(runes) > 0 {
		padding = runes[0]
	}
	fetcher, err := remote.New(remote.Options{
		BaseURL:     cfg.Remote.BaseURL,
		Metric:      cfg.Remote.Metric,
		URLTemplate: cfg.Remote.URLTemplate,
		Hostname:    cfg.Remote.Hostname,
		Timeout:     cfg.Remote.Timeout.Duration,
		Transform:   cfg.Remote.Transform,
		Padding:     padding,
		HTTPClient:  s.httpClient,
		Logger:      p.logger.With().Str("component", "remote").Logger(),
		Collector:   p.collector,
	})
	if err != nil {
		backend.Close()
		source.Close()
		return nil, err
	}

	srv, err := service.New(cfg.Engine, backend, source, fetcher, p.logger, service.WithTelemetry(p.collector))
	if err != nil {
		backend.Close()
		source.Close()
		return nil, err
	}
	return srv, nil
}

// Run starts the displays and drives them until ctx is cancelled. Hardware is
// released before Run returns, whatever the outcome. A layout that cannot be
// read at startup yields service.ErrNoDisplays.
func (p *Processor) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.srv == nil || p.closed {
		p.mu.Unlock()
		return errors.New("processor not initialized")
	}
	if p.running {
		p.mu.Unlock()
		return errors.New("processor already running")
	}
	p.running = true
	srv := p.srv
	p.mu.Unlock()

	defer p.Close()

	if p.config.Telemetry.Enabled {
		server, err := telemetry.Start(p.config.Telemetry.Listen, p.gatherer, p.status, p.logger)
		if err != nil {
			return err
		}
		defer server.Close()
	}

	if err := srv.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	p.logger.Info().Str("metric", p.config.Remote.Metric).Msg("display engine running")
	return srv.Run(ctx)
}

// Close releases hardware and logging resources. It is safe to call more than once.
func (p *Processor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	var err error
	if p.srv != nil {
		err = p.srv.Close()
		if err != nil {
			p.logger.Warn().Err(err).Msg("release hardware")
		}
	}
	if p.cleanup != nil {
		p.cleanup()
	}
	return err
}

// Status returns the engine status served on the health endpoint.
func (p *Processor) Status() service.Status {
	return p.srv.Status()
}

func (p *Processor) status() (interface{}, bool) {
	return p.srv.Status(), p.srv.Healthy()
}
