// Package service runs the metric display engine: a renderer that refreshes the
// displays at a fixed cadence and a poller that fetches values and follows
// layout changes.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/display"
	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/runtime/state"
	"github.com/timzifer/metricdisplay/serviceio"
	"github.com/timzifer/metricdisplay/telemetry"
)

// ErrNoDisplays is returned by Start when no display layout could be read.
var ErrNoDisplays = errors.New("no displays configured")

// Fetcher produces one frame per poll cycle.
type Fetcher interface {
	FetchAll(ctx context.Context, cfg layout.Configuration) (state.Frame, error)
}

// Option customises a Service.
type Option func(*Service)

// WithTelemetry installs a telemetry collector.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(s *Service) {
		if collector != nil {
			s.telemetry = collector
		}
	}
}

// Service owns the display array and the activities driving it.
type Service struct {
	cfg       config.EngineConfig
	logger    zerolog.Logger
	backend   serviceio.Backend
	source    layout.Source
	fetcher   Fetcher
	telemetry telemetry.Collector

	// mu guards array and layout; the renderer holds it for a whole render pass
	// so a rebuild never interleaves with a refresh.
	mu     sync.Mutex
	array  *display.Array
	layout layout.Configuration

	frame  state.Cell
	status counters

	closeOnce sync.Once
	closeErr  error
}

// New creates an engine. Zero durations in cfg fall back to the defaults.
func New(cfg config.EngineConfig, backend serviceio.Backend, source layout.Source, fetcher Fetcher, logger zerolog.Logger, opts ...Option) (*Service, error) {
	if backend == nil {
		return nil, errors.New("service: display backend is required")
	}
	if source == nil {
		return nil, errors.New("service: layout source is required")
	}
	if fetcher == nil {
		return nil, errors.New("service: fetcher is required")
	}
	s := &Service{
		cfg:       withDefaults(cfg),
		logger:    logger.With().Str("component", "engine").Logger(),
		backend:   backend,
		source:    source,
		fetcher:   fetcher,
		telemetry: telemetry.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func withDefaults(cfg config.EngineConfig) config.EngineConfig {
	def := config.Default().Engine
	fill := func(d *config.Duration, fallback config.Duration) {
		if d.Duration <= 0 {
			*d = fallback
		}
	}
	fill(&cfg.RenderInterval, def.RenderInterval)
	fill(&cfg.PollInterval, def.PollInterval)
	fill(&cfg.PollTimeout, def.PollTimeout)
	fill(&cfg.FailurePulse, def.FailurePulse)
	fill(&cfg.SelfTestDwell, def.SelfTestDwell)
	fill(&cfg.StartupRetry, def.StartupRetry)
	if cfg.StartupAttempts <= 0 {
		cfg.StartupAttempts = def.StartupAttempts
	}
	return cfg
}

// Start reads the initial layout, builds the display array and runs the
// self-test. It fails with ErrNoDisplays when no layout could be read within
// the configured attempts.
func (s *Service) Start(ctx context.Context) error {
	if err := s.source.Setup(); err != nil {
		return fmt.Errorf("layout setup: %w", err)
	}

	var cfg layout.Configuration
	for attempt := 1; attempt <= s.cfg.StartupAttempts; attempt++ {
		read, err := s.readLayout()
		if err == nil {
			cfg = read
			break
		}
		s.logger.Warn().Err(err).Int("attempt", attempt).Int("attempts", s.cfg.StartupAttempts).Msg("display layout not readable")
		if attempt < s.cfg.StartupAttempts {
			if err := sleep(ctx, s.cfg.StartupRetry.Duration); err != nil {
				return err
			}
		}
	}
	if len(cfg) == 0 {
		return ErrNoDisplays
	}

	if err := s.rebuild(cfg); err != nil {
		return err
	}
	s.logger.Info().Int("displays", len(cfg)).Str("backend", s.backend.Name()).Msg("displays ready")
	return s.selfTest(ctx, cfg)
}

// Run drives the renderer and the poller until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	started := s.array != nil
	s.mu.Unlock()
	if !started {
		return errors.New("service: Run called before Start")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.renderLoop(ctx)
	}()

	s.pollLoop(ctx)
	cancel()
	wg.Wait()
	return nil
}

// Close blanks the displays and releases the backend and the layout source.
// It is safe to call more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		s.mu.Lock()
		if s.array != nil {
			if err := s.array.Blank(); err != nil {
				errs = append(errs, fmt.Errorf("blank displays: %w", err))
			}
		}
		s.mu.Unlock()
		if err := s.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close backend: %w", err))
		}
		if err := s.source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close layout source: %w", err))
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// Layout returns the layout the displays are currently built for.
func (s *Service) Layout() layout.Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout.Clone()
}

// readLayout refreshes the source and returns a non-empty, valid configuration
// or layout.ErrUnavailable.
func (s *Service) readLayout() (layout.Configuration, error) {
	if err := s.source.Load(); err != nil {
		return nil, fmt.Errorf("%w: %v", layout.ErrUnavailable, err)
	}
	cfg, err := s.source.Read()
	if err != nil {
		return nil, err
	}
	if len(cfg) == 0 {
		return nil, layout.ErrUnavailable
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", layout.ErrUnavailable, err)
	}
	return cfg, nil
}

func (s *Service) rebuild(cfg layout.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked(cfg)
}

// replaceLayout rebuilds the displays for cfg unless it is already active. It
// returns the previous display count.
func (s *Service) replaceLayout(cfg layout.Configuration) (previous int, changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Equal(s.layout) {
		return len(s.layout), false, nil
	}
	previous = len(s.layout)
	if err := s.rebuildLocked(cfg); err != nil {
		return previous, false, err
	}
	return previous, true, nil
}

func (s *Service) rebuildLocked(cfg layout.Configuration) error {
	array, err := display.Build(s.backend, cfg)
	if err != nil {
		return fmt.Errorf("build displays: %w", err)
	}
	s.array = array
	s.layout = cfg.Clone()
	s.status.displays.Store(int64(len(cfg)))
	s.telemetry.SetDisplays(len(cfg))
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
