package service

import (
	"context"
	"time"

	"github.com/timzifer/metricdisplay/runtime/state"
	"github.com/timzifer/metricdisplay/telemetry"
)

func (s *Service) renderLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RenderInterval.Duration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.render()
		}
	}
}

// render shows the current frame, with a trailing decimal point while blink is set.
func (s *Service) render() {
	frame, blink := s.frame.Snapshot()
	texts := state.Decorate(frame, blink)

	if err := s.show(texts); err != nil {
		s.status.renderErrors.Inc()
		s.telemetry.IncRenderError()
		s.logger.Warn().Err(err).Msg("render failed")
	}
}

func (s *Service) show(texts []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.array.Show(texts)
}

func (s *Service) blank() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.array.Blank()
}

func (s *Service) pollLoop(ctx context.Context) {
	for ctx.Err() == nil {
		s.poll(ctx)
		if ctx.Err() != nil {
			return
		}
		if s.followLayout() {
			continue
		}
		if err := sleep(ctx, s.cfg.PollInterval.Duration); err != nil {
			return
		}
	}
}

// poll fetches one frame. When the service is unreachable the displays are
// blanked briefly and the previous frame is shown again.
func (s *Service) poll(ctx context.Context) {
	cfg := s.Layout()
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.PollTimeout.Duration)
	frame, err := s.fetcher.FetchAll(pollCtx, cfg)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.status.failures.Inc()
		s.status.consecutiveFailures.Inc()
		s.telemetry.IncPoll(telemetry.OutcomeUnreachable)
		s.logger.Warn().Err(err).Msg("poll failed")
		s.pulse(ctx)
		return
	}

	s.frame.Swap(frame)
	s.status.polls.Inc()
	s.status.consecutiveFailures.Store(0)
	s.status.lastSuccess.Store(time.Now())
	s.telemetry.IncPoll(telemetry.OutcomeOK)
}

func (s *Service) pulse(ctx context.Context) {
	if err := s.blank(); err != nil {
		s.logger.Warn().Err(err).Msg("blank failed")
	}
	if sleep(ctx, s.cfg.FailurePulse.Duration) != nil {
		return
	}
	s.render()
}

// followLayout rebuilds the displays when the layout changed and reports
// whether it did. Unreadable, empty or invalid layouts keep the current displays.
func (s *Service) followLayout() bool {
	cfg, err := s.readLayout()
	if err != nil {
		s.logger.Debug().Err(err).Msg("keeping current layout")
		return false
	}

	previous, changed, err := s.replaceLayout(cfg)
	if err != nil {
		s.logger.Error().Err(err).Msg("layout rebuild failed")
		return false
	}
	if !changed {
		return false
	}

	s.frame.Reset()
	s.status.rebuilds.Inc()
	s.telemetry.IncLayoutRebuild()
	s.logger.Info().Int("previous", previous).Int("displays", len(cfg)).Msg("layout changed, displays rebuilt")
	return true
}
