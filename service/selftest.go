package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/timzifer/metricdisplay/layout"
)

// selfTest shows every display's digit count and then its identity, each for
// the configured dwell time.
func (s *Service) selfTest(ctx context.Context, cfg layout.Configuration) error {
	for _, texts := range [][]string{digitPattern(cfg), identityPattern(cfg)} {
		if err := s.show(texts); err != nil {
			s.logger.Warn().Err(err).Msg("self-test render failed")
		}
		if err := sleep(ctx, s.cfg.SelfTestDwell.Duration); err != nil {
			return err
		}
	}
	return nil
}

// digitPattern renders "4.4.4.4." on a four digit display.
func digitPattern(cfg layout.Configuration) []string {
	out := make([]string, len(cfg))
	for i, entry := range cfg {
		out[i] = strings.Repeat(strconv.Itoa(entry.Digits)+".", entry.Digits)
	}
	return out
}

// identityPattern renders the identity right-aligned with '.' fill, cut to the
// digit count, followed by a decimal point: id 7 on three digits is "..7.".
func identityPattern(cfg layout.Configuration) []string {
	out := make([]string, len(cfg))
	for i, entry := range cfg {
		id := strconv.Itoa(int(entry.ID))
		if len(id) < entry.Digits {
			id = strings.Repeat(".", entry.Digits-len(id)) + id
		}
		out[i] = id[len(id)-entry.Digits:] + "."
	}
	return out
}
