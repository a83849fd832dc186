package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration correctness. It does not mutate the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config must not be nil")
	}
	var errs []string

	if strings.TrimSpace(c.Remote.BaseURL) == "" {
		errs = append(errs, "remote.base_url is required")
	}
	if strings.TrimSpace(c.Remote.Metric) == "" {
		errs = append(errs, "remote.metric is required")
	}
	if !strings.Contains(c.Remote.URLTemplate, "{display}") {
		errs = append(errs, "remote.url_template must contain {display}")
	}
	if len(c.Remote.Padding) != 1 {
		errs = append(errs, fmt.Sprintf("remote.padding must be a single character, got %q", c.Remote.Padding))
	}

	if c.Engine.RenderInterval.Duration <= 0 || c.Engine.PollInterval.Duration <= 0 {
		errs = append(errs, "engine intervals must be positive")
	}

	switch c.Display.Backend {
	case BackendShift:
		if c.Display.Shift.DataPin == "" || c.Display.Shift.ClockPin == "" || c.Display.Shift.LatchPin == "" {
			errs = append(errs, "display.shift requires data_pin, clock_pin and latch_pin")
		}
	case BackendHT16K33:
		if c.Display.I2C.BaseAddress > 0x7F {
			errs = append(errs, fmt.Sprintf("display.i2c.base_address 0x%x out of range", c.Display.I2C.BaseAddress))
		}
		for i, slot := range c.Display.I2C.DigitSlots {
			if slot < 0 || slot > 7 {
				errs = append(errs, fmt.Sprintf("display.i2c.digit_slots[%d] = %d outside 0..7", i, slot))
			}
		}
	case BackendConsole:
	default:
		errs = append(errs, fmt.Sprintf("unsupported display backend %q", c.Display.Backend))
	}

	switch c.Layout.Source {
	case SourceStatic:
		if len(c.Layout.Static) == 0 {
			errs = append(errs, "layout.static requires at least one display")
		} else if err := c.Layout.Static.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("layout.static: %v", err))
		}
	case SourceFile:
		if strings.TrimSpace(c.Layout.File) == "" {
			errs = append(errs, "layout.file is required for the file source")
		}
	case SourceGPIO:
		if c.Layout.GPIO.LoadPin == "" || c.Layout.GPIO.ClockPin == "" || c.Layout.GPIO.DataPin == "" {
			errs = append(errs, "layout.gpio requires load_pin, clock_pin and data_pin")
		}
	default:
		errs = append(errs, fmt.Sprintf("unsupported layout source %q", c.Layout.Source))
	}

	if c.Logging.Loki.Enabled && c.Logging.Loki.URL == "" {
		errs = append(errs, "logging.loki.url is required when loki is enabled")
	}

	if len(errs) > 0 {
		return errors.New("invalid configuration: " + strings.Join(errs, "; "))
	}
	return nil
}
