package processor

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/layout"
	"github.com/timzifer/metricdisplay/serviceio"
	"github.com/timzifer/metricdisplay/telemetry"
)

// WithLogger provides a custom logger instance for the processor.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.logger = logger
		cfg.customLogger = true
		return nil
	}
}

// WithConfigPath configures the processor to load configuration data from the provided path.
func WithConfigPath(path string) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.configPath = strings.TrimSpace(path)
		return nil
	}
}

// WithConfig supplies an already loaded configuration instance.
func WithConfig(cfgData *config.Config) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.config = cfgData
		return nil
	}
}

// WithTelemetry injects a collector instance overriding the default configuration-based behaviour.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		if collector == nil {
			collector = telemetry.Noop()
		}
		cfg.telemetry = collector
		cfg.telemetryProvided = true
		return nil
	}
}

// WithBackend registers a display backend factory under name, replacing a
// built-in backend of the same name.
func WithBackend(name string, factory serviceio.BackendFactory) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return errors.New("backend name must not be empty")
		}
		if factory == nil {
			return errors.New("backend factory must not be nil")
		}
		if cfg.backends == nil {
			cfg.backends = map[string]serviceio.BackendFactory{}
		}
		cfg.backends[name] = factory
		return nil
	}
}

// WithLayoutSource replaces the configured layout source.
func WithLayoutSource(source layout.Source) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.source = source
		return nil
	}
}

// WithHTTPClient sets the client used to query the metrics service.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.httpClient = client
		return nil
	}
}

// WithHostInit replaces the hardware driver initialisation run before GPIO or
// I²C resources are opened.
func WithHostInit(fn func() error) Option {
	return func(cfg *settings) error {
		if cfg == nil {
			return nil
		}
		cfg.hostInit = fn
		return nil
	}
}
