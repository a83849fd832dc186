package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/timzifer/metricdisplay/layout"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "500ms" or "2s".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Display backends.
const (
	BackendShift   = "shift"
	BackendHT16K33 = "ht16k33"
	BackendConsole = "console"
)

// Layout sources.
const (
	SourceStatic = "static"
	SourceFile   = "file"
	SourceGPIO   = "gpio"
)

// RemoteConfig describes how metric values are fetched.
type RemoteConfig struct {
	BaseURL     string   `yaml:"base_url"`
	Metric      string   `yaml:"metric"`
	URLTemplate string   `yaml:"url_template"`
	Timeout     Duration `yaml:"timeout"`
	Hostname    string   `yaml:"hostname,omitempty"`
	Transform   string   `yaml:"transform,omitempty"`
	Padding     string   `yaml:"padding"`
}

// EngineConfig holds the cadence of the render and poll activities.
type EngineConfig struct {
	RenderInterval  Duration `yaml:"render_interval"`
	PollInterval    Duration `yaml:"poll_interval"`
	PollTimeout     Duration `yaml:"poll_timeout"`
	FailurePulse    Duration `yaml:"failure_pulse"`
	SelfTestDwell   Duration `yaml:"self_test_dwell"`
	StartupAttempts int      `yaml:"startup_attempts"`
	StartupRetry    Duration `yaml:"startup_retry"`
}

// ShiftConfig names the GPIO pins driving a chain of 74HC595 registers.
type ShiftConfig struct {
	DataPin  string `yaml:"data_pin"`
	ClockPin string `yaml:"clock_pin"`
	LatchPin string `yaml:"latch_pin"`
}

// I2CConfig selects the bus and base address of HT16K33 backpacks.
type I2CConfig struct {
	Bus         string `yaml:"bus"`
	BaseAddress uint16 `yaml:"base_address"`
	// DigitSlots maps digit i to display RAM row DigitSlots[i]. Empty means
	// digit i uses row i.
	DigitSlots []int `yaml:"digit_slots"`
}

// DisplayConfig selects the display backend.
type DisplayConfig struct {
	Backend string      `yaml:"backend"`
	Shift   ShiftConfig `yaml:"shift"`
	I2C     I2CConfig   `yaml:"i2c"`
}

// GPIOLayoutConfig names the pins of the configuration input chain.
type GPIOLayoutConfig struct {
	LoadPin     string `yaml:"load_pin"`
	ClockPin    string `yaml:"clock_pin"`
	DataPin     string `yaml:"data_pin"`
	MaxDisplays int    `yaml:"max_displays"`
}

// LayoutConfig selects where the display configuration comes from.
type LayoutConfig struct {
	Source string               `yaml:"source"`
	Static layout.Configuration `yaml:"static"`
	File   string               `yaml:"file"`
	GPIO   GPIOLayoutConfig     `yaml:"gpio"`
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig controls the metrics and health endpoint.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"`
	Listen   string `yaml:"listen"`
}

// Config is the root configuration structure for the daemon.
type Config struct {
	Remote    RemoteConfig    `yaml:"remote"`
	Engine    EngineConfig    `yaml:"engine"`
	Display   DisplayConfig   `yaml:"display"`
	Layout    LayoutConfig    `yaml:"layout"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads and decodes the configuration file from disk and applies defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Remote.URLTemplate == "" {
		c.Remote.URLTemplate = "{base}/getValue?id={metric}{display}"
	}
	defaultDuration(&c.Remote.Timeout, 5*time.Second)
	if c.Remote.Padding == "" {
		c.Remote.Padding = "0"
	}

	defaultDuration(&c.Engine.RenderInterval, 500*time.Millisecond)
	defaultDuration(&c.Engine.PollInterval, 2*time.Second)
	defaultDuration(&c.Engine.PollTimeout, 30*time.Second)
	defaultDuration(&c.Engine.FailurePulse, 200*time.Millisecond)
	defaultDuration(&c.Engine.SelfTestDwell, 2*time.Second)
	defaultDuration(&c.Engine.StartupRetry, time.Second)
	if c.Engine.StartupAttempts <= 0 {
		c.Engine.StartupAttempts = 3
	}

	if c.Display.Backend == "" {
		c.Display.Backend = BackendShift
	}
	if c.Display.Shift.DataPin == "" {
		c.Display.Shift.DataPin = "GPIO17"
	}
	if c.Display.Shift.ClockPin == "" {
		c.Display.Shift.ClockPin = "GPIO27"
	}
	if c.Display.Shift.LatchPin == "" {
		c.Display.Shift.LatchPin = "GPIO22"
	}
	if c.Display.I2C.BaseAddress == 0 {
		c.Display.I2C.BaseAddress = 0x70
	}

	if c.Layout.Source == "" {
		c.Layout.Source = SourceGPIO
	}
	if c.Layout.GPIO.LoadPin == "" {
		c.Layout.GPIO.LoadPin = "GPIO5"
	}
	if c.Layout.GPIO.ClockPin == "" {
		c.Layout.GPIO.ClockPin = "GPIO6"
	}
	if c.Layout.GPIO.DataPin == "" {
		c.Layout.GPIO.DataPin = "GPIO13"
	}
	if c.Layout.GPIO.MaxDisplays <= 0 {
		c.Layout.GPIO.MaxDisplays = 8
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Telemetry.Listen == "" {
		c.Telemetry.Listen = ":9108"
	}
}

func defaultDuration(d *Duration, value time.Duration) {
	if d.Duration <= 0 {
		d.Duration = value
	}
}
