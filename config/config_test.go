package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/timzifer/metricdisplay/layout"
)

func TestDefaultsMatchDisplayCadence(t *testing.T) {
	cfg := Default()

	require.Equal(t, 500*time.Millisecond, cfg.Engine.RenderInterval.Duration)
	require.Equal(t, 2*time.Second, cfg.Engine.PollInterval.Duration)
	require.Equal(t, 200*time.Millisecond, cfg.Engine.FailurePulse.Duration)
	require.Equal(t, 2*time.Second, cfg.Engine.SelfTestDwell.Duration)
	require.Equal(t, 3, cfg.Engine.StartupAttempts)
	require.Equal(t, uint16(0x70), cfg.Display.I2C.BaseAddress)
	require.Equal(t, "{base}/getValue?id={metric}{display}", cfg.Remote.URLTemplate)
	require.Equal(t, "0", cfg.Remote.Padding)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `remote:
  base_url: metrics.example.com
  metric: cpu
  timeout: 3s
engine:
  poll_interval: 5s
display:
  backend: ht16k33
  i2c:
    bus: "1"
    base_address: 0x71
    digit_slots: [0, 1, 3, 4]
layout:
  source: static
  static:
    - digits: 4
      id: 101
    - digits: 3
      id: 202
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "metrics.example.com", cfg.Remote.BaseURL)
	require.Equal(t, 3*time.Second, cfg.Remote.Timeout.Duration)
	require.Equal(t, 5*time.Second, cfg.Engine.PollInterval.Duration)
	require.Equal(t, 500*time.Millisecond, cfg.Engine.RenderInterval.Duration)
	require.Equal(t, BackendHT16K33, cfg.Display.Backend)
	require.Equal(t, uint16(0x71), cfg.Display.I2C.BaseAddress)
	require.Equal(t, []int{0, 1, 3, 4}, cfg.Display.I2C.DigitSlots)
	require.Equal(t, layout.Configuration{{Digits: 4, ID: 101}, {Digits: 3, ID: 202}}, cfg.Layout.Static)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  poll_interval: soon\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Remote.BaseURL = "localhost:8080"
		cfg.Remote.Metric = "cpu"
		return cfg
	}

	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"missing base url": func(c *Config) { c.Remote.BaseURL = "" },
		"missing metric":   func(c *Config) { c.Remote.Metric = " " },
		"template no id":   func(c *Config) { c.Remote.URLTemplate = "{base}/value" },
		"long padding":     func(c *Config) { c.Remote.Padding = "00" },
		"unknown backend":  func(c *Config) { c.Display.Backend = "lcd" },
		"unknown source":   func(c *Config) { c.Layout.Source = "usb" },
		"empty static":     func(c *Config) { c.Layout.Source = SourceStatic },
		"static duplicate": func(c *Config) {
			c.Layout.Source = SourceStatic
			c.Layout.Static = layout.Configuration{{Digits: 2, ID: 1}, {Digits: 2, ID: 1}}
		},
		"file without path":  func(c *Config) { c.Layout.Source = SourceFile },
		"loki without url":   func(c *Config) { c.Logging.Loki.Enabled = true },
		"i2c address range":  func(c *Config) { c.Display.Backend = BackendHT16K33; c.Display.I2C.BaseAddress = 0x80 },
		"i2c slot range":     func(c *Config) { c.Display.Backend = BackendHT16K33; c.Display.I2C.DigitSlots = []int{0, 9} },
		"negative intervals": func(c *Config) { c.Engine.PollInterval.Duration = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestDurationMarshalYAML(t *testing.T) {
	raw, err := Duration{Duration: 1500 * time.Millisecond}.MarshalYAML()
	require.NoError(t, err)
	require.Equal(t, "1.5s", raw)
}
