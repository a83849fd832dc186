// Package logging builds the daemon's zerolog logger. Every entry carries the
// host the displays are attached to, which is also the name reported to the
// metrics service.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/timzifer/metricdisplay/config"
)

const appName = "metricdisplay"

// Setup creates a logger for host according to cfg. An empty host falls back
// to the machine's hostname. The returned func flushes and stops Loki shipping.
func Setup(cfg config.LoggingConfig, host string) (zerolog.Logger, func(), error) {
	return setup(cfg, resolveHost(host), os.Stdout)
}

func resolveHost(host string) string {
	if host = strings.TrimSpace(host); host != "" {
		return host
	}
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}

func setup(cfg config.LoggingConfig, host string, out io.Writer) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	console := out
	if strings.EqualFold(cfg.Format, "text") {
		console = zerolog.ConsoleWriter{
			Out:           out,
			TimeFormat:    time.RFC3339,
			FieldsExclude: []string{"host"},
		}
	}

	writers := []io.Writer{console}
	cleanup := func() {}
	if cfg.Loki.Enabled {
		shipper, stop, err := newLokiWriter(cfg.Loki, host)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, shipper)
		cleanup = stop
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Str("host", host).
		Logger().
		Level(level)
	return logger, cleanup, nil
}

func newLokiWriter(cfg config.LokiConfig, host string) (*lokiWriter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loki client: %w", err)
	}
	return &lokiWriter{client: client, labels: lokiLabels(cfg.Labels, host)}, client.Stop, nil
}

// lokiLabels returns the stream labels: app and host unless overridden, plus
// the configured extras.
func lokiLabels(extra map[string]string, host string) model.LabelSet {
	labels := model.LabelSet{"app": appName}
	if host != "" {
		labels["host"] = model.LabelValue(host)
	}
	for k, v := range extra {
		labels[model.LabelName(k)] = model.LabelValue(v)
	}
	return labels
}

type lokiWriter struct {
	client *loki.Client
	labels model.LabelSet
}

func (l *lokiWriter) Write(p []byte) (int, error) {
	return l.WriteLevel(zerolog.NoLevel, p)
}

// WriteLevel ships the entry in a stream labelled with its level, so poll
// failures can be selected without parsing the line.
func (l *lokiWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	labels := l.labels
	if level != zerolog.NoLevel {
		labels = labels.Merge(model.LabelSet{"level": model.LabelValue(level.String())})
	}
	return len(p), l.client.Handle(labels, time.Now(), entry)
}
