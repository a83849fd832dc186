package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/timzifer/metricdisplay/config"
	"github.com/timzifer/metricdisplay/processor"
	"github.com/timzifer/metricdisplay/service"
)

// baseURLEnv overrides the host argument, e.g. to point a fleet at a staging service.
const baseURLEnv = "METRICSINYOURFACEURL"

func newRootCommand() *cobra.Command {
	v := viper.New()
	_ = v.BindEnv("base_url", baseURLEnv, strings.ToLower(baseURLEnv))

	cmd := &cobra.Command{
		Use:   "metricdisplay <hostOrBaseUrl> <metricId>",
		Short: "Show remote metric values on seven-segment displays",
		Long: `Poll a metrics service for one value per attached display and show it on
seven-segment hardware.

Each display is queried as <metricId><displayId>. The environment variable
` + baseURLEnv + ` overrides the host argument.

Examples:
  metricdisplay metrics.local:8080 cpu
  metricdisplay --config /etc/metricdisplay.yaml https://metrics.example.com load
  metricdisplay --config-check metrics.local temp`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			cfg, err := buildConfig(v, args)
			if err != nil {
				return err
			}
			if v.GetBool("config-check") {
				fmt.Fprintln(cmd.OutOrStdout(), "Configuration check completed successfully.")
				return nil
			}
			return run(cmd, cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "Path to configuration file")
	flags.Bool("config-check", false, "Validate configuration and exit")
	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("config-check", flags.Lookup("config-check"))
	return cmd
}

// buildConfig loads the optional configuration file and applies the
// positional arguments and the environment override.
func buildConfig(v *viper.Viper, args []string) (*config.Config, error) {
	cfg := config.Default()
	if path := strings.TrimSpace(v.GetString("config")); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.Remote.BaseURL = resolveBaseURL(v, args[0])
	cfg.Remote.Metric = args[1]
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveBaseURL(v *viper.Viper, arg string) string {
	if override := strings.TrimSpace(v.GetString("base_url")); override != "" {
		return override
	}
	return arg
}

func run(cmd *cobra.Command, cfg *config.Config) error {
	ctx := cmd.Context()
	proc, err := processor.New(ctx, processor.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("create processor: %w", err)
	}
	if err := proc.Run(ctx); err != nil {
		if errors.Is(err, service.ErrNoDisplays) {
			log.Error().Msg("no display configuration could be read, giving up")
		}
		return err
	}
	return nil
}
