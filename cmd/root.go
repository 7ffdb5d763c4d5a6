package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lkarlslund/usageguard/pkg/config"
	"github.com/lkarlslund/usageguard/pkg/logutil"
	"github.com/lkarlslund/usageguard/pkg/state"
	"github.com/lkarlslund/usageguard/pkg/usage"
)

var (
	rootConfigPath string
	rootLogLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "usageguard",
	Short: "Token spend budget guard for Claude sessions",
	Long:  "usageguard totals API spend from Claude session logs over a rolling window and blocks tool calls once the budget is exhausted.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SilenceUsage = true
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", config.DefaultConfigPath(), "Config TOML path")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "loglevel", "warn", "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return logutil.Configure(rootLogLevel)
	}
}

// loadConfig reads the config file and applies its log_level unless
// --loglevel was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(rootConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !cmd.Flags().Changed("loglevel") && cfg.LogLevel != "" {
		if err := logutil.Configure(cfg.LogLevel); err != nil {
			slog.Warn("ignoring config log_level", "error", err)
		}
	}
	return cfg, nil
}

func newAggregator(cfg *config.Config) *usage.Aggregator {
	return usage.NewAggregator(state.NewFileStore(cfg.CacheFile), usage.Settings{
		ProjectsDir: cfg.ProjectsDir,
		WindowHours: cfg.WindowHours,
		Limits: usage.Limits{
			MaxCostUSD:          cfg.MaxCostPerWindowUSD,
			WarningThresholdPct: cfg.WarningThresholdPct,
			BlockThresholdPct:   cfg.BlockThresholdPct,
		},
		Pricing: cfg.PricingTable(),
	})
}
