package cmd

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/lkarlslund/usageguard/pkg/hook"
	"github.com/lkarlslund/usageguard/pkg/logutil"
	"github.com/lkarlslund/usageguard/pkg/usage"
)

func init() {
	hookCmd := &cobra.Command{
		Use:   "hook",
		Short: "Answer a session hook event on stdin",
		// Hooks must never fail, so a bad --loglevel falls back instead of
		// aborting.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := logutil.Configure(rootLogLevel); err != nil {
				_ = logutil.Configure("warn")
				slog.Warn("ignoring --loglevel", "error", err)
			}
		},
	}
	hookCmd.AddCommand(&cobra.Command{
		Use:   "pre-tool-use",
		Short: "Deny tool calls while the budget is exhausted",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd, hook.EventPreToolUse)
		},
	})
	hookCmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the session loop while the budget is exhausted",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd, hook.EventStop)
		},
	})
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, ev hook.Event) error {
	err := hook.Run(ev, cmd.InOrStdin(), cmd.OutOrStdout(), func() (usage.Snapshot, int, error) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return usage.Snapshot{}, 0, err
		}
		return newAggregator(cfg).Evaluate(time.Now()), cfg.WindowHours, nil
	})
	if err != nil {
		slog.Error("write hook output", "event", ev, "error", err)
	}
	return nil
}
