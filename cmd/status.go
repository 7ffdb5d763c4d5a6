package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lkarlslund/usageguard/pkg/logscan"
	"github.com/lkarlslund/usageguard/pkg/usage"
)

var (
	statusJSON         bool
	statusWatch        bool
	statusPollInterval time.Duration
)

func init() {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show spend in the current window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			agg := newAggregator(cfg)
			out := cmd.OutOrStdout()
			if err := printSnapshot(out, agg.Evaluate(time.Now()), statusJSON); err != nil {
				return err
			}
			if !statusWatch {
				return nil
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			w := logscan.NewWatcher(cfg.ProjectsDir, statusPollInterval, func() {
				if err := printSnapshot(out, agg.Evaluate(time.Now()), statusJSON); err != nil {
					slog.Warn("print status", "error", err)
				}
			})
			slog.Info("watching session logs", "dir", cfg.ProjectsDir)
			return w.Run(ctx)
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the full snapshot as JSON")
	statusCmd.Flags().BoolVar(&statusWatch, "watch", false, "Re-print whenever session logs change")
	statusCmd.Flags().DurationVar(&statusPollInterval, "poll-interval", 10*time.Second, "Polling fallback interval for --watch")
	rootCmd.AddCommand(statusCmd)
}

func printSnapshot(w io.Writer, snap usage.Snapshot, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, snap.Message)
		return err
	}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}
