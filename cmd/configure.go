package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lkarlslund/usageguard/pkg/config"
)

var (
	configureWarnPct  float64
	configureBlockPct float64
)

func init() {
	configureCmd := &cobra.Command{
		Use:   "configure <max-cost-usd>",
		Short: "Set the window budget and thresholds in the config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			maxCost, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid value: %s", args[0])
			}
			o, err := config.LoadOverride(rootConfigPath)
			if err != nil {
				return err
			}
			o.MaxCostPerWindowUSD = &maxCost
			if cmd.Flags().Changed("warn-pct") {
				o.WarningThresholdPct = &configureWarnPct
			}
			if cmd.Flags().Changed("block-pct") {
				o.BlockThresholdPct = &configureBlockPct
			}
			if _, err := config.Resolve(o); err != nil {
				return err
			}
			if err := config.SaveOverride(rootConfigPath, o); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			b, err := config.EncodeOverride(o)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved to %s:\n%s", rootConfigPath, b)
			return nil
		},
	}
	configureCmd.Flags().Float64Var(&configureWarnPct, "warn-pct", 80, "Warning threshold in percent of the budget")
	configureCmd.Flags().Float64Var(&configureBlockPct, "block-pct", 100, "Block threshold in percent of the budget")
	rootCmd.AddCommand(configureCmd)
}
