package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lkarlslund/usageguard/pkg/version"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Detailed("usageguard"))
		},
	})
}
