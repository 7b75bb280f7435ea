/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd(info VersionInfo) *cobra.Command {
	var extended bool
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vinylgw %s\n", info.Version)
			if extended {
				fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", info.Commit)
				fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", info.BuildDate)
				fmt.Fprintf(cmd.OutOrStdout(), "Go: %s\n", runtime.Version())
			}
		},
	}
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
	return versionCmd
}
