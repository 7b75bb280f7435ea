/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

// Package cmd implements the command line interface of the gateway.
package cmd

import (
	"github.com/spf13/cobra"
)

// VersionInfo is the build information set via ldflags in the main package.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// NewRootCmd creates the root command with all subcommands.
func NewRootCmd(versionInfo VersionInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vinylgw",
		Short: "Caching gateway for record collection and song tempo APIs",
		Long: `vinylgw serves record collection and song tempo data from a cache,
calling the upstream APIs within their rate limits when the data is missing.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		newServeCmd(),
		newValidateConfigCmd(),
		newCacheKeyCmd(),
		newVersionCmd(versionInfo),
	)
	return rootCmd
}
