/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinyldash/vinylgw/internal/app"
)

const defaultConfigPath = "config.yml"

func newServeCmd() *cobra.Command {
	var cfgPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfigFromFile(cfgPath)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			a, err := app.New(cmd.Context(), cfg, app.Opts{})
			if err != nil {
				return err
			}
			return a.RunContext(cmd.Context())
		},
	}
	serveCmd.Flags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "path to the configuration file (YAML or JSON)")
	return serveCmd
}

func newValidateConfigCmd() *cobra.Command {
	var cfgPath string
	validateCmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Check the configuration file and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfigFromFile(cfgPath)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid (cache backend: %s, upstream resources: %v)\n",
				cfg.Cache.Backend, cfg.Queue.ResourceNames())
			return nil
		},
	}
	validateCmd.Flags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "path to the configuration file (YAML or JSON)")
	return validateCmd
}
