/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vinyldash/vinylgw/cache"
)

func newCacheKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache-key <namespace> [name=value...]",
		Short: "Print the cache key of an upstream response",
		Example: `  vinylgw cache-key discogs:collection user=crate-digger page=1 perPage=50
  vinylgw cache-key songbpm:search artist="miles davis" title="so what"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := make(map[string]string, len(args)-1)
			for _, arg := range args[1:] {
				name, value, ok := strings.Cut(arg, "=")
				if !ok || name == "" {
					return fmt.Errorf("invalid parameter %q, name=value is expected", arg)
				}
				params[name] = value
			}
			fmt.Fprintln(cmd.OutOrStdout(), cache.GenerateKey(args[0], params))
			return nil
		},
	}
}
