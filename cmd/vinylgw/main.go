/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package main

import (
	"context"
	"os"

	"github.com/vinyldash/vinylgw/internal/cmd"
)

// Set via ldflags: go build -ldflags="-X main.version=1.0.0 -X main.commit=abc123 -X main.buildDate=2025-10-28".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	rootCmd := cmd.NewRootCmd(cmd.VersionInfo{Version: version, Commit: commit, BuildDate: buildDate})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
