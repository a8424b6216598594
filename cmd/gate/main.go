package main

import (
	"fmt"
	"os"

	"github.com/pysugar/connector-gate/internal/config"
	"github.com/pysugar/connector-gate/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gate",
	Short: "Credential and rate-limit gateway for connector scripts",
	Long: `gate manages per-provider credentials and executes outbound API
calls under each provider's rate ceiling, with OAuth refresh and
bounded retry. Connector scripts use "gate call" as their single call
surface; "gate serve" exposes a local admin API over the same store.`,
	Version: fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.BuildTime),
}

func main() {
	config.LoadEnv()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
