package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "goGate",
	Short: "goGate is the request-gating layer of a blog backend",
	Long: `goGate authenticates blog API requests with JWTs recorded in Redis,
applies per-route anonymous fallback, and rate limits hot endpoints locally
and across instances.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
