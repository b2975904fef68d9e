package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "turnstile",
	Short: "Turnstile - filter-driven HTTP/HTTPS server",
	Long: `Turnstile is an HTTP/1.x server core with prioritized request and response
filters, asynchronous response completion and graceful shutdown.

It accepts plain TCP or TLS connections, runs every request through the
registered filters and hands it to the router afterward.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults are used when empty)")
}
