package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information, set via ldflags.
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "igwatcher",
	Short: "Track Instagram profile pictures and follower counts over time",
	Long: `igwatcher checks Instagram profiles on a schedule and records what it
finds. Each run appends one CSV row per profile (timestamp, follower and
following counts, whether the picture changed) and downloads the profile
picture whenever its URL differs from the last recorded one.

The tool is built to run unattended from a scheduler such as cron or a CI
workflow: a single invocation does one pass over all watched profiles and
exits non-zero if any of them could not be logged.

Fetching is done against Instagram's web profile endpoint by default, with
an optional headless Chrome engine for profiles behind the login wall.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.igwatcher.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.SetVersionTemplate(`igwatcher {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
