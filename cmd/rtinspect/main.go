// Rtinspect is a terminal inspector for realtime channels.
//
// It connects a test client to a project's realtime service, shows every
// channel message, and lets you switch API keys or impersonate a user with
// a JWT to check channel authorization policies.
//
// Usage:
//
//	rtinspect [command] [flags]
//
// Running without arguments launches the interactive inspector.
// See 'rtinspect --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/rtinspect/internal/logging"
	"github.com/muurk/rtinspect/internal/version"
)

func main() {
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "rtinspect",
	Short: "Realtime Channel Inspector",
	Long: `An interactive inspector for realtime channels.

Connects to a project's realtime service, joins a test channel and shows
every message. The tokens popover (press t) switches between API keys and
lets you impersonate a user with a JWT to test channel authorization.

If no command is specified, the interactive inspector will launch automatically.`,
	Version: version.Version,
	Example: `  # Inspect a hosted project (keys fetched with a personal access token)
  RTINSPECT_ACCESS_TOKEN=sbp_... rtinspect --project abcdefghijklmnop

  # Inspect a local stack with keys from a file
  rtinspect --project-url http://localhost:54321 --keys-file ./keys.yaml

  # Print messages without the TUI
  rtinspect listen --project abcdefghijklmnop --channel room-1`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Initialize(logLevel, logFile); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	RunE: runInspector,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rtinspect %s (commit: %s)\n", version.Version, version.Commit)
	},
}
