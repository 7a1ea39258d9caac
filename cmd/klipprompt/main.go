// Klipprompt shows Klipper macro prompts outside of a web interface.
//
// It follows the printer's console through Moonraker (or Klipper's serial
// pseudo-terminal), rebuilds the dialogs that macros announce with
// "// action:prompt_" comments, and sends the chosen button's G-code back.
//
// Usage:
//
//	klipprompt [command] [flags]
//
// Running without arguments watches the default printer with the terminal UI.
// See 'klipprompt --help' for available commands.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/klipprompt/internal/config"
	"github.com/muurk/klipprompt/internal/logging"
	"github.com/muurk/klipprompt/internal/version"
)

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "klipprompt",
	Short: "Klipper macro prompts in your terminal",
	Long: `Klipprompt shows the dialogs Klipper macros open with action:prompt_
comments and sends the chosen button's G-code back to the printer.

If no command is specified, watch runs with the configured printer.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnv(); err != nil {
			return err
		}
		return logging.InitializeFromEnv()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: watch when no subcommand provided
		return runWatch(cmd, args)
	},
}

var versionJSON bool

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print version information as JSON")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(version.Get())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "klipprompt %s\n", version.Full())
		return nil
	},
}
