package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/klipprompt/internal/config"
	"github.com/muurk/klipprompt/internal/discovery"
	"github.com/muurk/klipprompt/internal/linesource"
	"github.com/muurk/klipprompt/internal/logging"
	"github.com/muurk/klipprompt/internal/prompt"
	"github.com/muurk/klipprompt/internal/ui"
	"github.com/muurk/klipprompt/internal/urls"
)

// Command flags
var (
	scanTimeout int
	scanSave    bool
	scriptLines bool
)

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (default from config)")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Store discovered printers in the registry")
	scriptCmd.Flags().BoolVar(&scriptLines, "lines", false, "Print the action comments instead of RESPOND commands")

	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(scanCmd)
}

// replayCmd feeds a recorded console log through the prompt machine
var replayCmd = &cobra.Command{
	Use:   "replay <file|->",
	Short: "Replay a recorded console log",
	Long: `Feed recorded printer console output through the prompt machine.

Every dialog the log would open is printed, along with each state change
and every G-code line klipprompt would send back. Useful when writing
macros.`,
	Example: `  # Replay a saved klippy console
  klipprompt replay console.log

  # Pipe output from a macro test
  printf '// action:prompt_begin Hi\n// action:prompt_show\n' | klipprompt replay -`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

// printSink prints the scripts the machine would send. Nothing acknowledges.
type printSink struct {
	out io.Writer
}

func (s printSink) Send(script string, _ func()) {
	fmt.Fprintf(s.out, "→ %s\n", script)
}

func runReplay(cmd *cobra.Command, args []string) error {
	var r io.Reader
	if args[0] == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open log: %w", err)
		}
		defer f.Close()
		r = f
	}

	out := cmd.OutOrStdout()
	m := prompt.NewMachine(
		ui.NewConsolePresenter(out, ui.GetTerminalWidth()),
		printSink{out: out},
		prompt.WithLogger(logging.GetLogger()),
	)

	lineNo := 0
	port := linesource.New(r, nil)
	err := port.Run(cmd.Context(), func(line string) {
		lineNo++
		before := m.State()
		m.ProcessLine(line)
		if after := m.State(); after != before {
			fmt.Fprintf(out, "%4d  %s → %s  %s\n", lineNo, before, after, strings.TrimSpace(line))
		}
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%d lines, final state %s\n", lineNo, m.State())
	return nil
}

// scriptCmd renders a YAML prompt definition as G-code
var scriptCmd = &cobra.Command{
	Use:   "script <prompt.yaml|->",
	Short: "Generate macro G-code for a prompt",
	Long: `Build the RESPOND commands that open a prompt described in YAML.

The output can be pasted into a gcode_macro. Klipper documents the
resulting commands at ` + urls.KlipperPrompts + `. The file format:

  title: Filament runout
  contents:
    - text: Load new filament and continue?
    - group:
        - {label: Resume, action: RESUME, color: primary}
        - {label: Cancel, action: CANCEL_PRINT, color: error}
  footer:
    - {label: Later}`,
	Args: cobra.ExactArgs(1),
	RunE: runScript,
}

func runScript(cmd *cobra.Command, args []string) error {
	var p *prompt.Prompt
	var err error
	if args[0] == "-" {
		p, err = config.DecodePrompt(cmd.InOrStdin())
	} else {
		p, err = config.LoadPromptFile(args[0])
	}
	if err != nil {
		return err
	}

	build := prompt.RespondScripts
	if scriptLines {
		build = prompt.BuildLines
	}
	lines, err := build(p)
	if err != nil {
		return fmt.Errorf("cannot express prompt: %w", err)
	}

	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

// scanCmd discovers Moonraker instances on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Moonraker instances on the network",
	Long: `Scan for printers using mDNS/DNS-SD discovery.

Moonraker announces ` + discovery.ServiceType + ` when its [zeroconf]
component is enabled.`,
	Example: `  # Scan with the configured timeout
  klipprompt scan

  # Longer scan and remember what was found
  klipprompt scan --timeout 15 --save`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	timeout := scanTimeout
	if timeout <= 0 {
		timeout = reg.Preferences.DiscoverTimeout
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning for Moonraker instances (timeout: %ds)...\n\n", timeout)

	printers, err := discovery.Scan(cmd.Context(), time.Duration(timeout)*time.Second)
	if err != nil {
		fmt.Fprintln(out, ui.NewFailureResult("Scan", err).Render())
		return err
	}

	if len(printers) == 0 {
		fmt.Fprintln(out, ui.NewFailureResult("Scan", fmt.Errorf("no printers found"),
			"Enable the [zeroconf] section in moonraker.conf: "+urls.MoonrakerZeroconf,
			"Check that this machine is on the printer's network",
			"Try increasing --timeout",
			"Use --url to connect without discovery",
		).Render())
		return nil
	}

	result := ui.NewSuccessResult(fmt.Sprintf("Found %d printer(s)", len(printers)))
	for _, p := range printers {
		result.AddDetail(p.Key(), fmt.Sprintf("%s (%s)", p.WebsocketURL(), p.Instance))
		if scanSave {
			reg.UpdatePrinterLastSeen(p.Key(), p.IP, p.WebsocketURL())
		}
	}
	fmt.Fprintln(out, result.Render())

	if scanSave {
		if err := reg.Save(); err != nil {
			return fmt.Errorf("failed to save registry: %w", err)
		}
		fmt.Fprintln(out, "Saved to the registry. Use 'klipprompt watch --printer <key>' to connect.")
	}
	return nil
}

var _ prompt.CommandSink = printSink{}
