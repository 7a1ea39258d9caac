package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/klipprompt/internal/config"
	"github.com/muurk/klipprompt/internal/discovery"
	"github.com/muurk/klipprompt/internal/linesource"
	"github.com/muurk/klipprompt/internal/logging"
	"github.com/muurk/klipprompt/internal/moonraker"
	"github.com/muurk/klipprompt/internal/observability"
	"github.com/muurk/klipprompt/internal/prompt"
	"github.com/muurk/klipprompt/internal/server"
	"github.com/muurk/klipprompt/internal/ui"
	"github.com/muurk/klipprompt/internal/version"
)

// Watch command flags
var (
	printerQuery  string
	moonrakerURL  string
	devicePath    string
	presenterName string
	httpAddr      string
)

// errQuit ends the errgroup when the user leaves the terminal UI
var errQuit = errors.New("quit")

func init() {
	rootCmd.PersistentFlags().StringVarP(&printerQuery, "printer", "p", "", "Printer key or nickname from the registry")
	rootCmd.PersistentFlags().StringVar(&moonrakerURL, "url", "", "Moonraker URL (skips the registry)")

	for _, c := range []*cobra.Command{rootCmd, watchCmd} {
		c.Flags().StringVar(&devicePath, "device", "", "Read Klipper's serial pseudo-terminal instead of Moonraker (e.g. "+linesource.DefaultDevice+")")
		c.Flags().StringVar(&presenterName, "presenter", "", "Presenter: tui or http (default from config)")
		c.Flags().StringVar(&httpAddr, "http-addr", "", "Listen address of the http presenter")
	}

	rootCmd.AddCommand(watchCmd)
}

// watchCmd follows the printer console and presents prompts
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a printer and answer its prompts",
	Long: `Connect to a printer and show every prompt its macros open.

The printer is taken from --url, KLIPPROMPT_MOONRAKER_URL, --printer, the
default printer in the registry, or mDNS discovery, in that order. --device
reads Klipper's pseudo-terminal directly instead.`,
	Example: `  # Default printer, terminal UI
  klipprompt watch

  # A printer from the registry by nickname
  klipprompt watch --printer voron

  # Headless: serve the prompt over HTTP
  klipprompt watch --presenter http --http-addr 0.0.0.0:7130

  # Klipper's virtual serial port on the printer host
  klipprompt watch --device /tmp/printer`,
	RunE: runWatch,
}

// transport is where console lines come from and G-code goes to
type transport struct {
	label string
	sink  prompt.CommandSink
	run   func(ctx context.Context, handler func(line string)) error
	close func() error
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown := observability.Init(ctx, observability.ConfigFromEnv(version.Name, version.Version))
	defer func() { _ = shutdown(context.Background()) }()

	reg, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	tr, err := openTransport(ctx, reg)
	if err != nil {
		return err
	}
	if tr.close != nil {
		defer func() { _ = tr.close() }()
	}

	kind := presenterName
	if kind == "" {
		kind = reg.Preferences.Presenter
	}

	g, gctx := errgroup.WithContext(ctx)
	var session *prompt.Session

	switch strings.ToLower(kind) {
	case config.PresenterTUI, "":
		prog := tea.NewProgram(ui.NewModel(version.Name, tr.label), tea.WithAltScreen(), tea.WithContext(gctx))
		pres := ui.NewPresenter(prog)
		session = prompt.NewSession(pres, tr.sink)

		g.Go(func() error {
			_, err := prog.Run()
			if errors.Is(err, tea.ErrProgramKilled) || gctx.Err() != nil {
				return nil
			}
			if err != nil {
				return fmt.Errorf("terminal UI: %w", err)
			}
			return errQuit
		})
		g.Go(func() error {
			pres.SetStatus("Watching %s", tr.label)
			return nil
		})

	case config.PresenterHTTP:
		addr := httpAddr
		if addr == "" {
			addr = reg.HTTPAddr()
		}
		pres := server.NewPresenter()
		session = prompt.NewSession(pres, tr.sink)
		srv := server.New(server.Config{Addr: addr}, pres)
		g.Go(func() error { return srv.Run(gctx) })
		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s, prompts at http://%s/prompt\n", tr.label, addr)

	default:
		return fmt.Errorf("unknown presenter %q (want %s or %s)", kind, config.PresenterTUI, config.PresenterHTTP)
	}

	g.Go(func() error { return session.Run(gctx) })
	g.Go(func() error {
		err := tr.run(gctx, func(line string) {
			if err := session.Submit(gctx, line); err != nil {
				logging.Debug("Dropped console line", zap.String("line", line), zap.Error(err))
			}
		})
		if err != nil && gctx.Err() == nil {
			return fmt.Errorf("%s: %w", tr.label, err)
		}
		return nil
	})

	err = g.Wait()
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// openTransport picks the line source and command sink from the flags,
// the environment and the registry.
func openTransport(ctx context.Context, reg *config.Registry) (*transport, error) {
	if devicePath != "" {
		port, err := linesource.Open(devicePath)
		if err != nil {
			return nil, err
		}
		return &transport{
			label: devicePath,
			sink:  port,
			run:   port.Run,
			close: port.Close,
		}, nil
	}

	url := moonrakerURL
	apiKey := os.Getenv(config.APIKeyEnvVar)
	if url == "" {
		conn, err := reg.ResolveConnection(printerQuery)
		switch {
		case err == nil:
			url, apiKey = conn.MoonrakerURL, conn.APIKey
		case errors.Is(err, config.ErrNoPrinter) && reg.Preferences.AutoDiscover:
			printer, derr := discoverPrinter(ctx, reg)
			if derr != nil {
				return nil, derr
			}
			url = printer.WebsocketURL()
		default:
			return nil, err
		}
	}

	client, err := moonraker.NewClient(url, apiKey)
	if err != nil {
		return nil, err
	}
	return &transport{
		label: client.URL,
		sink:  client,
		run: func(ctx context.Context, handler func(line string)) error {
			return client.Run(ctx, handler)
		},
	}, nil
}

// discoverPrinter finds a single Moonraker instance over mDNS and records
// it in the registry.
func discoverPrinter(ctx context.Context, reg *config.Registry) (*discovery.Printer, error) {
	scanner := discovery.NewScanner()
	if reg.Preferences.DiscoverTimeout > 0 {
		scanner.Timeout = time.Duration(reg.Preferences.DiscoverTimeout) * time.Second
	}

	var printer *discovery.Printer
	if printerQuery != "" {
		p, err := scanner.WaitForPrinter(ctx, printerQuery)
		if err != nil {
			return nil, fmt.Errorf("printer %q not found: %w", printerQuery, err)
		}
		printer = p
	} else {
		printers, err := scanner.Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("discovery failed: %w", err)
		}
		switch len(printers) {
		case 0:
			return nil, fmt.Errorf("no printer configured and none found on the network; run 'klipprompt scan' or pass --url")
		case 1:
			printer = printers[0]
		default:
			names := make([]string, 0, len(printers))
			for _, p := range printers {
				names = append(names, p.Key())
			}
			return nil, fmt.Errorf("found %d printers (%s); choose one with --printer", len(printers), strings.Join(names, ", "))
		}
	}

	reg.UpdatePrinterLastSeen(printer.Key(), printer.IP, printer.WebsocketURL())
	if err := reg.Save(); err != nil {
		logging.Warn("Failed to save discovered printer", zap.Error(err))
	}
	return printer, nil
}
