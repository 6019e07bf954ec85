// Package main implements the cortex-notice entry point.
// This file handles command-line parsing, configuration and logging setup,
// and launches the notice board either from flags or from a failed probe.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nexus-station/cortex/internal/app"
	"github.com/nexus-station/cortex/internal/config"
	"github.com/nexus-station/cortex/internal/errors"
	"github.com/nexus-station/cortex/internal/logging"
	"github.com/nexus-station/cortex/internal/protocol"
)

// Application metadata
const (
	Version     = "1.0.0"
	ProgramName = "Cortex Notice"
)

// mainSlot is the board slot the CLI shows its single notice in.
const mainSlot = "main"

// cliOptions represents parsed command-line flags
type cliOptions struct {
	Message    string
	TraceID    string
	Status     int
	NoDismiss  bool
	ConfigPath string
	EnvFile    string
	LogFile    string
	URL        string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var opts cliOptions

	cmd := &cobra.Command{
		Use:   "cortex-notice",
		Short: "Show a Cortex error notice in the terminal",
		Long: `cortex-notice renders an error notice the way the Cortex console does.

Client errors (4xx) are shown in amber without a trace ID. Everything else is
shown in red with the trace ID and a copy control when one is known.

With --url the notice is built from a failed GET request instead of flags.`,
		Example: `  cortex-notice --message "Upstream timeout" --status 503 --trace-id abc-123
  cortex-notice --message "Invalid section" --status 409
  cortex-notice --url http://localhost:8080/api/crew`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Message, "message", "m", "", "notice message")
	flags.StringVarP(&opts.TraceID, "trace-id", "t", "", "correlation ID shown for system errors")
	flags.IntVarP(&opts.Status, "status", "s", 0, "HTTP status code (0 for none)")
	flags.BoolVar(&opts.NoDismiss, "no-dismiss", false, "omit the dismiss control")
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (default $XDG_CONFIG_HOME/cortex/notice.yaml)")
	flags.StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file loaded before configuration")
	flags.StringVar(&opts.LogFile, "log-file", "", "write logs to this file instead of the configured output")
	flags.StringVarP(&opts.URL, "url", "u", "", "probe this URL and show its failure")

	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%s\n", ProgramName, Version)
		},
	}
}

func run(ctx context.Context, out io.Writer, opts cliOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := config.LoadDotEnv(opts.EnvFile); err != nil {
		return err
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := initializeLogging(cfg, opts)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var d errors.Description
	if opts.URL != "" {
		client := protocol.NewClient(cfg.RequestTimeout(), nil, logging.GetProbeLogger())
		handler := errors.NewHandler(logging.GetProbeLogger())

		var resp *protocol.Response
		d, resp = probe(ctx, client, handler, opts.URL)
		if resp != nil {
			fmt.Fprintf(out, "%s %d %s (%s)\n", opts.URL, resp.StatusCode, http.StatusText(resp.StatusCode), resp.Duration.Round(time.Millisecond))
			return nil
		}
	} else {
		d, err = descriptionFromFlags(opts)
		if err != nil {
			return err
		}
	}

	board := app.NewNoticeBoard(cfg, logging.GetUILogger(), app.QuitWhenEmpty())
	defer board.Close()

	if opts.NoDismiss {
		board.ShowPersistent(mainSlot, d)
	} else {
		board.Show(mainSlot, d)
	}

	logger.Debug("Starting notice program", "category", errors.Classify(d).String())
	if _, err := tea.NewProgram(board, tea.WithContext(ctx), tea.WithOutput(out)).Run(); err != nil {
		return fmt.Errorf("notice program failed: %w", err)
	}
	return nil
}

func loadConfig(opts cliOptions) (*config.Config, error) {
	manager, err := config.NewManager(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}
	manager.SetLogger(logging.GetConfigLogger())

	cfg, err := manager.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// initializeLogging sets up the global logger from the configuration
func initializeLogging(cfg *config.Config, opts cliOptions) (*logging.Logger, error) {
	logConfig, err := cfg.LoggingConfig()
	if err != nil {
		return nil, err
	}
	if opts.LogFile != "" {
		logConfig.Output = opts.LogFile
	}

	if err := logging.InitGlobalLogger(logConfig); err != nil {
		return nil, err
	}

	logger := logging.GetGlobalLogger()
	logger.Debug("Cortex notice starting", "version", Version, "config", opts.ConfigPath)
	return logger, nil
}

// descriptionFromFlags builds the notice input from command-line flags.
func descriptionFromFlags(opts cliOptions) (errors.Description, error) {
	message := strings.TrimSpace(opts.Message)
	if message == "" {
		return errors.Description{}, fmt.Errorf("--message is required unless --url is given")
	}
	if opts.Status != 0 && (opts.Status < 100 || opts.Status > 599) {
		return errors.Description{}, fmt.Errorf("--status must be 0 or an HTTP status code, got %d", opts.Status)
	}
	return errors.Description{
		Message: message,
		TraceID: strings.TrimSpace(opts.TraceID),
		Status:  opts.Status,
	}, nil
}

// probe fetches rawURL. On failure it returns the normalized description and
// a nil response.
func probe(ctx context.Context, client *protocol.Client, handler *errors.Handler, rawURL string) (errors.Description, *protocol.Response) {
	resp, err := client.Get(ctx, rawURL)
	if err != nil {
		return handler.Normalize(err), nil
	}
	return errors.Description{}, resp
}
