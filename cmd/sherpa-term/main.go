package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/sherpa/internal/config"
	"github.com/MikeSquared-Agency/sherpa/internal/console"
	"github.com/MikeSquared-Agency/sherpa/internal/conversation"
	"github.com/MikeSquared-Agency/sherpa/internal/gateway"
	"github.com/MikeSquared-Agency/sherpa/internal/tui"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		plain     bool
		serverURL string
	)

	cmd := &cobra.Command{
		Use:   "sherpa-term",
		Short: "Terminal client for the Sherpa hypothesis assistant",
		Long: `sherpa-term talks to the Sherpa backend from a terminal. By default it
opens a full-screen view; --plain switches to a line-oriented prompt.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if serverURL != "" {
				cfg.ServerURL = serverURL
			}
			if cfg.ServerURL == "" {
				return fmt.Errorf("no backend configured: set SHERPA_SERVER_URL or pass --server-url")
			}

			logger, closeLog, err := setupLogging(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			gw := gateway.NewClient(cfg.ServerURL, cfg.GatewayTimeout, logger)
			ctrl := conversation.New(gw, logger)
			defer ctrl.Close()

			if plain {
				return console.Run(ctx, ctrl, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			return runTUI(ctx, ctrl)
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.Flags().BoolVar(&plain, "plain", false, "use a line-oriented prompt instead of the full-screen view")
	cmd.Flags().StringVar(&serverURL, "server-url", "", "backend base URL (overrides SHERPA_SERVER_URL)")
	return cmd
}

func runTUI(ctx context.Context, ctrl *conversation.Controller) error {
	p := tea.NewProgram(tui.NewModel(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))
	defer tui.Subscribe(p, ctrl)()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// setupLogging writes JSON logs to path, or nowhere when path is empty, so
// log lines never land on the terminal the UI draws on.
func setupLogging(level, path string) (*slog.Logger, func(), error) {
	var (
		w       io.Writer = io.Discard
		closeFn           = func() {}
	)
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = func() { f.Close() }
	}

	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger, closeFn, nil
}
