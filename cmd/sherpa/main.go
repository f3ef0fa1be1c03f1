package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/sherpa/internal/api"
	"github.com/MikeSquared-Agency/sherpa/internal/config"
	"github.com/MikeSquared-Agency/sherpa/internal/conversation"
	"github.com/MikeSquared-Agency/sherpa/internal/gateway"
	"github.com/MikeSquared-Agency/sherpa/internal/hermes"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("sherpa starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Backend service
	if cfg.ServerURL == "" {
		slog.Error("SHERPA_SERVER_URL is required")
		os.Exit(1)
	}
	gw := gateway.NewClient(cfg.ServerURL, cfg.GatewayTimeout, slog.Default())
	slog.Info("gateway ready", "url", cfg.ServerURL, "timeout", cfg.GatewayTimeout)

	// NATS/Hermes (optional, conversations work without the relay)
	var relay *hermes.Relay
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.Connect(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		relay = hermes.NewRelay(hermesClient, slog.Default())
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS not configured, running without event relay")
	}

	sessions := api.NewSessions(func() *conversation.Controller {
		c := conversation.New(gw, slog.Default())
		if relay != nil {
			relay.Attach(c)
		}
		return c
	}, cfg.SessionIdle)
	go sessions.RunSweeper(ctx, time.Minute)

	// HTTP API
	srv := api.NewServer(cfg.Port, sessions, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	if relay != nil {
		if err := relay.AnnounceRegistration(cfg.Port, cfg.ServerURL); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("sherpa ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	cancel()
	slog.Info("sherpa stopped")
}

func setupLogging(level string) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)})))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
