package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/remotphone/relay/internal/config"
	"github.com/remotphone/relay/internal/server"
	"github.com/remotphone/relay/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Set up structured logging
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting broker",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadAndValidate(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Create and start the broker
	broker := server.NewServer(server.Config{
		HeartbeatInterval: cfg.Sessions.HeartbeatInterval,
		SweepInterval:     cfg.Sessions.SweepInterval,
		SessionTTL:        cfg.Sessions.TTL,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadLimit:         cfg.Server.ReadLimit,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
	}, logger)

	if err := broker.Start(ctx); err != nil {
		logger.Error("failed to start broker", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           broker.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening",
			"addr", cfg.Server.ListenAddr,
			"ws_path", "/ws",
			"status_path", "/api/status",
		)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		httpServer.Shutdown(shutdownCtx)
		return broker.Stop(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("broker exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("broker stopped")
}
