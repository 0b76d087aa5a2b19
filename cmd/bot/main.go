// Tourist walking-route assistant bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Temekutza/AI-assistant-for-tourists/internal/api"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/chatlog"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/config"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/dataset"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/flow"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/metrics"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/routegen"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/session"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/store"
	"github.com/Temekutza/AI-assistant-for-tourists/internal/transport"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting bot", "ops_port", cfg.OpsPort, "model", cfg.Ollama.Model)

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	catalog, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		slog.Error("Failed to load dataset", "error", err)
		os.Exit(1)
	}
	slog.Info("Catalog ready", "objects", catalog.Len())

	dialog, err := chatlog.New(chatlog.Config{
		Enabled:       cfg.ChatLog.Enabled,
		Dir:           cfg.ChatLog.Dir,
		GlobalEnabled: cfg.ChatLog.GlobalEnabled,
		GlobalPath:    cfg.ChatLog.GlobalPath,
		QueueSize:     cfg.ChatLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize dialogue log", "error", err)
		os.Exit(1)
	}
	defer func() { _ = dialog.Close() }()

	generator := routegen.NewOllamaGenerator(routegen.OllamaConfig{
		BaseURL:     cfg.Ollama.BaseURL,
		Model:       cfg.Ollama.Model,
		Temperature: cfg.Ollama.Temperature,
	}, catalog, logger)
	supervisor := routegen.NewSupervisor(generator, cfg.Ollama.Timeout, logger)

	registry := session.NewRegistry()
	metrics.RegisterActiveSessions(registry.Len)

	bot, err := transport.NewBot(cfg.TelegramToken, logger)
	if err != nil {
		slog.Error("Failed to initialize telegram bot", "error", err)
		os.Exit(1)
	}

	machine := flow.NewMachine(registry, supervisor, bot, repo, dialog, logger)

	// Operational HTTP server.
	handler := api.NewHandler(repo, registry, supervisor)
	srv := &http.Server{
		Addr:         ":" + cfg.OpsPort,
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session.StartSweeper(ctx, registry, cfg.SessionTTL)

	go func() {
		slog.Info("Ops server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Ops server failed", "error", err)
			stop()
		}
	}()

	// Blocks until shutdown.
	bot.Run(ctx, machine)

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Ops server shutdown failed", "error", err)
	}

	// Let in-flight generations deliver before the process exits.
	supervisor.Close()
	slog.Info("Shutdown complete")
}
