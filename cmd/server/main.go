package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/RichardoC/chat-relay/internal/api"
	"github.com/RichardoC/chat-relay/internal/chat"
	"github.com/RichardoC/chat-relay/internal/config"
	"github.com/RichardoC/chat-relay/internal/db"
	"github.com/RichardoC/chat-relay/internal/llm"
	"github.com/RichardoC/chat-relay/internal/metrics"
	"github.com/RichardoC/chat-relay/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger settings come from config, so fall back to a default one here.
		fallback, _ := zap.NewProduction()
		fallback.Fatal("invalid configuration", zap.Error(err))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database",
			zap.Error(err),
			zap.String("dbPath", cfg.DBPath))
	}

	llmService, err := llm.New(
		cfg.LLMBaseURL,
		cfg.LLMToken,
		cfg.LLMModel,
		append(cfg.LLMOptions(), llm.WithLogger(logger.Named("llm")))...,
	)
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	orchestrator := chat.New(
		session.NewRegistry(cfg.MaxLogSize),
		llmService,
		database,
		chat.WithSystemPrompt(cfg.SystemPrompt),
		chat.WithLogger(logger.Named("chat")),
		chat.WithMetrics(metrics.New(reg)),
	)

	handler := api.NewHandler(orchestrator, logger.Named("api"), reg).
		WithHealthCheck(database.Ping)

	if ids, err := database.Sessions(context.Background()); err != nil {
		logger.Warn("failed to list stored sessions", zap.Error(err))
	} else {
		logger.Info("Opened database", zap.String("dbPath", cfg.DBPath), zap.Int("storedSessions", len(ids)))
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting server",
			zap.String("addr", cfg.Addr),
			zap.String("model", cfg.LLMModel),
			zap.Int("maxLogSize", cfg.MaxLogSize))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err = multierr.Combine(
		server.Shutdown(shutdownCtx),
		database.Close(),
	)
	if err != nil {
		logger.Error("unclean shutdown", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewProductionConfig()
	if cfg.LogFormat == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
