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

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"courtlog/internal/config"
	"courtlog/internal/publisher"
	"courtlog/internal/ratelimit"
	"courtlog/internal/scheduler"
	"courtlog/internal/server"
	"courtlog/internal/service"
	"courtlog/internal/source/youtube"
	"courtlog/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Initialize RabbitMQ publisher
	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	// Initialize stores
	channelStore := postgres.NewChannelStore(db)
	catalogStore := postgres.NewCatalogStore(db)
	matchStore := postgres.NewMatchStore(db)
	txManager := postgres.NewTransactionManager(db)

	// Initialize video source
	source := youtube.New(youtube.Config{
		BaseURL:        cfg.Source.BaseURL,
		APIKey:         cfg.Source.APIKey,
		Timeout:        cfg.Source.Timeout,
		MaxAttempts:    cfg.Source.Retry.MaxAttempts,
		InitialBackoff: cfg.Source.Retry.InitialBackoff,
		MaxBackoff:     cfg.Source.Retry.MaxBackoff,
	}, logger)

	// Initialize services
	limiter := ratelimit.New(cfg.Intake.MaxPerWindow, cfg.Intake.Window)
	ingestService := service.NewIngestService(source, channelStore, catalogStore, rabbitMQ, logger, cfg.Ingest)
	intakeService := service.NewIntakeService(catalogStore, limiter, rabbitMQ, logger)
	moderationService := service.NewModerationService(catalogStore, matchStore, txManager, rabbitMQ, logger)
	channelService := service.NewChannelService(source, channelStore, logger)

	sched := scheduler.NewScheduler(ingestService, cfg.Ingest.Interval, cfg.Ingest.RunTimeout, logger)
	srv := server.New(cfg.Server, ingestService, intakeService, moderationService, channelService, catalogStore, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	logger.Info("starting moderation pipeline",
		"source", source.Name(),
		"scrape_interval", cfg.Ingest.Interval,
		"max_per_channel", cfg.Ingest.MaxPerChannel,
	)

	schedErr := sched.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}

	if schedErr != nil && schedErr != context.Canceled {
		logger.Error("scheduler error", "error", schedErr)
		os.Exit(1)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
