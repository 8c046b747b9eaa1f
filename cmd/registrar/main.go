// Package main provides the consumer that stores callback registrations published to a Redis stream.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jnst/egisz-callback-relay/internal/bootstrap"
	"github.com/jnst/egisz-callback-relay/internal/config"
	"github.com/jnst/egisz-callback-relay/internal/logger"
	"github.com/jnst/egisz-callback-relay/internal/registrar"
	"github.com/jnst/egisz-callback-relay/internal/service"
)

const exitCode = 1

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	// ログ設定
	slog.SetDefault(logger.Setup(cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := bootstrap.NewRedisClient(cfg)
	if err != nil {
		slog.Error("failed to connect to Redis", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}
	defer redisClient.Close()

	store, closeStore, err := bootstrap.NewCorrelationStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open correlation store",
			slog.String("backend", cfg.CorrelationBackend),
			slog.String("error", err.Error()),
		)
		os.Exit(exitCode)
	}
	defer closeStore()

	registrations := service.NewRegistrationServiceImpl(store, cfg.CorrelationChannel, cfg.RegistrationTTL)
	consumer := registrar.NewConsumer(redisClient, registrations,
		cfg.RegistrationStream, cfg.ConsumerGroup, cfg.ConsumerName)

	if err := consumer.EnsureGroup(ctx); err != nil {
		slog.Error("failed to create consumer group",
			slog.String("stream", cfg.RegistrationStream),
			slog.String("group", cfg.ConsumerGroup),
			slog.String("error", err.Error()),
		)
		os.Exit(exitCode)
	}

	slog.Info("starting registration consumer",
		slog.String("service", "registrar"),
		slog.String("stream", cfg.RegistrationStream),
		slog.String("group", cfg.ConsumerGroup),
		slog.String("consumer", cfg.ConsumerName),
		slog.String("backend", cfg.CorrelationBackend),
	)

	consumer.Run(ctx)
}
