// Package bootstrap builds the collaborators shared by the binaries from configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/rueidis"

	"github.com/jnst/egisz-callback-relay/internal/config"
	"github.com/jnst/egisz-callback-relay/internal/repository"
)

// NewRedisClient connects to cfg.RedisAddr. Client-side caching is disabled
// since registrations are read once.
func NewRedisClient(cfg *config.Config) (rueidis.Client, error) {
	return rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.RedisAddr},
		DisableCache: true,
	})
}

// NewCorrelationStore opens the backend selected by cfg.CorrelationBackend.
// The returned cleanup releases its connections.
func NewCorrelationStore(ctx context.Context, cfg *config.Config) (repository.CorrelationStore, func(), error) {
	switch cfg.CorrelationBackend {
	case config.BackendRedis:
		redisClient, err := NewRedisClient(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		return repository.NewRedisCorrelationStoreImpl(redisClient), redisClient.Close, nil

	case config.BackendPostgres:
		if cfg.MigrateOnStart {
			if err := repository.Migrate(cfg.DatabaseURL); err != nil {
				return nil, nil, err
			}
			slog.Info("database migrations completed")
		}

		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		return repository.NewPostgresCorrelationStoreImpl(dbPool), dbPool.Close, nil

	case config.BackendNATS:
		conn, err := nats.Connect(cfg.NATSURL, nats.Name("egisz-callback-relay"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}

		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}

		return repository.NewNATSCorrelationStoreImpl(js, cfg.RegistrationTTL), conn.Close, nil

	case config.BackendMemory:
		return repository.NewMemoryCorrelationStoreImpl(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown correlation backend %q", cfg.CorrelationBackend)
	}
}
