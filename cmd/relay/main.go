// Package main provides the HTTP server that relays exchange result notifications to registered consumers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jnst/egisz-callback-relay/internal/bootstrap"
	"github.com/jnst/egisz-callback-relay/internal/client"
	"github.com/jnst/egisz-callback-relay/internal/config"
	"github.com/jnst/egisz-callback-relay/internal/handler"
	"github.com/jnst/egisz-callback-relay/internal/logger"
	"github.com/jnst/egisz-callback-relay/internal/model"
	"github.com/jnst/egisz-callback-relay/internal/service"
)

const (
	readHeaderTimeout = 10 * time.Second
	exitCode          = 1
)

func main() {
	// 環境変数読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(exitCode)
	}

	// ログ設定
	slog.SetDefault(logger.Setup(cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := bootstrap.NewCorrelationStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open correlation store",
			slog.String("backend", cfg.CorrelationBackend),
			slog.String("error", err.Error()),
		)
		os.Exit(exitCode)
	}
	defer closeStore()

	// 依存関係注入
	relay := service.NewDeliveryRelayImpl(
		service.NewCorrelationResolverImpl(store, cfg.CorrelationChannel),
		service.NewEnvelopeBuilderImpl(model.EnvelopeFormat(cfg.EnvelopeFormat)),
		client.NewCallbackClient(cfg.DeliveryTimeout),
	)
	registrations := service.NewRegistrationServiceImpl(store, cfg.CorrelationChannel, cfg.RegistrationTTL)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(handler.NewCallbackHandler(relay), handler.NewRegistrationHandler(registrations)),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		slog.Error("failed to listen", slog.String("addr", server.Addr), slog.String("error", err.Error()))
		return
	}

	slog.Info("starting callback relay",
		slog.String("service", "relay"),
		slog.String("port", cfg.Port),
		slog.String("backend", cfg.CorrelationBackend),
		slog.String("channel", cfg.CorrelationChannel),
		slog.String("envelope_format", cfg.EnvelopeFormat),
	)

	// In-flight deliveries may take up to the delivery timeout.
	if err := serve(ctx, server, listener, cfg.DeliveryTimeout+readHeaderTimeout); err != nil {
		slog.Error("server stopped with error", slog.String("error", err.Error()))
		return
	}

	slog.Info("callback relay stopped")
}

// serve runs server on listener until ctx is done, then shuts it down and
// returns only after in-flight requests have finished or shutdownTimeout elapsed.
func serve(ctx context.Context, server *http.Server, listener net.Listener, shutdownTimeout time.Duration) error {
	shutdownDone := make(chan error, 1)

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, stopping server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownDone <- server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	// Serve returns as soon as Shutdown begins.
	if err := <-shutdownDone; err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}
