package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gridmatch/internal/config"
	"gridmatch/internal/repository"
	"gridmatch/internal/repository/storage"
	"gridmatch/internal/service"
	"gridmatch/internal/transport/rest"
	"gridmatch/internal/transport/websocket"
	"gridmatch/internal/usecase"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisClient, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisClient.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	allocator := service.NewRoomAllocator(logger, repository.NewRoomRepository(redisClient))
	registry := service.NewPlayerRegistry(logger, repository.NewPlayerRepository(redisClient))
	stateMachine := service.NewGameStateMachine(logger, repository.NewGameRepository(redisClient))
	coordinator := usecase.NewSessionCoordinator(logger, allocator, registry, stateMachine)

	wsServer := websocket.New(logger, coordinator, conf.GracePeriod)
	restServer := rest.New(logger, redisClient, wsServer.Handler(ctx))

	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
