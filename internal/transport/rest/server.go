package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger *slog.Logger
	redis  *redis.Client
	ws     http.HandlerFunc
}

func New(logger *slog.Logger, redisClient *redis.Client, ws http.HandlerFunc) *Server {
	return &Server{
		logger: logger.With("component", "rest"),
		redis:  redisClient,
		ws:     ws,
	}
}

// Start serves the health endpoint and the real-time endpoint until the
// context is canceled.
func (that *Server) Start(ctx context.Context, port string) error {
	router := chi.NewRouter()
	router.Get("/healthz", that.handleHealth)
	router.Get("/ws", that.ws)

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     router,
		IdleTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := that.redis.Ping(r.Context()).Err(); err != nil {
		that.logger.Error("storage unreachable", "error", err)
		http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
