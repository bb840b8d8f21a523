package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"biathlonstats/internal/config"
	"biathlonstats/internal/ibu"
	"biathlonstats/internal/pipeline"
	"biathlonstats/internal/runs"
)

// Run serves the runs API until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	client, err := ibu.New(ibu.Options{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		Logger:            logger,
		Registerer:        registry,
	})
	if err != nil {
		return fmt.Errorf("creating results client: %w", err)
	}
	runner := pipeline.NewRunner(client, logger, nil)
	store := runs.NewStore(runner, cfg.Server.RunTTL, logger)
	defer store.Close()
	srv := New(store, logger, registry)

	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("[Server] listening", slog.String("url", "http://localhost:"+cfg.Server.Port))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("[Server] shutting down")
		// Cancelled runs close their event streams so Shutdown can drain them.
		store.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	}
}

// Routes builds the HTTP handler of the server.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.handleCreateRun)
		r.Get("/", s.handleListRuns)
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", s.handleGetRun)
			r.Delete("/", s.handleDeleteRun)
			r.Get("/events", s.handleEvents)
			r.Get("/ws", s.handleWS)
			r.Get("/badges", s.handleBadges)
		})
	})
	return r
}
