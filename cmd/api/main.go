// Package main is the entry point for the cortex API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/haus-platform/cortex/internal/config"
	"github.com/haus-platform/cortex/internal/handler"
	"github.com/haus-platform/cortex/internal/middleware"
	natsclient "github.com/haus-platform/cortex/internal/nats"
	"github.com/haus-platform/cortex/internal/ratelimit"
	"github.com/haus-platform/cortex/internal/service"
	"github.com/haus-platform/cortex/internal/store"
	"github.com/haus-platform/cortex/pkg/logger"
	"github.com/haus-platform/cortex/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting cortex server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "cortex", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open store", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	// The indexer notifier is optional: without NATS the engine still
	// records and recalls, it just stops announcing writes.
	var cortexNotifier service.Notifier
	var nc *natsclient.Client
	nc, err = natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Warn("NATS unavailable, indexer notifications disabled", zap.Error(err))
		nc = nil
	} else {
		defer nc.Close()

		publisher := natsclient.NewEventPublisher(nc)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure events stream", zap.Error(err))
			os.Exit(1)
		}
		cortexNotifier = publisher
	}

	limiter := ratelimit.NewLimiter(st, ratelimit.Config{
		ratelimit.ClassMemory:     {Ceiling: cfg.MemoryOpsLimit, Window: cfg.MemoryOpsWindow},
		ratelimit.ClassRecall:     {Ceiling: cfg.RecallLimit, Window: cfg.RecallWindow},
		ratelimit.ClassVoiceToken: {Ceiling: cfg.VoiceTokenLimit, Window: cfg.VoiceTokenWindow},
	})

	cortex := service.New(st, limiter, cortexNotifier, log)

	healthHandler := handler.NewHealthHandler(st, nc)
	cortexHandler := handler.NewCortexHandler(cortex, log)
	userHandler := handler.NewUserHandler(cortex, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Session-Token"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	// Engine operations, called by the voice-agent worker and the web app.
	r.Route("/api/cortex", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.HTTPRateLimit, cfg.HTTPRateWindow))

		r.Post("/ensure-memory-space", cortexHandler.EnsureMemorySpace)
		r.Post("/remember", cortexHandler.Remember)
		r.Post("/store-preference", cortexHandler.StorePreference)
		r.Post("/recall", cortexHandler.Recall)
		r.Post("/voice-token", cortexHandler.VoiceToken)
	})

	// Account provisioning, restricted to authenticated service callers.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.HTTPRateLimit, cfg.HTTPRateWindow))

		r.Post("/users", userHandler.Create)
		r.Get("/users/{id}", userHandler.Get)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
