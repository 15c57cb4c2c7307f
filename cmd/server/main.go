package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felitsch/postforge/internal/api"
	"github.com/felitsch/postforge/internal/export"
	"github.com/felitsch/postforge/internal/infra/config"
	"github.com/felitsch/postforge/internal/infra/httpclient"
	"github.com/felitsch/postforge/internal/infra/limiter"
	"github.com/felitsch/postforge/internal/infra/logger"
	"github.com/felitsch/postforge/internal/render"
	"github.com/felitsch/postforge/internal/service/genai"
	"github.com/felitsch/postforge/internal/service/persist"
	"github.com/felitsch/postforge/internal/session"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Init logger
	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	// Init HTTP client
	httpClient := httpclient.New(httpclient.Options{
		Timeout:    time.Duration(cfg.HTTPClient.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.HTTPClient.MaxRetries,
	})

	// Init limiter for outbound generation calls
	lim := limiter.New(cfg.Limiter.MaxConcurrent, cfg.Limiter.RatePerSecond)

	// Init services
	genaiSvc := genai.New(cfg.GenAI.BaseURL, cfg.GenAI.APIKey, cfg.GenAI.Model, httpClient, zapLogger)
	persistSvc := persist.New(cfg.Backend.BaseURL, cfg.Backend.APIKey, httpClient, zapLogger)

	// Init render + export
	pipeline := render.NewPipeline(cfg.Brand.Name, nil)
	exporter := export.New(pipeline, persistSvc, cfg.Brand.Name, zapLogger)

	// Init session registry
	sessions := session.NewRegistry(genaiSvc, lim, session.Options{
		Debounce: time.Duration(cfg.History.DebounceMillis) * time.Millisecond,
		MaxDepth: cfg.History.MaxDepth,
	}, zapLogger)

	// Init router
	router := api.NewRouter(sessions, exporter, zapLogger)

	// Create server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	// Start server
	go func() {
		zapLogger.Info("starting server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server forced to shutdown", "error", err)
	}
	zapLogger.Info("server stopped")
}
