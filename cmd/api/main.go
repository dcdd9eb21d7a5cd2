package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dvloznov/finance-ledger/internal/api/handlers"
	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/app"
	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", "", "Path to config file (default ./ledger.yaml if present)")
		port       = flag.Int("port", 0, "HTTP server port (overrides server.port)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New().Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log := logger.Configure(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, log, app.WithAsyncCleanup(inmemory.DefaultConfig()))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise ledger")
	}
	defer a.Close()

	// Create router
	mux := http.NewServeMux()
	handlers.Register(mux, a.Ledger)

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Create HTTP server
	addr := ":" + strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      middleware.Chain(mux, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", addr).Str("store", cfg.Store.Driver).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
