package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/workbenchapp/worknet-proposer/internal/api"
	"github.com/workbenchapp/worknet-proposer/internal/app"
	"github.com/workbenchapp/worknet-proposer/internal/config"
	"github.com/workbenchapp/worknet-proposer/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Error(err, "Invalid configuration")
		os.Exit(1)
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error(err, "Failed to initialize")
		os.Exit(1)
	}
	defer a.Close()

	if cfg.Server.APIKey == "" {
		log.Info("Warning: API_KEY is not set, the API rejects every request until a key is stored")
	}

	// Create router
	router := api.NewRouter(a.Store, a.Service, api.Options{
		BootstrapKey: cfg.Server.APIKey,
		CORSOrigins:  cfg.Server.GetCORSOrigins(),
		Logger:       log,
	})

	// Submissions wait for confirmation, so writes may take up to the
	// confirm timeout per transaction.
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2*cfg.Submission.ConfirmTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info("Starting worknet proposer", "addr", "http://"+cfg.Server.Addr())

	errs := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errs:
		log.Error(err, "Server failed")
		a.Close()
		os.Exit(1)
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	log.Info("Server stopped")
}
