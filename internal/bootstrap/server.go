package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonesrussell/gomonitor/internal/api"
	"github.com/jonesrussell/gomonitor/internal/config"
	"github.com/jonesrussell/gomonitor/internal/database"
	"github.com/jonesrussell/gomonitor/internal/handlers"
	"github.com/jonesrussell/gomonitor/internal/health"
	"github.com/jonesrussell/gomonitor/internal/logger"
	"github.com/jonesrussell/gomonitor/internal/manager"
)

const shutdownTimeout = 10 * time.Second

const bytesPerMB = 1024 * 1024

// SetupHTTPServer wires handlers, probes, and the router into an HTTP server.
func SetupHTTPServer(
	cfg *config.Config,
	client *database.Client,
	recordManager *manager.Manager,
	log logger.Logger,
) *http.Server {
	aggregator := health.NewAggregator(
		health.NewStoreProbe(client),
		health.NewMemoryProbe(uint64(cfg.Health.MemoryLimitMB)*bytesPerMB),
		health.NewCoverageProbe(recordManager),
	)

	recordHandler := handlers.NewRecordHandler(recordManager, log)
	healthHandler := handlers.NewHealthHandler(aggregator)

	router := api.NewRouter(cfg, recordHandler, healthHandler, log)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}

// RunServer runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func RunServer(server *http.Server, log logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("Shutting down", logger.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
