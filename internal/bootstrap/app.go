// Package bootstrap handles application initialization and lifecycle
// management for the monitor service.
package bootstrap

import (
	"fmt"

	"github.com/jonesrussell/gomonitor/internal/audit"
	"github.com/jonesrussell/gomonitor/internal/database"
	"github.com/jonesrussell/gomonitor/internal/logger"
	"github.com/jonesrussell/gomonitor/internal/manager"
)

const version = "dev"

// Start initializes and runs the monitor service.
func Start() error {
	// Phase 1: config and logger
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := CreateLogger(cfg, version)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	// Phase 2: store client
	client, err := database.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()

	// Phase 3: optional change-event publisher
	publisher := SetupEventPublisher(cfg, log)

	// Phase 4: domain wiring
	recordManager := manager.New(client, audit.NewWriter(log), publisher, log)

	// Phase 5: HTTP server
	server := SetupHTTPServer(cfg, client, recordManager, log)

	log.Info("Starting HTTP server",
		logger.String("host", cfg.Server.Host),
		logger.Int("port", cfg.Server.Port),
	)

	if runErr := RunServer(server, log); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server error: %w", runErr)
	}

	log.Info("Server exited")
	return nil
}
