package bootstrap

import (
	"flag"
	"fmt"
	"os"

	"github.com/jonesrussell/gomonitor/internal/config"
	"github.com/jonesrussell/gomonitor/internal/logger"
)

// LoadConfig loads configuration from the -config flag, honoring the
// GOMONITOR_CONFIG environment variable as the default path.
func LoadConfig() (*config.Config, error) {
	defaultPath := os.Getenv("GOMONITOR_CONFIG")
	if defaultPath == "" {
		defaultPath = "config.yml"
	}
	configPath := flag.String("config", defaultPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// CreateLogger creates the service logger from configuration.
func CreateLogger(cfg *config.Config, version string) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log.With(
		logger.String("service", "gomonitor"),
		logger.String("version", version),
	), nil
}
