// Command import bulk-registers monitored records from an Excel spreadsheet
// produced with the gentemplate command.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jonesrussell/gomonitor/internal/audit"
	"github.com/jonesrussell/gomonitor/internal/config"
	"github.com/jonesrussell/gomonitor/internal/database"
	"github.com/jonesrussell/gomonitor/internal/importer"
	"github.com/jonesrussell/gomonitor/internal/logger"
	"github.com/jonesrussell/gomonitor/internal/manager"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yml", "Path to configuration file")
	filePath := flag.String("file", "", "Path to the import spreadsheet")
	skipErrors := flag.Bool("skip-errors", false, "Register valid rows even when others fail")
	flag.Parse()

	if *filePath == "" {
		return fmt.Errorf("-file is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Development: cfg.Debug})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	inputs, rowErrors, err := importer.ParseFile(*filePath)
	if err != nil {
		return err
	}
	for _, rowErr := range rowErrors {
		fmt.Fprintf(os.Stderr, "row %d: %s\n", rowErr.Row, rowErr.Error)
	}
	if len(rowErrors) > 0 && !*skipErrors {
		return fmt.Errorf("%d invalid rows; rerun with -skip-errors to import the rest", len(rowErrors))
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no valid rows to import")
	}

	client, err := database.Open(cfg, log)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() { _ = client.Close() }()

	recordManager := manager.New(client, audit.NewWriter(log), nil, log)

	result, err := recordManager.BulkRegister(context.Background(), inputs, *skipErrors)
	if err != nil {
		return fmt.Errorf("bulk register: %w", err)
	}

	fmt.Printf("Registered %d records\n", result.Registered)
	for _, bulkErr := range result.Errors {
		fmt.Fprintf(os.Stderr, "item %d (external id %d): %s\n", bulkErr.Index, bulkErr.ExternalID, bulkErr.Error)
	}
	return nil
}
