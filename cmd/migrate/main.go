// Command migrate applies or reverts the SQL migrations in migrations/.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/jonesrussell/gomonitor/internal/config"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

const migrationsPath = "file://migrations"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yml", "Path to configuration file")
	flag.Parse()

	direction := flag.Arg(0)
	if direction != "up" && direction != "down" {
		fmt.Fprintln(os.Stderr, "Usage: migrate [-config path] <up|down>")
		return exitFailure
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return exitFailure
	}

	m, err := migrate.New(migrationsPath, buildMigrateURL(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create migrate instance: %v\n", err)
		return exitFailure
	}
	defer func() { _, _ = m.Close() }()

	if err := runMigration(m, direction); err != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", direction, err)
		return exitFailure
	}

	fmt.Printf("Migration %s completed successfully\n", direction)
	return exitSuccess
}

func buildMigrateURL(cfg *config.Config) string {
	db := &cfg.Database
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.User, db.Password, db.Host, db.Port, db.DBName, db.SSLMode,
	)
}

func runMigration(m *migrate.Migrate, direction string) error {
	var err error

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No migrations to apply")
		return nil
	}

	return err
}
