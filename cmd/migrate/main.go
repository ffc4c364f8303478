package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"flight-stats/internal/config"
	"flight-stats/pkg/database"
	"flight-stats/pkg/logging"
	"flight-stats/pkg/metrics"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	dir := flag.String("dir", "migrations", "Directory containing migration files")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "Unknown direction %q, expected up or down\n", *direction)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("flight-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	ctx := context.Background()

	db, err := database.NewPostgresDB(ctx, cfg.Database.Postgres(), logger, metrics.NewCollector("flight_migrate"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	fmt.Println("Connected to database successfully")

	migrationFile := filepath.Join(*dir, fmt.Sprintf("001_create_schema.%s.sql", *direction))
	content, err := os.ReadFile(migrationFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read migration file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running migration: %s\n", migrationFile)

	if _, err := db.ExecContext(ctx, "migrate_"+*direction, string(content)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")
}
