package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"flight-stats/internal/config"
	"flight-stats/internal/flights"
	"flight-stats/internal/repository"
	"flight-stats/internal/services"
	"flight-stats/pkg/database"
	"flight-stats/pkg/logging"
	"flight-stats/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	path := flag.String("file", cfg.Source.Path, "Workbook containing the flight sheet")
	sheet := flag.String("sheet", cfg.Source.Sheet, "Name of the flight sheet")
	maxRows := flag.Int("max-rows", cfg.Source.MaxRows, "Maximum number of data rows to read")
	verify := flag.Bool("verify", false, "Reload the stored rows and compare them with the workbook")
	flag.Parse()

	logger := logging.NewStructuredLogger("flight-ingester", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting flight ingestion", logging.Fields{
		"version":  "1.0.0",
		"file":     *path,
		"sheet":    *sheet,
		"max_rows": *maxRows,
	})

	metricsCollector := metrics.NewCollector("flight_ingester")

	db, err := database.NewPostgresDB(ctx, cfg.Database.Postgres(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	source := repository.NewSpreadsheetSource(*path, *sheet, *maxRows, logger)
	repo := repository.NewFlightRepository(db, *maxRows, logger, metricsCollector)
	ingestionService := services.NewIngestionService(source, repo, logger, metricsCollector)

	result, err := ingestionService.Ingest(ctx)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"error": err.Error(),
		}, err)
	}

	display := flights.Display(flights.Summarize(result.Table))

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Source:              %s\n", result.Source)
	fmt.Printf("Rows:                %s\n", humanize.Comma(int64(result.Rows)))
	fmt.Printf("Airlines:            %d\n", result.Airlines)
	fmt.Printf("Columns:             %s\n", strings.Join(result.Columns, ", "))
	fmt.Printf("Duration:            %v\n", result.Duration)
	fmt.Printf("Average Delay:       %s\n", display.AverageDelay)
	fmt.Printf("Distance Flown:      %s\n", display.DistanceFlown)
	fmt.Printf("Average Flight Time: %s\n", display.AverageFlightTime)

	if *verify {
		if err := ingestionService.Verify(ctx, result.Table); err != nil {
			logger.Fatal(ctx, "[VERIFY_ERROR] Stored rows do not match the workbook", logging.Fields{}, err)
		}
		fmt.Println("Verification:        stored rows match the workbook")
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed successfully", logging.Fields{
		"rows":             result.Rows,
		"airlines":         result.Airlines,
		"duration_seconds": result.Duration.Seconds(),
	})
}
