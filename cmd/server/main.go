package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flight-stats/internal/config"
	"flight-stats/internal/handlers"
	"flight-stats/internal/models"
	"flight-stats/internal/repository"
	"flight-stats/internal/services"
	"flight-stats/pkg/database"
	"flight-stats/pkg/logging"
	"flight-stats/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("flight-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting flight statistics API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"source":      cfg.Source.Kind,
	})

	metricsCollector := metrics.NewCollector("flight_stats")

	var source repository.FlightSource
	switch cfg.Source.Kind {
	case config.SourcePostgres:
		db, err := database.NewPostgresDB(ctx, cfg.Database.Postgres(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{
				"db_host": cfg.Database.Host,
				"db_name": cfg.Database.Database,
			}, err)
		}
		defer db.Close()
		source = repository.NewFlightRepository(db, cfg.Source.MaxRows, logger, metricsCollector)
	default:
		source = repository.NewSpreadsheetSource(cfg.Source.Path, cfg.Source.Sheet, cfg.Source.MaxRows, logger)
	}

	// The table is loaded once; nothing is served if it cannot be read.
	queryService, err := services.LoadQueryService(ctx, source, logger, metricsCollector)
	if err != nil {
		fields := logging.Fields{"source": source.Describe()}
		var dsErr *models.DataSourceError
		if errors.As(err, &dsErr) {
			fields["reason"] = dsErr.Reason
		}
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load flight table", fields, err)
	}

	flightHandler := handlers.NewFlightHandler(queryService, logger, metricsCollector)

	router := mux.NewRouter()
	flightHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
			"rows":    queryService.Table().Len(),
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
