package services

import (
	"context"
	"fmt"
	"time"

	"flight-stats/internal/flights"
	"flight-stats/internal/repository"
	"flight-stats/pkg/logging"
	"flight-stats/pkg/metrics"
)

// IngestionService copies the flight sheet into PostgreSQL
type IngestionService struct {
	source  repository.FlightSource
	repo    repository.FlightRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	Source   string
	Rows     int
	Airlines int
	Columns  []string
	Duration time.Duration

	Table *flights.Table
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(source repository.FlightSource, repo repository.FlightRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		source:  source,
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Ingest loads the source table and replaces the stored rows with it.
// Nothing is written unless the whole source loads.
func (s *IngestionService) Ingest(ctx context.Context) (*IngestionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting flight ingestion", logging.Fields{
		"source": s.source.Describe(),
		"stage":  "INITIALIZATION",
	})

	table, err := s.source.Load(ctx)
	if err != nil {
		s.metrics.RecordLoadError(s.source.Kind())
		return nil, fmt.Errorf("failed to load source: %w", err)
	}

	s.logger.Info(ctx, "[INGEST_LOADED] Source table loaded", logging.Fields{
		"rows":  table.Len(),
		"stage": "LOAD",
	})

	if err := s.repo.ReplaceAll(ctx, table); err != nil {
		return nil, fmt.Errorf("failed to store flights: %w", err)
	}

	result := &IngestionResult{
		Source:   s.source.Describe(),
		Rows:     table.Len(),
		Airlines: len(table.Airlines()),
		Columns:  table.Columns(),
		Duration: time.Since(startTime),
		Table:    table,
	}
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Flight ingestion completed", logging.Fields{
		"rows":             result.Rows,
		"airlines":         result.Airlines,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

// Verify reloads the stored rows and checks they match table row for row.
func (s *IngestionService) Verify(ctx context.Context, table *flights.Table) error {
	stored, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if stored.Len() != table.Len() {
		return fmt.Errorf("stored %d rows, source has %d", stored.Len(), table.Len())
	}
	want, got := table.Rows(), stored.Rows()
	for i := range want {
		if want[i].Airline != got[i].Airline || want[i].DayOfMonth != got[i].DayOfMonth || want[i].DayOfWeek != got[i].DayOfWeek {
			return fmt.Errorf("row %d differs after ingestion", i+1)
		}
	}
	return nil
}
