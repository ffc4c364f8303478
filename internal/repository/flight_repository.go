package repository

import (
	"context"
	"fmt"
	"time"

	"flight-stats/internal/flights"
	"flight-stats/internal/models"
	"flight-stats/pkg/database"
	"flight-stats/pkg/logging"
	"flight-stats/pkg/metrics"
)

// FlightRepository stores a copy of the flight sheet in PostgreSQL.
// It is a FlightSource for deployments that do not ship the workbook.
type FlightRepository interface {
	FlightSource

	// ReplaceAll swaps the stored rows for the rows of table in one transaction.
	ReplaceAll(ctx context.Context, table *flights.Table) error

	HealthCheck(ctx context.Context) error
}

// flightRepository implements FlightRepository
type flightRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	maxRows int
}

// NewFlightRepository creates a new flight repository
func NewFlightRepository(db *database.PostgresDB, maxRows int, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) FlightRepository {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &flightRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
		maxRows: maxRows,
	}
}

func (r *flightRepository) Kind() string { return "postgres" }

func (r *flightRepository) Describe() string { return "postgres:flight_records" }

// storedColumns is the header a table loaded from Postgres reports.
func storedColumns() []string {
	cols := make([]string, len(flights.RequiredColumns))
	for i, c := range flights.RequiredColumns {
		cols[i] = string(c)
	}
	return cols
}

// Load reads the stored rows in their original sheet order.
func (r *flightRepository) Load(ctx context.Context) (*flights.Table, error) {
	query := `
		SELECT airline, day_of_month, day_of_week, arrival_delay, distance, elapsed_time
		FROM flight_records
		ORDER BY row_number
		LIMIT $1
	`

	var records []models.FlightRecord
	if err := r.db.SelectContext(ctx, "load_flights", &records, query, r.maxRows); err != nil {
		return nil, &models.DataSourceError{Source: r.Describe(), Reason: "query failed", Err: err}
	}

	if len(records) == 0 {
		return nil, &models.DataSourceError{Source: r.Describe(), Reason: "table is empty"}
	}

	return flights.NewTable(storedColumns(), records), nil
}

// ReplaceAll deletes the stored rows and inserts table's rows numbered from 1.
func (r *flightRepository) ReplaceAll(ctx context.Context, table *flights.Table) error {
	timer := time.Now()
	defer func() {
		r.logger.Debug(ctx, "[REPO_REPLACE] Flight rows replaced", logging.Fields{
			"count":       table.Len(),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM flight_records`); err != nil {
		return fmt.Errorf("failed to clear flight_records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO flight_records (
			row_number, airline, day_of_month, day_of_week,
			arrival_delay, distance, elapsed_time
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, rec := range table.Rows() {
		_, err := stmt.ExecContext(ctx,
			i+1,
			rec.Airline,
			rec.DayOfMonth,
			rec.DayOfWeek,
			rec.ArrivalDelay,
			rec.Distance,
			rec.ElapsedTime,
		)
		if err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.Add(float64(table.Len()))

	return nil
}

// HealthCheck checks database connectivity
func (r *flightRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
