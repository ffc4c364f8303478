package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight-stats/internal/flights"
	"flight-stats/internal/models"
	"flight-stats/pkg/database"
	"flight-stats/pkg/metrics"
)

func newMockRepo(t *testing.T) (FlightRepository, sqlmock.Sqlmock, *metrics.Collector) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	m := metrics.NewCollectorWithRegistry("flights_test", prometheus.NewRegistry())
	db := database.Wrap(sqlx.NewDb(conn, "postgres"), &database.Config{Database: "flights"}, quietLogger(), m)
	return NewFlightRepository(db, 0, quietLogger(), m), mock, m
}

func fp(v float64) *float64 { return &v }

func TestFlightRepository_Load(t *testing.T) {
	repo, mock, _ := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"airline", "day_of_month", "day_of_week", "arrival_delay", "distance", "elapsed_time"}).
		AddRow("AA", 1, "Monday", 10.0, 1200.0, 150.0).
		AddRow("DL", 2, "Tuesday", nil, 800.0, 95.0)
	mock.ExpectQuery("SELECT airline, day_of_month").WithArgs(DefaultMaxRows).WillReturnRows(rows)

	table, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())

	assert.Equal(t, []string{"Airline", "Day_of_Month", "Day_of_Week", "Arrival_Delay", "Distance", "Elapsed_Time"}, table.Columns())
	assert.Equal(t, models.FlightRecord{
		Airline: "AA", DayOfMonth: 1, DayOfWeek: "Monday",
		ArrivalDelay: fp(10), Distance: fp(1200), ElapsedTime: fp(150),
	}, table.Row(0))
	assert.Nil(t, table.Row(1).ArrivalDelay)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlightRepository_LoadErrors(t *testing.T) {
	t.Run("query failure", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		mock.ExpectQuery("SELECT airline").WillReturnError(errors.New("relation \"flight_records\" does not exist"))

		_, err := repo.Load(context.Background())
		requireDataSourceError(t, err, "query failed")
	})

	t.Run("empty table", func(t *testing.T) {
		repo, mock, _ := newMockRepo(t)
		mock.ExpectQuery("SELECT airline").WillReturnRows(
			sqlmock.NewRows([]string{"airline", "day_of_month", "day_of_week", "arrival_delay", "distance", "elapsed_time"}))

		_, err := repo.Load(context.Background())
		requireDataSourceError(t, err, "table is empty")
	})
}

func TestFlightRepository_ReplaceAll(t *testing.T) {
	repo, mock, m := newMockRepo(t)

	table := flights.NewTable([]string{"Airline", "Day of Month", "Day of Week", "Arrival Delay", "Distance", "Elapsed Time"}, []models.FlightRecord{
		{Airline: "AA", DayOfMonth: 1, DayOfWeek: "Monday", ArrivalDelay: fp(10), Distance: fp(100), ElapsedTime: fp(60)},
		{Airline: "DL", DayOfMonth: 2, DayOfWeek: "Tuesday", Distance: fp(200), ElapsedTime: fp(90)},
	})

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM flight_records").WillReturnResult(sqlmock.NewResult(0, 5))
	prep := mock.ExpectPrepare("INSERT INTO flight_records")
	prep.ExpectExec().WithArgs(1, "AA", 1, "Monday", 10.0, 100.0, 60.0).WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs(2, "DL", 2, "Tuesday", nil, 200.0, 90.0).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceAll(context.Background(), table))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IngestionRecordsTotal))
}

func TestFlightRepository_ReplaceAllRollsBack(t *testing.T) {
	repo, mock, m := newMockRepo(t)

	table := flights.NewTable([]string{"Airline"}, []models.FlightRecord{
		{Airline: "AA", DayOfMonth: 1, DayOfWeek: "Monday"},
	})

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM flight_records").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("INSERT INTO flight_records").ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.ReplaceAll(context.Background(), table)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert row 1")
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 0.0, testutil.ToFloat64(m.IngestionRecordsTotal))
}
