package repository

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"flight-stats/internal/flights"
	"flight-stats/internal/models"
)

const (
	// DefaultSheetName is the worksheet the flight table is read from.
	DefaultSheetName = "Airline Time Delays"

	// DefaultMaxRows caps the number of data rows read from any source.
	DefaultMaxRows = 2464
)

// FlightSource loads the flight table. Load returns *models.DataSourceError
// for every failure.
type FlightSource interface {
	// Kind is a short label for metrics, e.g. "spreadsheet".
	Kind() string
	// Describe names the concrete source for logs and errors.
	Describe() string
	Load(ctx context.Context) (*flights.Table, error)
}

// headerIndex maps each required column to its position in a normalized header.
func headerIndex(header []string) (map[flights.Column]int, []string, error) {
	normalized := make([]string, len(header))
	idx := make(map[flights.Column]int, len(flights.RequiredColumns))
	for i, h := range header {
		n := flights.NormalizeColumn(h)
		normalized[i] = n
		if _, dup := idx[flights.Column(n)]; !dup {
			idx[flights.Column(n)] = i
		}
	}

	var missing []string
	for _, c := range flights.RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, string(c))
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, normalized, nil
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return strings.TrimSpace(cells[i])
	}
	return ""
}

// parseRow converts one sheet row. line is the 1-based sheet row for error messages.
func parseRow(cells []string, idx map[flights.Column]int, line int) (models.FlightRecord, error) {
	var rec models.FlightRecord

	rec.Airline = cell(cells, idx[flights.ColumnAirline])
	rec.DayOfWeek = cell(cells, idx[flights.ColumnDayOfWeek])

	dom, err := parseDay(cell(cells, idx[flights.ColumnDayOfMonth]))
	if err != nil {
		return rec, fmt.Errorf("row %d column %s: %w", line, flights.ColumnDayOfMonth, err)
	}
	rec.DayOfMonth = dom

	measures := []struct {
		col flights.Column
		dst **float64
	}{
		{flights.ColumnArrivalDelay, &rec.ArrivalDelay},
		{flights.ColumnDistance, &rec.Distance},
		{flights.ColumnElapsedTime, &rec.ElapsedTime},
	}
	for _, m := range measures {
		v, err := parseMeasure(cell(cells, idx[m.col]))
		if err != nil {
			return rec, fmt.Errorf("row %d column %s: %w", line, m.col, err)
		}
		*m.dst = v
	}

	return rec, nil
}

// parseDay accepts integral values, including spreadsheet renderings such as "7.0".
func parseDay(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	v, err := parseFinite(s)
	if err != nil {
		return 0, err
	}
	if v != float64(int(v)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(v), nil
}

// parseMeasure returns nil for a blank cell.
func parseMeasure(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := parseFinite(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// parseFinite rejects NaN and the infinities, which ParseFloat accepts as text.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}
