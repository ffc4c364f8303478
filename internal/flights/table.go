// Package flights holds the in-memory flight table and the pure
// filter and aggregate operations evaluated against it.
package flights

import (
	"strings"

	"flight-stats/internal/models"
)

// Column is a normalized column name of the source sheet.
type Column string

const (
	ColumnAirline      Column = "Airline"
	ColumnDayOfMonth   Column = "Day_of_Month"
	ColumnDayOfWeek    Column = "Day_of_Week"
	ColumnArrivalDelay Column = "Arrival_Delay"
	ColumnDistance     Column = "Distance"
	ColumnElapsedTime  Column = "Elapsed_Time"
)

// RequiredColumns are the columns the pipeline reads. Any others are carried but ignored.
var RequiredColumns = []Column{
	ColumnAirline,
	ColumnDayOfMonth,
	ColumnDayOfWeek,
	ColumnArrivalDelay,
	ColumnDistance,
	ColumnElapsedTime,
}

// NormalizeColumn replaces every space in a header with an underscore,
// so "Day of Month" becomes "Day_of_Month".
func NormalizeColumn(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// Table is an ordered, read-only set of flight records.
// Nothing mutates a Table after NewTable returns, so it may be shared across goroutines.
type Table struct {
	columns []string
	rows    []models.FlightRecord
}

// NewTable normalizes the column names and takes a deep copy of rows.
func NewTable(columns []string, rows []models.FlightRecord) *Table {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = NormalizeColumn(c)
	}

	copied := make([]models.FlightRecord, len(rows))
	for i := range rows {
		copied[i] = cloneRecord(rows[i])
	}

	return &Table{columns: cols, rows: copied}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Columns returns the normalized column names in source order.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.columns...)
}

// Row returns a copy of row i.
func (t *Table) Row(i int) models.FlightRecord {
	return cloneRecord(t.rows[i])
}

// Rows returns a copy of every row in order.
func (t *Table) Rows() []models.FlightRecord {
	if t == nil {
		return []models.FlightRecord{}
	}
	out := make([]models.FlightRecord, len(t.rows))
	for i := range t.rows {
		out[i] = cloneRecord(t.rows[i])
	}
	return out
}

// Slice returns a copy of rows [offset, offset+limit), clamped to the table.
func (t *Table) Slice(offset, limit int) []models.FlightRecord {
	n := t.Len()
	if offset < 0 {
		offset = 0
	}
	if offset >= n || limit <= 0 {
		return []models.FlightRecord{}
	}
	end := offset + limit
	if end > n {
		end = n
	}
	out := make([]models.FlightRecord, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, cloneRecord(t.rows[i]))
	}
	return out
}

func cloneRecord(r models.FlightRecord) models.FlightRecord {
	r.ArrivalDelay = cloneFloat(r.ArrivalDelay)
	r.Distance = cloneFloat(r.Distance)
	r.ElapsedTime = cloneFloat(r.ElapsedTime)
	return r
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// DistinctValues returns the distinct values picked from each row, in first-seen order.
func DistinctValues[T comparable](t *Table, pick func(models.FlightRecord) T) []T {
	out := []T{}
	if t == nil {
		return out
	}
	seen := make(map[T]struct{})
	for i := range t.rows {
		v := pick(t.rows[i])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Airlines returns the distinct airline names.
func (t *Table) Airlines() []string {
	return DistinctValues(t, func(r models.FlightRecord) string { return r.Airline })
}

// DaysOfMonth returns the distinct days of the month.
func (t *Table) DaysOfMonth() []int {
	return DistinctValues(t, func(r models.FlightRecord) int { return r.DayOfMonth })
}

// DaysOfWeek returns the distinct days of the week.
func (t *Table) DaysOfWeek() []string {
	return DistinctValues(t, func(r models.FlightRecord) string { return r.DayOfWeek })
}

// Options lists the distinct values of every filter dimension.
func Options(t *Table) models.FilterOptions {
	return models.FilterOptions{
		Airlines:    t.Airlines(),
		DaysOfMonth: t.DaysOfMonth(),
		DaysOfWeek:  t.DaysOfWeek(),
	}
}

// DefaultSelection selects every distinct value of every dimension.
// Filtering with it returns the whole table.
func DefaultSelection(t *Table) models.FilterSelection {
	opts := Options(t)
	return models.FilterSelection{
		Airlines:    opts.Airlines,
		DaysOfMonth: opts.DaysOfMonth,
		DaysOfWeek:  opts.DaysOfWeek,
	}
}
