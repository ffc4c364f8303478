package flights

import (
	"flight-stats/internal/models"
)

type set[T comparable] map[T]struct{}

func newSet[T comparable](values []T) set[T] {
	s := make(set[T], len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s set[T]) has(v T) bool {
	_, ok := s[v]
	return ok
}

// Filter returns the rows whose airline, day of month and day of week are all
// in the selection, in table order. A dimension with no selected values
// yields an empty view.
func Filter(t *Table, sel models.FilterSelection) *Table {
	view := &Table{columns: t.Columns(), rows: []models.FlightRecord{}}
	if t.Len() == 0 || sel.IsEmpty() {
		return view
	}

	airlines := newSet(sel.Airlines)
	doms := newSet(sel.DaysOfMonth)
	dows := newSet(sel.DaysOfWeek)

	for i := range t.rows {
		r := &t.rows[i]
		if airlines.has(r.Airline) && doms.has(r.DayOfMonth) && dows.has(r.DayOfWeek) {
			view.rows = append(view.rows, *r)
		}
	}
	return view
}
