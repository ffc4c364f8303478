package models

import (
	"fmt"
)

// FlightRecord is one row of the flight table.
// Measures are pointers so that blank cells stay NULL and drop out of means and sums.
type FlightRecord struct {
	Airline      string   `json:"airline" db:"airline"`
	DayOfMonth   int      `json:"day_of_month" db:"day_of_month"`
	DayOfWeek    string   `json:"day_of_week" db:"day_of_week"`
	ArrivalDelay *float64 `json:"arrival_delay" db:"arrival_delay"`
	Distance     *float64 `json:"distance" db:"distance"`
	ElapsedTime  *float64 `json:"elapsed_time" db:"elapsed_time"`
}

// FilterSelection holds the chosen values for each filter dimension.
// An empty dimension matches no rows.
type FilterSelection struct {
	Airlines    []string `json:"airlines"`
	DaysOfMonth []int    `json:"days_of_month"`
	DaysOfWeek  []string `json:"days_of_week"`
}

// IsEmpty reports whether any dimension has no selected values.
func (s FilterSelection) IsEmpty() bool {
	return len(s.Airlines) == 0 || len(s.DaysOfMonth) == 0 || len(s.DaysOfWeek) == 0
}

// Clone returns a deep copy of the selection.
func (s FilterSelection) Clone() FilterSelection {
	return FilterSelection{
		Airlines:    append([]string{}, s.Airlines...),
		DaysOfMonth: append([]int{}, s.DaysOfMonth...),
		DaysOfWeek:  append([]string{}, s.DaysOfWeek...),
	}
}

// AirlineCount is one bar of the flights-by-airline chart.
type AirlineCount struct {
	Airline string `json:"airline"`
	Flights int    `json:"flights"`
}

// AirlineTime is one bar of the flight-time-by-airline chart.
type AirlineTime struct {
	Airline     string  `json:"airline"`
	ElapsedTime float64 `json:"elapsed_time"`
}

// AggregateSummary is derived from a filtered view.
// AverageDelay and AverageFlightTime are nil when the view has no values to average.
type AggregateSummary struct {
	FlightCount         int            `json:"flight_count"`
	AverageDelay        *float64       `json:"average_delay"`
	TotalDistance       int64          `json:"total_distance"`
	AverageFlightTime   *float64       `json:"average_flight_time"`
	FlightsByAirline    []AirlineCount `json:"flights_by_airline"`
	FlightTimeByAirline []AirlineTime  `json:"flight_time_by_airline"`
}

// KPIDisplay holds the three headline figures rendered for people.
type KPIDisplay struct {
	AverageDelay      string `json:"average_delay"`
	DistanceFlown     string `json:"distance_flown"`
	AverageFlightTime string `json:"average_flight_time"`
}

// FilterOptions lists the distinct values of each filter dimension.
type FilterOptions struct {
	Airlines    []string `json:"airlines"`
	DaysOfMonth []int    `json:"days_of_month"`
	DaysOfWeek  []string `json:"days_of_week"`
}

// DataSourceError is returned when the flight table cannot be loaded:
// the source is missing, unreadable, or not shaped as expected.
type DataSourceError struct {
	Source string
	Reason string
	Err    error
}

func (e *DataSourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data source %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("data source %s: %s", e.Source, e.Reason)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}

// IsTransient returns false as a broken data source does not heal on retry
func (e *DataSourceError) IsTransient() bool {
	return false
}

// ValidationError reports a caller-supplied value that cannot be interpreted
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}
