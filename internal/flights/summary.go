package flights

import (
	"fmt"
	"math"
	"sort"

	"github.com/dustin/go-humanize"

	"flight-stats/internal/models"
)

// NotAvailable is shown in place of an average that has no values behind it.
const NotAvailable = "N/A"

// round1 rounds half away from zero to one decimal place.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

type mean struct {
	sum   float64
	count int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.count++
}

// rounded returns nil when nothing was added.
func (m mean) rounded() *float64 {
	if m.count == 0 {
		return nil
	}
	v := round1(m.sum / float64(m.count))
	return &v
}

// Summarize computes the KPI figures and the per-airline groupings of a view.
//
// NULL measures are skipped. An empty view gives nil averages, a zero total
// distance and empty (non-nil) groupings.
func Summarize(view *Table) models.AggregateSummary {
	summary := models.AggregateSummary{
		FlightCount:         view.Len(),
		FlightsByAirline:    []models.AirlineCount{},
		FlightTimeByAirline: []models.AirlineTime{},
	}
	if view.Len() == 0 {
		return summary
	}

	var delay, elapsed mean
	var distance float64

	countIdx := make(map[string]int)
	timeByAirline := make(map[string]float64)

	for i := range view.rows {
		r := &view.rows[i]
		delay.add(r.ArrivalDelay)
		elapsed.add(r.ElapsedTime)
		if r.Distance != nil {
			distance += *r.Distance
		}

		if idx, ok := countIdx[r.Airline]; ok {
			summary.FlightsByAirline[idx].Flights++
		} else {
			countIdx[r.Airline] = len(summary.FlightsByAirline)
			summary.FlightsByAirline = append(summary.FlightsByAirline, models.AirlineCount{Airline: r.Airline, Flights: 1})
		}

		t := timeByAirline[r.Airline]
		if r.ElapsedTime != nil {
			t += *r.ElapsedTime
		}
		timeByAirline[r.Airline] = t
	}

	summary.AverageDelay = delay.rounded()
	summary.AverageFlightTime = elapsed.rounded()
	summary.TotalDistance = int64(distance)

	for airline, total := range timeByAirline {
		summary.FlightTimeByAirline = append(summary.FlightTimeByAirline, models.AirlineTime{
			Airline:     airline,
			ElapsedTime: total,
		})
	}
	sort.Slice(summary.FlightTimeByAirline, func(i, j int) bool {
		a, b := summary.FlightTimeByAirline[i], summary.FlightTimeByAirline[j]
		if a.ElapsedTime != b.ElapsedTime {
			return a.ElapsedTime < b.ElapsedTime
		}
		return a.Airline < b.Airline
	})

	return summary
}

// Display renders the headline figures the way the dashboard shows them,
// e.g. "15.0 minutes" and "2,464 kilometers".
func Display(s models.AggregateSummary) models.KPIDisplay {
	return models.KPIDisplay{
		AverageDelay:      minutes(s.AverageDelay),
		DistanceFlown:     humanize.Comma(s.TotalDistance) + " kilometers",
		AverageFlightTime: minutes(s.AverageFlightTime),
	}
}

func minutes(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f minutes", *v)
}
