package services

import (
	"context"
	"time"

	"flight-stats/internal/flights"
	"flight-stats/internal/models"
	"flight-stats/internal/repository"
	"flight-stats/pkg/logging"
	"flight-stats/pkg/metrics"
)

// Result is everything a presentation layer needs for one selection.
type Result struct {
	Selection models.FilterSelection  `json:"selection"`
	Summary   models.AggregateSummary `json:"summary"`
	Display   models.KPIDisplay       `json:"display"`

	View *flights.Table `json:"-"`
}

// TableInfo describes the loaded table.
type TableInfo struct {
	Source   string    `json:"source"`
	Rows     int       `json:"rows"`
	Columns  []string  `json:"columns"`
	LoadedAt time.Time `json:"loaded_at"`
}

// QueryService answers filter and summary queries against the table loaded at startup.
// The table is never modified, so a QueryService is safe for concurrent use.
type QueryService struct {
	table   *flights.Table
	options models.FilterOptions
	info    TableInfo
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// LoadQueryService loads the table from src once and builds a QueryService around it.
// A load failure is returned as *models.DataSourceError and leaves nothing running.
func LoadQueryService(ctx context.Context, src repository.FlightSource, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*QueryService, error) {
	start := time.Now()

	logger.Info(ctx, "[LOAD_START] Loading flight table", logging.Fields{
		"source": src.Describe(),
		"kind":   src.Kind(),
	})

	table, err := src.Load(ctx)
	if err != nil {
		metricsCollector.RecordLoadError(src.Kind())
		return nil, err
	}

	duration := time.Since(start)
	metricsCollector.RecordLoad(src.Kind(), table.Len(), duration)

	svc := NewQueryService(src.Describe(), table, logger, metricsCollector)

	logger.Info(ctx, "[LOAD_COMPLETE] Flight table loaded", logging.Fields{
		"source":       src.Describe(),
		"rows":         table.Len(),
		"airlines":     len(svc.options.Airlines),
		"days_of_week": len(svc.options.DaysOfWeek),
		"duration_ms":  duration.Milliseconds(),
	})

	return svc, nil
}

// NewQueryService wraps an already loaded table.
func NewQueryService(source string, table *flights.Table, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *QueryService {
	return &QueryService{
		table:   table,
		options: flights.Options(table),
		info: TableInfo{
			Source:   source,
			Rows:     table.Len(),
			Columns:  table.Columns(),
			LoadedAt: time.Now().UTC(),
		},
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Table returns the loaded table.
func (s *QueryService) Table() *flights.Table {
	return s.table
}

// Info describes the loaded table.
func (s *QueryService) Info() TableInfo {
	info := s.info
	info.Columns = append([]string(nil), s.info.Columns...)
	return info
}

// Options returns the distinct values of each dimension as observed at load time.
func (s *QueryService) Options() models.FilterOptions {
	return models.FilterOptions{
		Airlines:    append([]string{}, s.options.Airlines...),
		DaysOfMonth: append([]int{}, s.options.DaysOfMonth...),
		DaysOfWeek:  append([]string{}, s.options.DaysOfWeek...),
	}
}

// DefaultSelection selects everything. It is derived once at load time and
// never from a filtered view.
func (s *QueryService) DefaultSelection() models.FilterSelection {
	opts := s.Options()
	return models.FilterSelection{
		Airlines:    opts.Airlines,
		DaysOfMonth: opts.DaysOfMonth,
		DaysOfWeek:  opts.DaysOfWeek,
	}
}

// Query filters the table and summarizes the resulting view.
func (s *QueryService) Query(ctx context.Context, sel models.FilterSelection) Result {
	filterTimer := s.metrics.NewTimer(s.metrics.FilterDuration)
	view := flights.Filter(s.table, sel)
	filterDur := filterTimer.ObserveDuration()

	s.metrics.RecordView(view.Len())

	summaryTimer := s.metrics.NewTimer(s.metrics.SummarizeDuration)
	summary := flights.Summarize(view)
	summaryDur := summaryTimer.ObserveDuration()

	s.logger.Debug(ctx, "[QUERY] Selection evaluated", logging.Fields{
		"airlines":      len(sel.Airlines),
		"days_of_month": len(sel.DaysOfMonth),
		"days_of_week":  len(sel.DaysOfWeek),
		"view_rows":     view.Len(),
		"filter_us":     filterDur.Microseconds(),
		"summarize_us":  summaryDur.Microseconds(),
	})

	return Result{
		Selection: sel.Clone(),
		Summary:   summary,
		Display:   flights.Display(summary),
		View:      view,
	}
}
