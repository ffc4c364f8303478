package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"flight-stats/internal/models"
	"flight-stats/internal/services"
	"flight-stats/pkg/logging"
	"flight-stats/pkg/metrics"
)

// Query parameter names of the three filter dimensions. Each may repeat.
const (
	ParamAirline    = "airline"
	ParamDayOfMonth = "day_of_month"
	ParamDayOfWeek  = "day_of_week"
)

// FlightHandler handles flight API endpoints
type FlightHandler struct {
	query    *services.QueryService
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
	upgrader websocket.Upgrader
	live     liveTimeouts
}

// NewFlightHandler creates a new flight handler
func NewFlightHandler(
	query *services.QueryService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *FlightHandler {
	return &FlightHandler{
		query:   query,
		logger:  logger,
		metrics: metricsCollector,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		live: newLiveTimeouts(defaultPongWait),
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// FiltersResponse lists the selectable values and describes the loaded table
type FiltersResponse struct {
	Options models.FilterOptions `json:"options"`
	Table   services.TableInfo   `json:"table"`
}

// FlightsResponse is a page of the filtered view
type FlightsResponse struct {
	PaginatedResponse
	Selection models.FilterSelection `json:"selection"`
}

// parseSelection reads the three dimensions from the query string. An absent
// parameter selects every value. A parameter present with only blank values
// selects nothing.
func parseSelection(r *http.Request, defaults models.FilterSelection) (models.FilterSelection, error) {
	q := r.URL.Query()
	sel := defaults

	if vals, ok := q[ParamAirline]; ok {
		sel.Airlines = nonBlank(vals)
	}
	if vals, ok := q[ParamDayOfWeek]; ok {
		sel.DaysOfWeek = nonBlank(vals)
	}
	if vals, ok := q[ParamDayOfMonth]; ok {
		days := []int{}
		for _, v := range nonBlank(vals) {
			d, err := strconv.Atoi(v)
			if err != nil {
				return sel, &models.ValidationError{
					Field:   ParamDayOfMonth,
					Value:   v,
					Message: "invalid day_of_month, expected integer",
				}
			}
			days = append(days, d)
		}
		sel.DaysOfMonth = days
	}

	return sel, nil
}

func nonBlank(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func parsePagination(r *http.Request) (page, limit int) {
	page, limit = 1, 100

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}
	return page, limit
}

func (h *FlightHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// GetFilters handles GET /api/filters
func (h *FlightHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/filters", time.Now())

	h.metrics.RecordAPIRequest("/api/filters", "GET", "200")
	h.sendJSON(w, r, FiltersResponse{
		Options: h.query.Options(),
		Table:   h.query.Info(),
	}, http.StatusOK)
}

// GetFlights handles GET /api/flights
func (h *FlightHandler) GetFlights(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/flights", time.Now())

	sel, err := parseSelection(r, h.query.DefaultSelection())
	if err != nil {
		h.metrics.RecordAPIError("validation_error", "/api/flights")
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	page, limit := parsePagination(r)

	result := h.query.Query(ctx, sel)
	total := result.View.Len()
	totalPages := (total + limit - 1) / limit

	// Pages past the end are empty. Checking first keeps (page-1)*limit from overflowing.
	data := []models.FlightRecord{}
	if page <= totalPages {
		data = result.View.Slice((page-1)*limit, limit)
	}

	h.metrics.RecordAPIRequest("/api/flights", "GET", "200")
	h.sendJSON(w, r, FlightsResponse{
		PaginatedResponse: PaginatedResponse{
			Data:       data,
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
		},
		Selection: result.Selection,
	}, http.StatusOK)
}

// GetSummary handles GET /api/summary
func (h *FlightHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/summary", time.Now())

	sel, err := parseSelection(r, h.query.DefaultSelection())
	if err != nil {
		h.metrics.RecordAPIError("validation_error", "/api/summary")
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}

	h.metrics.RecordAPIRequest("/api/summary", "GET", "200")
	h.sendJSON(w, r, h.query.Query(ctx, sel), http.StatusOK)
}

// HealthCheck handles GET /health
func (h *FlightHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]interface{}{
		"status":    "healthy",
		"rows":      h.query.Table().Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, r, status, http.StatusOK)
}

// sendJSON sends a JSON response. The body is encoded before the status is
// written, so a value that cannot be encoded becomes a 500.
func (h *FlightHandler) sendJSON(w http.ResponseWriter, r *http.Request, data interface{}, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Error(r.Context(), "[ENCODE_ERROR] Failed to encode response", logging.Fields{
			"path":   r.URL.Path,
			"status": statusCode,
		}, err)
		h.metrics.RecordAPIError("encode_error", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal Server Error","message":"failed to encode response","code":500}` + "\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(append(body, '\n'))
}

// sendError sends an error response
func (h *FlightHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, r, response, statusCode)
}

// RegisterRoutes registers all flight API routes
func (h *FlightHandler) RegisterRoutes(router *mux.Router) {
	router.Use(h.withRequestID)

	router.HandleFunc("/api/filters", h.GetFilters).Methods("GET")
	router.HandleFunc("/api/flights", h.GetFlights).Methods("GET")
	router.HandleFunc("/api/summary", h.GetSummary).Methods("GET")
	router.HandleFunc("/api/live", h.Live).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
