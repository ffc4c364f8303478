package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight-stats/internal/flights"
	"flight-stats/internal/models"
	"flight-stats/internal/services"
	"flight-stats/pkg/logging"
	"flight-stats/pkg/metrics"
)

func f(v float64) *float64 { return &v }

type fixture struct {
	router  *mux.Router
	handler *FlightHandler
	metrics *metrics.Collector
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	table := flights.NewTable(
		[]string{"Airline", "Day of Month", "Day of Week", "Arrival Delay", "Distance", "Elapsed Time"},
		[]models.FlightRecord{
			{Airline: "X", DayOfMonth: 1, DayOfWeek: "Mon", ArrivalDelay: f(10), Distance: f(100), ElapsedTime: f(60)},
			{Airline: "Y", DayOfMonth: 1, DayOfWeek: "Mon", ArrivalDelay: f(20), Distance: f(200), ElapsedTime: f(90)},
			{Airline: "X", DayOfMonth: 2, DayOfWeek: "Tue", ArrivalDelay: f(-4), Distance: f(300), ElapsedTime: f(45)},
		},
	)

	logs := &bytes.Buffer{}
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.ErrorLevel)
	logger.SetOutput(logs)
	collector := metrics.NewCollectorWithRegistry("test", prometheus.NewRegistry())

	svc := services.NewQueryService("fixture", table, logger, collector)
	handler := NewFlightHandler(svc, logger, collector)
	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	return &fixture{router: router, handler: handler, metrics: collector, logs: logs}
}

func (fx *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestParseSelection(t *testing.T) {
	defaults := models.FilterSelection{
		Airlines:    []string{"X", "Y"},
		DaysOfMonth: []int{1, 2},
		DaysOfWeek:  []string{"Mon", "Tue"},
	}

	tests := []struct {
		name    string
		query   string
		want    models.FilterSelection
		wantErr bool
	}{
		{
			name:  "absent parameters select everything",
			query: "",
			want:  defaults,
		},
		{
			name:  "repeated parameters",
			query: "airline=X&airline=Y&day_of_month=2",
			want: models.FilterSelection{
				Airlines:    []string{"X", "Y"},
				DaysOfMonth: []int{2},
				DaysOfWeek:  []string{"Mon", "Tue"},
			},
		},
		{
			name:  "blank parameter selects nothing",
			query: "day_of_week=",
			want: models.FilterSelection{
				Airlines:    []string{"X", "Y"},
				DaysOfMonth: []int{1, 2},
				DaysOfWeek:  []string{},
			},
		},
		{
			name:  "blank day of month selects nothing",
			query: "day_of_month=&airline=X",
			want: models.FilterSelection{
				Airlines:    []string{"X"},
				DaysOfMonth: []int{},
				DaysOfWeek:  []string{"Mon", "Tue"},
			},
		},
		{
			name:    "non-numeric day of month",
			query:   "day_of_month=first",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/summary?"+tt.query, nil)
			got, err := parseSelection(r, defaults)
			if tt.wantErr {
				var vErr *models.ValidationError
				assert.ErrorAs(t, err, &vErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query     string
		wantPage  int
		wantLimit int
	}{
		{"", 1, 100},
		{"page=3&limit=20", 3, 20},
		{"page=0&limit=5000", 1, 100},
		{"page=abc&limit=-1", 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			page, limit := parsePagination(httptest.NewRequest(http.MethodGet, "/api/flights?"+tt.query, nil))
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestGetFilters(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get(t, "/api/filters")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[FiltersResponse](t, rec)
	assert.Equal(t, []string{"X", "Y"}, resp.Options.Airlines)
	assert.Equal(t, []int{1, 2}, resp.Options.DaysOfMonth)
	assert.Equal(t, []string{"Mon", "Tue"}, resp.Options.DaysOfWeek)
	assert.Equal(t, "fixture", resp.Table.Source)
	assert.Equal(t, 3, resp.Table.Rows)
	assert.Contains(t, resp.Table.Columns, "Day_of_Month")
}

func TestGetSummary_FullSelection(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get(t, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	res := decode[services.Result](t, rec)
	assert.Equal(t, 3, res.Summary.FlightCount)
	require.NotNil(t, res.Summary.AverageDelay)
	assert.InDelta(t, 8.7, *res.Summary.AverageDelay, 1e-9)
	assert.Equal(t, int64(600), res.Summary.TotalDistance)
	require.NotNil(t, res.Summary.AverageFlightTime)
	assert.InDelta(t, 65.0, *res.Summary.AverageFlightTime, 1e-9)
	assert.Equal(t, []models.AirlineCount{{Airline: "X", Flights: 2}, {Airline: "Y", Flights: 1}}, res.Summary.FlightsByAirline)
	assert.Equal(t, []models.AirlineTime{{Airline: "Y", ElapsedTime: 90}, {Airline: "X", ElapsedTime: 105}}, res.Summary.FlightTimeByAirline)
	assert.Equal(t, "8.7 minutes", res.Display.AverageDelay)
	assert.Equal(t, "600 kilometers", res.Display.DistanceFlown)
}

func TestGetSummary_FilteredByAirline(t *testing.T) {
	fx := newFixture(t)

	res := decode[services.Result](t, fx.get(t, "/api/summary?airline=X"))
	assert.Equal(t, 2, res.Summary.FlightCount)
	require.NotNil(t, res.Summary.AverageDelay)
	assert.InDelta(t, 3.0, *res.Summary.AverageDelay, 1e-9)
	assert.Equal(t, []string{"X"}, res.Selection.Airlines)
}

func TestGetSummary_EmptySelection(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get(t, "/api/summary?airline=")
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Nil(t, raw["summary"]["average_delay"])
	assert.Nil(t, raw["summary"]["average_flight_time"])
	assert.Equal(t, float64(0), raw["summary"]["total_distance"])
	assert.Equal(t, []interface{}{}, raw["summary"]["flights_by_airline"])
	assert.Equal(t, "N/A", raw["display"]["average_delay"])
	assert.Equal(t, "0 kilometers", raw["display"]["distance_flown"])

	assert.Equal(t, float64(1), testutil.ToFloat64(fx.metrics.EmptyViewsTotal))
}

func TestGetSummary_InvalidDay(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get(t, "/api/summary?day_of_month=tenth")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Message, "day_of_month")
	assert.Equal(t, float64(1), testutil.ToFloat64(fx.metrics.APIErrorsTotal.WithLabelValues("validation_error", "/api/summary")))
}

func TestGetFlights_Paginates(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get(t, "/api/flights?page=2&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []models.FlightRecord  `json:"data"`
		Total      int                    `json:"total"`
		Page       int                    `json:"page"`
		TotalPages int                    `json:"total_pages"`
		Selection  models.FilterSelection `json:"selection"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "X", resp.Data[0].Airline)
	assert.Equal(t, 2, resp.Data[0].DayOfMonth)
}

func TestGetFlights_PageBeyondEnd(t *testing.T) {
	fx := newFixture(t)

	for _, page := range []string{"3", "9223372036854775807"} {
		t.Run(page, func(t *testing.T) {
			rec := fx.get(t, "/api/flights?limit=2&page="+page)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp struct {
				Data       []models.FlightRecord `json:"data"`
				Page       int                   `json:"page"`
				TotalPages int                   `json:"total_pages"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Empty(t, resp.Data)
			assert.NotNil(t, resp.Data)
			assert.Equal(t, 2, resp.TotalPages)
			assert.Equal(t, page, strconv.Itoa(resp.Page))
		})
	}
}

func TestSendJSON_EncodeFailure(t *testing.T) {
	fx := newFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	fx.handler.sendJSON(rec, req, map[string]float64{"average_delay": math.NaN()}, http.StatusOK)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Contains(t, fx.logs.String(), "[ENCODE_ERROR]")
	assert.Equal(t, float64(1), testutil.ToFloat64(fx.metrics.APIErrorsTotal.WithLabelValues("encode_error", "/api/summary")))
}

func TestGetFlights_InvalidDay(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get(t, "/api/flights?day_of_month=1.5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestID(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))

	health := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, float64(3), health["rows"])
}

func TestDocs(t *testing.T) {
	fx := newFixture(t)

	rec := fx.get(t, "/api/docs/openapi.json")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[map[string]interface{}](t, rec)
	paths, ok := doc["paths"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, paths, "/api/summary")
	assert.Contains(t, paths, "/api/live")

	rec = fx.get(t, "/api/docs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Flight Statistics API")
}

func TestLive(t *testing.T) {
	fx := newFixture(t)
	srv := httptest.NewServer(fx.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() LiveMessage {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg LiveMessage
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	initial := read()
	require.Equal(t, "result", initial.Type)
	assert.Equal(t, 3, initial.Result.Summary.FlightCount)

	require.NoError(t, conn.WriteJSON(LiveRequest{
		Action: "select",
		Selection: &models.FilterSelection{
			Airlines:    []string{"Y"},
			DaysOfMonth: []int{1},
			DaysOfWeek:  []string{"Mon"},
		},
	}))
	selected := read()
	require.Equal(t, "result", selected.Type)
	assert.Equal(t, 1, selected.Result.Summary.FlightCount)
	assert.Equal(t, "20.0 minutes", selected.Result.Display.AverageDelay)

	require.NoError(t, conn.WriteJSON(LiveRequest{Action: "select", Selection: &models.FilterSelection{}}))
	empty := read()
	assert.Equal(t, 0, empty.Result.Summary.FlightCount)
	assert.Equal(t, "N/A", empty.Result.Display.AverageFlightTime)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "error", read().Type)

	require.NoError(t, conn.WriteJSON(LiveRequest{Action: "explode"}))
	unknown := read()
	assert.Equal(t, "error", unknown.Type)
	assert.Contains(t, unknown.Error, "explode")

	require.NoError(t, conn.WriteJSON(LiveRequest{Action: "reset"}))
	reset := read()
	assert.Equal(t, 3, reset.Result.Summary.FlightCount)
}

func TestLive_IdleSessionKeptAlive(t *testing.T) {
	fx := newFixture(t)
	fx.handler.live = newLiveTimeouts(200 * time.Millisecond)

	srv := httptest.NewServer(fx.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// The client answers pings only while a read is pending.
	msgs := make(chan LiveMessage, 4)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg LiveMessage
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}
			msgs <- msg
		}
	}()

	select {
	case msg := <-msgs:
		require.Equal(t, "result", msg.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no initial result")
	}

	time.Sleep(1 * time.Second)

	select {
	case err := <-readErr:
		t.Fatalf("idle session was dropped: %v", err)
	default:
	}

	require.NoError(t, conn.WriteJSON(LiveRequest{Action: "reset"}))
	select {
	case msg := <-msgs:
		assert.Equal(t, "result", msg.Type)
		assert.Equal(t, 3, msg.Result.Summary.FlightCount)
	case err := <-readErr:
		t.Fatalf("session closed after idling: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no result after idling")
	}
}

func TestNewLiveTimeouts(t *testing.T) {
	lt := newLiveTimeouts(defaultPongWait)
	assert.Equal(t, 60*time.Second, lt.pongWait)
	assert.Equal(t, 54*time.Second, lt.pingPeriod)
	assert.Less(t, lt.pingPeriod, lt.pongWait)
}
