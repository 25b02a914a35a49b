package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soltixdb/weathermetrics/internal/logging"
	"github.com/soltixdb/weathermetrics/internal/models"
	"github.com/soltixdb/weathermetrics/internal/services"
	"github.com/soltixdb/weathermetrics/internal/storage"
)

// MockReadingService records calls and returns canned results
type MockReadingService struct {
	recorded  []*models.ReadingRequest
	listedIDs []string
	readings  []models.Reading
	err       error
}

func (m *MockReadingService) RecordReading(_ context.Context, req *models.ReadingRequest) (models.Reading, error) {
	m.recorded = append(m.recorded, req)
	return models.Reading{}, m.err
}

func (m *MockReadingService) ListReadings(_ context.Context, sensorIDs []string) ([]models.Reading, error) {
	m.listedIDs = sensorIDs
	return m.readings, m.err
}

// MockStatisticService captures the last query
type MockStatisticService struct {
	query  models.StatisticQuery
	result []models.SensorStatistic
	err    error
}

func (m *MockStatisticService) Compute(_ context.Context, q models.StatisticQuery) ([]models.SensorStatistic, error) {
	m.query = q
	return m.result, m.err
}

func setupApp(h *Handler) *fiber.App {
	app := fiber.New()
	app.Get("/health", h.Health)
	api := app.Group("/api/v1/weather")
	api.Post("/metric", h.RecordReading)
	api.Get("/metric", h.ListReadings)
	api.Get("/metric/statistic", h.Statistics)
	app.Use(h.NotFound)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target string, body []byte) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestHandler_Health(t *testing.T) {
	h := New(logging.NewNop(), &MockReadingService{}, &MockStatisticService{}, Info{Version: "1.2.3", Storage: "memory"})
	app := setupApp(h)

	resp, body := doRequest(t, app, "GET", "/health", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, "memory", health.Storage)
	assert.NotEmpty(t, health.Timestamp)
}

func TestHandler_NotFound(t *testing.T) {
	h := New(logging.NewNop(), &MockReadingService{}, &MockStatisticService{}, Info{})
	app := setupApp(h)

	resp, body := doRequest(t, app, "GET", "/api/v1/nothing", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Code)
	assert.Equal(t, "/api/v1/nothing", errResp.Path)
}

func TestHandler_RecordReading(t *testing.T) {
	mock := &MockReadingService{}
	app := setupApp(New(logging.NewNop(), mock, &MockStatisticService{}, Info{}))

	body := []byte(`{"sensorId":"s1","timestamp":"2024-12-13T20:55:16","metrics":[{"metricName":"Temp","metricValue":34}]}`)
	resp, data := doRequest(t, app, "POST", "/api/v1/weather/metric", body)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Success", string(data))
	require.Len(t, mock.recorded, 1)
	assert.Equal(t, "s1", *mock.recorded[0].SensorID)
	require.Len(t, mock.recorded[0].Metrics, 1)
	assert.Equal(t, 34.0, *mock.recorded[0].Metrics[0].MetricValue)
}

func TestHandler_RecordReadingRequiresJSONContentType(t *testing.T) {
	mock := &MockReadingService{}
	app := setupApp(New(logging.NewNop(), mock, &MockStatisticService{}, Info{}))

	req := httptest.NewRequest("POST", "/api/v1/weather/metric",
		strings.NewReader(`{"sensorId":"s1","timestamp":"2024-12-13T20:55:16","metrics":[{"metricName":"Temp","metricValue":34}]}`))
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &errResp))
	assert.Equal(t, "INVALID_REQUEST", errResp.Code)
	assert.Contains(t, errResp.Error, "Failed to parse request body")
	assert.Empty(t, mock.recorded)
}

func TestHandler_RecordReadingErrors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:           "invalid_json",
			body:           `{"sensorId":`,
			expectedStatus: fiber.StatusBadRequest,
			check: func(t *testing.T, body []byte) {
				var errResp models.ErrorResponse
				require.NoError(t, json.Unmarshal(body, &errResp))
				assert.Equal(t, "INVALID_REQUEST", errResp.Code)
			},
		},
		{
			name:           "validation",
			body:           `{}`,
			serviceErr:     services.NewValidationError([]string{models.MsgSensorIDNull, models.MsgTimestampNull}),
			expectedStatus: fiber.StatusBadRequest,
			check: func(t *testing.T, body []byte) {
				var messages []string
				require.NoError(t, json.Unmarshal(body, &messages))
				assert.Equal(t, []string{models.MsgSensorIDNull, models.MsgTimestampNull}, messages)
			},
		},
		{
			name:           "internal",
			body:           `{}`,
			serviceErr:     services.NewInternalError(errors.New("store down")),
			expectedStatus: fiber.StatusInternalServerError,
			check: func(t *testing.T, body []byte) {
				var errResp models.ErrorResponse
				require.NoError(t, json.Unmarshal(body, &errResp))
				assert.Equal(t, "Internal issue: store down", errResp.Error)
				assert.Equal(t, services.CodeInternal, errResp.Code)
			},
		},
		{
			name:           "plain_error",
			body:           `{}`,
			serviceErr:     errors.New("boom"),
			expectedStatus: fiber.StatusInternalServerError,
			check: func(t *testing.T, body []byte) {
				var errResp models.ErrorResponse
				require.NoError(t, json.Unmarshal(body, &errResp))
				assert.Equal(t, "Internal issue: boom", errResp.Error)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockReadingService{err: tt.serviceErr}
			app := setupApp(New(logging.NewNop(), mock, &MockStatisticService{}, Info{}))

			resp, body := doRequest(t, app, "POST", "/api/v1/weather/metric", []byte(tt.body))
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			tt.check(t, body)
		})
	}
}

func TestHandler_ListReadings(t *testing.T) {
	ts := time.Date(2024, 12, 13, 20, 55, 16, 0, time.UTC)
	mock := &MockReadingService{readings: []models.Reading{
		{ID: "hidden", SensorID: "s1", Timestamp: ts, Metrics: []models.Metric{{MetricName: models.MetricTemp, MetricValue: 34}}},
	}}
	app := setupApp(New(logging.NewNop(), mock, &MockStatisticService{}, Info{}))

	resp, body := doRequest(t, app, "GET", "/api/v1/weather/metric?sensorId=s1&sensorId=s2,s3", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"s1", "s2", "s3"}, mock.listedIDs)

	assert.NotContains(t, string(body), "hidden")

	var decoded models.ReadingsResponse
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded.WeatherMetrics, 1)
	assert.Equal(t, "s1", decoded.WeatherMetrics[0].SensorID)
	assert.True(t, ts.Equal(decoded.WeatherMetrics[0].Timestamp))
}

func TestHandler_ListReadingsEmpty(t *testing.T) {
	mock := &MockReadingService{}
	app := setupApp(New(logging.NewNop(), mock, &MockStatisticService{}, Info{}))

	resp, body := doRequest(t, app, "GET", "/api/v1/weather/metric", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{}`, string(body))
	assert.Empty(t, mock.listedIDs)
}

func TestHandler_Statistics(t *testing.T) {
	ts := time.Date(2024, 12, 13, 20, 55, 16, 0, time.UTC)
	mock := &MockStatisticService{result: []models.SensorStatistic{{
		SensorID:  "s1",
		Timestamp: ts,
		Metrics:   []models.MetricStatistic{{MetricName: models.MetricTemp, MetricValue: 34, Statistic: models.StatisticAvg}},
	}}}
	tokyo := time.FixedZone("JST", 9*3600)
	app := setupApp(New(logging.NewNop(), &MockReadingService{}, mock, Info{Location: tokyo}))

	q := url.Values{}
	q.Add("metricName", "Temp,Humidity")
	q.Add("metricName", "WindSpeed")
	q.Add("sensorId", "s1")
	q.Add("statistic", "avg")
	q.Add("startDate", "2024-12-13T09:00:00")
	q.Add("endDate", "2024-12-14T00:00:00Z")

	resp, body := doRequest(t, app, "GET", "/api/v1/weather/metric/statistic?"+q.Encode(), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	assert.Equal(t, []string{"Temp", "Humidity", "WindSpeed"}, mock.query.MetricNames)
	assert.Equal(t, []string{"s1"}, mock.query.SensorIDs)
	assert.Equal(t, "avg", mock.query.Statistic)
	require.NotNil(t, mock.query.Start)
	require.NotNil(t, mock.query.End)
	assert.Equal(t, time.Date(2024, 12, 13, 0, 0, 0, 0, time.UTC), *mock.query.Start)
	assert.Equal(t, time.Date(2024, 12, 14, 0, 0, 0, 0, time.UTC), *mock.query.End)

	assert.JSONEq(t,
		`[{"sensorId":"s1","timestamp":"2024-12-13T20:55:16Z","metrics":[{"metricName":"Temp","metricValue":34,"statistic":"avg"}]}]`,
		string(body))
}

func TestHandler_StatisticsDefaults(t *testing.T) {
	mock := &MockStatisticService{result: []models.SensorStatistic{}}
	app := setupApp(New(logging.NewNop(), &MockReadingService{}, mock, Info{}))

	resp, body := doRequest(t, app, "GET", "/api/v1/weather/metric/statistic", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	assert.Empty(t, mock.query.MetricNames)
	assert.Empty(t, mock.query.SensorIDs)
	assert.Empty(t, mock.query.Statistic)
	assert.Nil(t, mock.query.Start)
	assert.Nil(t, mock.query.End)
}

func TestHandler_StatisticsErrors(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		serviceErr     error
		expectedStatus int
		expectedCode   string
		expectedError  string
	}{
		{
			name:           "invalid_argument",
			query:          "statistic=bogus",
			serviceErr:     services.NewInvalidArgument("Invalid statistic name(s) provided: bogus"),
			expectedStatus: fiber.StatusBadRequest,
			expectedCode:   services.CodeInvalidArgument,
			expectedError:  "Invalid statistic name(s) provided: bogus",
		},
		{
			name:           "bad_start_date",
			query:          "startDate=yesterday",
			expectedStatus: fiber.StatusBadRequest,
			expectedCode:   services.CodeInvalidArgument,
			expectedError:  "Invalid startDate: yesterday",
		},
		{
			name:           "bad_end_date",
			query:          "endDate=2024-13-45",
			expectedStatus: fiber.StatusBadRequest,
			expectedCode:   services.CodeInvalidArgument,
			expectedError:  "Invalid endDate: 2024-13-45",
		},
		{
			name:           "internal",
			serviceErr:     services.NewInternalError(errors.New("failed to fetch readings: timeout")),
			expectedStatus: fiber.StatusInternalServerError,
			expectedCode:   services.CodeInternal,
			expectedError:  "Internal issue: failed to fetch readings: timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockStatisticService{err: tt.serviceErr}
			app := setupApp(New(logging.NewNop(), &MockReadingService{}, mock, Info{}))

			resp, body := doRequest(t, app, "GET", "/api/v1/weather/metric/statistic?"+tt.query, nil)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			var errResp models.ErrorResponse
			require.NoError(t, json.Unmarshal(body, &errResp))
			assert.Equal(t, tt.expectedCode, errResp.Code)
			assert.Equal(t, tt.expectedError, errResp.Error)
		})
	}
}

// TestHandler_EndToEnd runs the handlers against the real services and the memory store
func TestHandler_EndToEnd(t *testing.T) {
	logger := logging.NewNop()
	store := storage.NewMemoryStore(logger)
	readings := services.NewReadingService(logger, store, nil, "weather.readings.recorded", nil)
	statistics := services.NewStatisticService(logger, store, 7*24*time.Hour).
		WithClock(func() time.Time { return time.Date(2024, 12, 20, 0, 0, 0, 0, time.UTC) })
	app := setupApp(New(logger, readings, statistics, Info{}))

	for _, body := range []string{
		`{"sensorId":"s1","timestamp":"2024-12-14T10:00:00","metrics":[{"metricName":"Temp","metricValue":25},{"metricName":"Humidity","metricValue":50}]}`,
		`{"sensorId":"s1","timestamp":"2024-12-15T10:00:00","metrics":[{"metricName":"Temp","metricValue":30}]}`,
		`{"sensorId":"s2","timestamp":"2024-12-16T10:00:00","metrics":[{"metricName":"Humidity","metricValue":70}]}`,
	} {
		resp, data := doRequest(t, app, "POST", "/api/v1/weather/metric", []byte(body))
		require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	}

	resp, body := doRequest(t, app, "POST", "/api/v1/weather/metric",
		[]byte(`{"sensorId":"","timestamp":"2024-12-16T10:00:00","metrics":[{"metricName":"Rain","metricValue":1}]}`))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.JSONEq(t, `["Sensor ID cannot be empty","metricName must be either 'Temp' or 'Humidity' or WindSpeed"]`, string(body))

	resp, body = doRequest(t, app, "GET", "/api/v1/weather/metric?sensorId=s1", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var listed models.ReadingsResponse
	require.NoError(t, json.Unmarshal(body, &listed))
	assert.Len(t, listed.WeatherMetrics, 2)

	resp, body = doRequest(t, app, "GET", "/api/v1/weather/metric/statistic?metricName=Temp&statistic=min", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t,
		`[{"sensorId":"s1","timestamp":"2024-12-14T10:00:00Z","metrics":[{"metricName":"Temp","metricValue":25,"statistic":"min"}]}]`,
		string(body))

	resp, body = doRequest(t, app, "GET", "/api/v1/weather/metric/statistic?metricName=Foo,Temp", nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	var errResp models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "Invalid metric name(s) provided: [Foo, Temp]", errResp.Error)

	resp, body = doRequest(t, app, "GET",
		"/api/v1/weather/metric/statistic?startDate=2024-12-16T00:00:00&endDate=2024-12-15T00:00:00", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	// endDate alone before the default lookback start
	resp, body = doRequest(t, app, "GET", "/api/v1/weather/metric/statistic?endDate=2024-06-01T00:00:00", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}
