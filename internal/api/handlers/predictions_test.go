package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"climarisk/internal/core"
	"climarisk/internal/types"
)

// --- Mock Service ---

type mockPredictionService struct {
	predictResult  *types.PredictionResult
	predictErr     error
	forecastResult *types.ForecastResult
	forecastErr    error

	lastLocation types.Location
	lastDate     time.Time
	lastMonths   int
}

func (m *mockPredictionService) Predict(_ context.Context, loc types.Location, date time.Time) (*types.PredictionResult, error) {
	m.lastLocation = loc
	m.lastDate = date
	return m.predictResult, m.predictErr
}

func (m *mockPredictionService) Forecast(_ context.Context, loc types.Location, months int) (*types.ForecastResult, error) {
	m.lastLocation = loc
	m.lastMonths = months
	return m.forecastResult, m.forecastErr
}

// --- Helpers ---

func newTestPredictionHandler(svc PredictionServiceInterface) *PredictionHandler {
	logger := slog.Default()
	validator := core.NewValidator(logger)
	return NewPredictionHandler(svc, validator, logger)
}

func makePredictionRouter(h *PredictionHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func samplePrediction() *types.PredictionResult {
	return &types.PredictionResult{
		Location:    types.Location{Latitude: 40.7, Longitude: -74.0},
		Date:        "2025-10-04",
		Predictions: map[string]float64{"very_hot": 0.7},
		RiskLevel:   types.RiskHigh,
		ComputedAt:  time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
		DataSource:  types.DataSourceHistorical,
	}
}

// --- HandlePredict Tests ---

func TestHandlePredict_Success(t *testing.T) {
	svc := &mockPredictionService{predictResult: samplePrediction()}
	router := makePredictionRouter(newTestPredictionHandler(svc))

	rec := postJSON(t, router, "/v1/predict",
		`{"latitude": 40.7, "longitude": -74.0, "date": "2025-10-04"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp core.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data == nil {
		t.Fatal("expected data in response")
	}
	if resp.Meta != nil {
		t.Errorf("expected no meta warnings for the historical path, got %+v", resp.Meta)
	}

	if svc.lastLocation.Latitude != 40.7 {
		t.Errorf("expected latitude 40.7 passed to service, got %v", svc.lastLocation.Latitude)
	}
	if got := svc.lastDate.Format(time.DateOnly); got != "2025-10-04" {
		t.Errorf("expected date 2025-10-04 passed to service, got %s", got)
	}
}

func TestHandlePredict_SeasonalFallbackWarning(t *testing.T) {
	result := samplePrediction()
	result.DataSource = types.DataSourceSeasonal
	svc := &mockPredictionService{predictResult: result}
	router := makePredictionRouter(newTestPredictionHandler(svc))

	rec := postJSON(t, router, "/v1/predict",
		`{"latitude": 40.7, "longitude": -74.0, "date": "2025-10-04"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp core.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Meta == nil || len(resp.Meta.Warnings) == 0 {
		t.Error("expected a warning when the seasonal fallback served the request")
	}
}

func TestHandlePredict_MissingFields(t *testing.T) {
	svc := &mockPredictionService{predictResult: samplePrediction()}
	router := makePredictionRouter(newTestPredictionHandler(svc))

	rec := postJSON(t, router, "/v1/predict", `{"latitude": 40.7}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp core.APIErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeValidationMissingField) {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationMissingField, resp.Error.Code)
	}
}

func TestHandlePredict_InvalidDateFormat(t *testing.T) {
	svc := &mockPredictionService{predictResult: samplePrediction()}
	router := makePredictionRouter(newTestPredictionHandler(svc))

	rec := postJSON(t, router, "/v1/predict",
		`{"latitude": 40.7, "longitude": -74.0, "date": "04/10/2025"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp core.APIErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeValidationInvalidDate) {
		t.Errorf("expected code %s, got %s", types.ErrCodeValidationInvalidDate, resp.Error.Code)
	}
}

func TestHandlePredict_MalformedJSON(t *testing.T) {
	svc := &mockPredictionService{}
	router := makePredictionRouter(newTestPredictionHandler(svc))

	rec := postJSON(t, router, "/v1/predict", `{"latitude": `)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandlePredict_UnknownField(t *testing.T) {
	svc := &mockPredictionService{}
	router := makePredictionRouter(newTestPredictionHandler(svc))

	rec := postJSON(t, router, "/v1/predict",
		`{"latitude": 40.7, "longitude": -74.0, "date": "2025-10-04", "extra": true}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestHandlePredict_ServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   types.ErrorCode
	}{
		{
			name:       "models not loaded",
			err:        types.NewAppError(types.ErrCodeModelsNotLoaded, "degraded", nil),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   types.ErrCodeModelsNotLoaded,
		},
		{
			name:       "invalid latitude",
			err:        types.NewAppError(types.ErrCodeValidationInvalidLat, "out of range", nil),
			wantStatus: http.StatusBadRequest,
			wantCode:   types.ErrCodeValidationInvalidLat,
		},
		{
			name:       "internal schema mismatch",
			err:        types.NewAppError(types.ErrCodeInternalSchemaMismatch, "bad vector", nil),
			wantStatus: http.StatusInternalServerError,
			wantCode:   types.ErrCodeInternalSchemaMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockPredictionService{predictErr: tc.err}
			router := makePredictionRouter(newTestPredictionHandler(svc))

			rec := postJSON(t, router, "/v1/predict",
				`{"latitude": 40.7, "longitude": -74.0, "date": "2025-10-04"}`)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rec.Code)
			}

			var resp core.APIErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error response: %v", err)
			}
			if resp.Error.Code != string(tc.wantCode) {
				t.Errorf("expected code %s, got %s", tc.wantCode, resp.Error.Code)
			}
		})
	}
}

// --- HandleForecast Tests ---

func TestHandleForecast_Success(t *testing.T) {
	svc := &mockPredictionService{
		forecastResult: &types.ForecastResult{
			Location: types.Location{Latitude: 40.7, Longitude: -74.0},
			Months: []types.MonthOutlook{
				{Month: "2025-10", Predictions: map[string]float64{"very_hot": 0.3}, RiskLevel: types.RiskLow, DataSource: types.DataSourceSeasonal},
			},
		},
	}
	router := makePredictionRouter(newTestPredictionHandler(svc))

	rec := postJSON(t, router, "/v1/forecast",
		`{"latitude": 40.7, "longitude": -74.0, "months": 6}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastMonths != 6 {
		t.Errorf("expected months 6 passed to service, got %d", svc.lastMonths)
	}
}

func TestHandleForecast_DefaultMonths(t *testing.T) {
	svc := &mockPredictionService{forecastResult: &types.ForecastResult{}}
	router := makePredictionRouter(newTestPredictionHandler(svc))

	rec := postJSON(t, router, "/v1/forecast",
		`{"latitude": 40.7, "longitude": -74.0}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.lastMonths != 6 {
		t.Errorf("expected default of 6 months, got %d", svc.lastMonths)
	}
}

func TestHandleForecast_MonthsOutOfRange(t *testing.T) {
	svc := &mockPredictionService{forecastResult: &types.ForecastResult{}}
	router := makePredictionRouter(newTestPredictionHandler(svc))

	rec := postJSON(t, router, "/v1/forecast",
		`{"latitude": 40.7, "longitude": -74.0, "months": 13}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}
