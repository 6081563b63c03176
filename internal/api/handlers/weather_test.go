package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"climarisk/internal/core"
	"climarisk/internal/types"
	"climarisk/internal/weather"
)

// --- Mock Source ---

type mockCurrentSource struct {
	conditions weather.CurrentConditions
	err        error

	lastLocation types.Location
	calls        int
}

func (m *mockCurrentSource) FetchCurrent(_ context.Context, loc types.Location) (weather.CurrentConditions, error) {
	m.lastLocation = loc
	m.calls++
	return m.conditions, m.err
}

// --- Helpers ---

func makeWeatherRouter(src CurrentWeatherSource) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", NewWeatherHandler(src, nil).RegisterRoutes)
	return r
}

func getPath(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func assertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var resp core.APIErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if resp.Error.Code != want {
		t.Errorf("expected error code %s, got %s", want, resp.Error.Code)
	}
}

func sampleConditions() weather.CurrentConditions {
	observedAt := time.Date(2025, 10, 3, 14, 20, 0, 0, time.UTC)
	return weather.CurrentConditions{
		Observation: types.Observation{
			Date: types.Day(observedAt),
			Channels: map[types.Channel]float64{
				types.ChannelTemp:      17.5,
				types.ChannelTempMax:   19.0,
				types.ChannelTempMin:   15.0,
				types.ChannelHumidity:  72.0,
				types.ChannelPressure:  1008.0,
				types.ChannelWindSpeed: 6.1,
				types.ChannelPrecip:    1.2,
				types.ChannelCloudAmt:  85.0,
			},
		},
		Description:  "light rain",
		LocationName: "Queens",
		ObservedAt:   observedAt,
	}
}

// --- HandleCurrent Tests ---

func TestHandleCurrent_Success(t *testing.T) {
	src := &mockCurrentSource{conditions: sampleConditions()}
	router := makeWeatherRouter(src)

	rec := getPath(t, router, "/v1/weather/current?lat=40.7&lon=-74.0")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if src.lastLocation.Latitude != 40.7 || src.lastLocation.Longitude != -74.0 {
		t.Errorf("unexpected location passed to source: %+v", src.lastLocation)
	}

	var envelope struct {
		Data currentWeatherResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if envelope.Data.Temperature != 17.5 {
		t.Errorf("expected temperature 17.5, got %v", envelope.Data.Temperature)
	}
	if envelope.Data.Precipitation != 1.2 {
		t.Errorf("expected precipitation 1.2, got %v", envelope.Data.Precipitation)
	}
	if envelope.Data.Description != "light rain" {
		t.Errorf("unexpected description %q", envelope.Data.Description)
	}
	if envelope.Data.LocationName != "Queens" {
		t.Errorf("unexpected location name %q", envelope.Data.LocationName)
	}
	if envelope.Data.Timestamp != "2025-10-03T14:20:00Z" {
		t.Errorf("unexpected timestamp %q", envelope.Data.Timestamp)
	}
}

func TestHandleCurrent_MissingCoordinates(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{"missing lat", "/v1/weather/current?lon=-74.0"},
		{"missing lon", "/v1/weather/current?lat=40.7"},
		{"missing both", "/v1/weather/current"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := &mockCurrentSource{conditions: sampleConditions()}
			router := makeWeatherRouter(src)

			rec := getPath(t, router, tc.path)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d", rec.Code)
			}
			if src.calls != 0 {
				t.Errorf("expected no source call, got %d", src.calls)
			}
			assertErrorCode(t, rec, string(types.ErrCodeValidationMissingField))
		})
	}
}

func TestHandleCurrent_NonNumericCoordinate(t *testing.T) {
	src := &mockCurrentSource{conditions: sampleConditions()}
	router := makeWeatherRouter(src)

	rec := getPath(t, router, "/v1/weather/current?lat=north&lon=-74.0")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	assertErrorCode(t, rec, string(types.ErrCodeValidationInvalidLat))
}

func TestHandleCurrent_OutOfRangeLatitude(t *testing.T) {
	src := &mockCurrentSource{
		err: types.NewAppError(types.ErrCodeValidationInvalidLat, "latitude must be between -90 and 90", nil),
	}
	router := makeWeatherRouter(src)

	rec := getPath(t, router, "/v1/weather/current?lat=95&lon=0")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	assertErrorCode(t, rec, string(types.ErrCodeValidationInvalidLat))
}

func TestHandleCurrent_UpstreamUnavailable(t *testing.T) {
	src := &mockCurrentSource{
		err: types.NewAppError(types.ErrCodeUpstreamWeather, "weather provider request failed", errors.New("timeout")),
	}
	router := makeWeatherRouter(src)

	rec := getPath(t, router, "/v1/weather/current?lat=40.7&lon=-74.0")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
	assertErrorCode(t, rec, string(types.ErrCodeUpstreamWeather))
}
