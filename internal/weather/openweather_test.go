package weather

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climarisk/internal/external"
	"climarisk/internal/observability"
	"climarisk/internal/types"
)

func newForecastTestClient(t *testing.T, handler http.HandlerFunc) *ForecastClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	base := external.NewBaseClient(server.Client(), "owm-test", external.SingleAttemptPolicy(), "climarisk-test")
	return NewForecastClient(base, server.URL, types.SecretString("test-key"), observability.NewMetricsForTesting(), nil)
}

func forecastEntry(at time.Time, temp float64, rain3h *float64) map[string]any {
	entry := map[string]any{
		"dt": at.Unix(),
		"main": map[string]any{
			"temp":     temp,
			"temp_min": temp - 3,
			"temp_max": temp + 3,
			"pressure": 1012.0,
			"humidity": 60.0,
		},
		"wind":   map[string]any{"speed": 4.5},
		"clouds": map[string]any{"all": 30.0},
	}
	if rain3h != nil {
		entry["rain"] = map[string]any{"3h": *rain3h}
	}
	return entry
}

func writeForecast(w http.ResponseWriter, entries ...map[string]any) {
	json.NewEncoder(w).Encode(map[string]any{"list": entries})
}

func TestForecastFetchNearTermClosestEntry(t *testing.T) {
	target := time.Date(2025, 10, 3, 12, 0, 0, 0, time.UTC)
	rain := 2.4

	client := newForecastTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		writeForecast(w,
			forecastEntry(target.Add(-9*time.Hour), 18, nil),
			forecastEntry(target.Add(-1*time.Hour), 21, &rain), // closest
			forecastEntry(target.Add(5*time.Hour), 24, nil),
		)
	})

	got, err := client.FetchNearTerm(context.Background(), types.Location{Latitude: 40.7, Longitude: -74}, target)
	require.NoError(t, err)

	assert.Equal(t, time.Hour, got.TimeDiff)
	assert.Equal(t, target.Add(-time.Hour), got.ForecastTime)

	temp, ok := got.Observation.Value(types.ChannelTemp)
	require.True(t, ok)
	assert.Equal(t, 21.0, temp)

	// 3-hour rain accumulation is converted to an hourly rate.
	precip, ok := got.Observation.Value(types.ChannelPrecip)
	require.True(t, ok)
	assert.InDelta(t, 0.8, precip, 1e-9)

	// The observation is stamped with the target's calendar day.
	assert.Equal(t, types.Day(target), got.Observation.Date)
}

func TestForecastFetchNearTermAbsentRainIsZero(t *testing.T) {
	target := time.Date(2025, 10, 3, 12, 0, 0, 0, time.UTC)
	client := newForecastTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeForecast(w, forecastEntry(target, 20, nil))
	})

	got, err := client.FetchNearTerm(context.Background(), types.Location{Latitude: 40, Longitude: -74}, target)
	require.NoError(t, err)

	precip, ok := got.Observation.Value(types.ChannelPrecip)
	require.True(t, ok)
	assert.Zero(t, precip)
}

func TestForecastFetchNearTermAllChannelsPresent(t *testing.T) {
	target := time.Date(2025, 10, 3, 12, 0, 0, 0, time.UTC)
	client := newForecastTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeForecast(w, forecastEntry(target, 20, nil))
	})

	got, err := client.FetchNearTerm(context.Background(), types.Location{Latitude: 40, Longitude: -74}, target)
	require.NoError(t, err)

	for _, ch := range types.CanonicalChannels() {
		_, ok := got.Observation.Value(ch)
		assert.True(t, ok, "channel %s missing", ch)
	}
}

func TestForecastFetchNearTermEmptyList(t *testing.T) {
	client := newForecastTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeForecast(w)
	})

	_, err := client.FetchNearTerm(context.Background(), types.Location{Latitude: 40, Longitude: -74}, time.Now())

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
}

func TestForecastFetchNearTermUpstreamFailure(t *testing.T) {
	client := newForecastTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FetchNearTerm(context.Background(), types.Location{Latitude: 40, Longitude: -74}, time.Now())

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
}

func writeCurrent(w http.ResponseWriter, at time.Time, rain1h *float64) {
	payload := map[string]any{
		"dt": at.Unix(),
		"main": map[string]any{
			"temp":     17.5,
			"temp_min": 15.0,
			"temp_max": 19.0,
			"pressure": 1008.0,
			"humidity": 72.0,
		},
		"wind":    map[string]any{"speed": 6.1},
		"clouds":  map[string]any{"all": 85.0},
		"weather": []map[string]any{{"description": "light rain"}},
		"name":    "Queens",
	}
	if rain1h != nil {
		payload["rain"] = map[string]any{"1h": *rain1h}
	}
	json.NewEncoder(w).Encode(payload)
}

func TestFetchCurrentConditions(t *testing.T) {
	observedAt := time.Date(2025, 10, 3, 14, 20, 0, 0, time.UTC)
	rain := 1.2

	client := newForecastTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		writeCurrent(w, observedAt, &rain)
	})

	got, err := client.FetchCurrent(context.Background(), types.Location{Latitude: 40.7, Longitude: -74})
	require.NoError(t, err)

	assert.Equal(t, "light rain", got.Description)
	assert.Equal(t, "Queens", got.LocationName)
	assert.Equal(t, observedAt, got.ObservedAt)
	assert.Equal(t, types.Day(observedAt), got.Observation.Date)

	for _, ch := range types.CanonicalChannels() {
		_, ok := got.Observation.Value(ch)
		assert.True(t, ok, "channel %s missing", ch)
	}

	// The 1-hour rain accumulation is already an hourly rate.
	precip, ok := got.Observation.Value(types.ChannelPrecip)
	require.True(t, ok)
	assert.Equal(t, 1.2, precip)
}

func TestFetchCurrentAbsentRainIsZero(t *testing.T) {
	client := newForecastTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCurrent(w, time.Date(2025, 10, 3, 14, 0, 0, 0, time.UTC), nil)
	})

	got, err := client.FetchCurrent(context.Background(), types.Location{Latitude: 40, Longitude: -74})
	require.NoError(t, err)

	precip, ok := got.Observation.Value(types.ChannelPrecip)
	require.True(t, ok)
	assert.Zero(t, precip)
}

func TestFetchCurrentUpstreamFailure(t *testing.T) {
	client := newForecastTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FetchCurrent(context.Background(), types.Location{Latitude: 40, Longitude: -74})

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamWeather, appErr.Code)
}

func TestFetchCurrentInvalidLatitude(t *testing.T) {
	requests := 0
	client := newForecastTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	_, err := client.FetchCurrent(context.Background(), types.Location{Latitude: 95, Longitude: 0})

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationInvalidLat, appErr.Code)
	assert.Zero(t, requests)
}

func TestForecastFetchNearTermInvalidLongitude(t *testing.T) {
	requests := 0
	client := newForecastTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
	})

	_, err := client.FetchNearTerm(context.Background(), types.Location{Latitude: 40, Longitude: 200}, time.Now())

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationInvalidLon, appErr.Code)
	assert.Zero(t, requests)
}
