package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"climarisk/internal/core"
	"climarisk/internal/types"
	"climarisk/internal/weather"
)

// CurrentWeatherSource is the provider view the current-weather endpoint
// needs. Defined locally so tests can inject a fake.
type CurrentWeatherSource interface {
	FetchCurrent(ctx context.Context, loc types.Location) (weather.CurrentConditions, error)
}

// WeatherHandler serves the raw current-conditions endpoint. Unlike the
// prediction endpoints it does not touch the model registry, so it stays
// available in degraded mode.
type WeatherHandler struct {
	source CurrentWeatherSource
	logger *slog.Logger
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(source CurrentWeatherSource, logger *slog.Logger) *WeatherHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherHandler{source: source, logger: logger}
}

// RegisterRoutes mounts the current weather endpoint onto the mux.
func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/weather/current", h.HandleCurrent)
}

// currentWeatherResponse is the JSON body of GET /v1/weather/current.
type currentWeatherResponse struct {
	Temperature   float64 `json:"temperature"`
	TempMax       float64 `json:"temp_max"`
	TempMin       float64 `json:"temp_min"`
	Humidity      float64 `json:"humidity"`
	Pressure      float64 `json:"pressure"`
	WindSpeed     float64 `json:"wind_speed"`
	Precipitation float64 `json:"precipitation"`
	Clouds        float64 `json:"clouds"`
	Description   string  `json:"description"`
	LocationName  string  `json:"location_name,omitempty"`
	Timestamp     string  `json:"timestamp"`
}

// HandleCurrent handles GET /v1/weather/current?lat=...&lon=...
func (h *WeatherHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	lat, err := queryFloat(r, "lat", types.ErrCodeValidationInvalidLat)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	lon, err := queryFloat(r, "lon", types.ErrCodeValidationInvalidLon)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	conditions, err := h.source.FetchCurrent(r.Context(), types.Location{Latitude: lat, Longitude: lon})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp := currentWeatherResponse{
		Temperature:   channelOrZero(conditions.Observation, types.ChannelTemp),
		TempMax:       channelOrZero(conditions.Observation, types.ChannelTempMax),
		TempMin:       channelOrZero(conditions.Observation, types.ChannelTempMin),
		Humidity:      channelOrZero(conditions.Observation, types.ChannelHumidity),
		Pressure:      channelOrZero(conditions.Observation, types.ChannelPressure),
		WindSpeed:     channelOrZero(conditions.Observation, types.ChannelWindSpeed),
		Precipitation: channelOrZero(conditions.Observation, types.ChannelPrecip),
		Clouds:        channelOrZero(conditions.Observation, types.ChannelCloudAmt),
		Description:   conditions.Description,
		LocationName:  conditions.LocationName,
		Timestamp:     conditions.ObservedAt.Format(time.RFC3339),
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}

// queryFloat parses a required float query parameter, mapping absence to a
// missing-field error and a parse failure to the given coordinate code.
func queryFloat(r *http.Request, name string, invalidCode types.ErrorCode) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, types.NewAppErrorWithDetails(
			types.ErrCodeValidationMissingField,
			"required query parameter is missing",
			nil,
			map[string]any{"parameter": name},
		)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, types.NewAppErrorWithDetails(
			invalidCode,
			"query parameter must be a number",
			err,
			map[string]any{"parameter": name, "value": raw},
		)
	}
	return v, nil
}

func channelOrZero(obs types.Observation, ch types.Channel) float64 {
	v, ok := obs.Value(ch)
	if !ok {
		return 0
	}
	return v
}
