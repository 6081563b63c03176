package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"climarisk/internal/external"
	"climarisk/internal/observability"
	"climarisk/internal/types"
)

// ForecastClient fetches short-range forecasts and current conditions from an
// OpenWeatherMap-shaped API and adapts them into the canonical observation
// shape. For forecasts it selects the entry closest to the target timestamp.
type ForecastClient struct {
	base    *external.BaseClient
	baseURL string
	apiKey  types.SecretString
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewForecastClient creates a live source backed by the given resilient HTTP
// client.
func NewForecastClient(
	base *external.BaseClient,
	baseURL string,
	apiKey types.SecretString,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *ForecastClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastClient{
		base:    base,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		metrics: metrics,
		logger:  logger,
	}
}

// owmForecastResponse mirrors the subset of the forecast payload the service
// consumes. Rain is a pointer so an absent block is distinguishable from an
// empty one.
type owmForecastResponse struct {
	List []owmForecastEntry `json:"list"`
}

type owmForecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Pressure float64 `json:"pressure"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Rain *struct {
		ThreeHour float64 `json:"3h"`
	} `json:"rain"`
}

// FetchNearTerm retrieves the 5-day forecast and returns the entry closest to
// the target timestamp, converted to canonical channels. The 3-hour rain
// accumulation is divided by 3 to approximate an hourly precipitation rate;
// an absent rain block maps to zero precipitation, matching the historical
// channel semantics the models were trained on.
func (c *ForecastClient) FetchNearTerm(ctx context.Context, loc types.Location, target time.Time) (NearTermObservation, error) {
	if err := loc.Validate(); err != nil {
		return NearTermObservation{}, err
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("appid", c.apiKey.Unmask())
	q.Set("units", "metric")

	reqURL := c.baseURL + "/forecast?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return NearTermObservation{}, types.NewAppError(types.ErrCodeInternalUnexpected, "building forecast request", err)
	}

	startedAt := time.Now()
	resp, err := c.base.Do(req)
	c.observe(startedAt, err == nil)
	if err != nil {
		return NearTermObservation{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NearTermObservation{}, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("forecast API returned status %d", resp.StatusCode),
			nil,
		)
	}

	var payload owmForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return NearTermObservation{}, types.NewAppError(types.ErrCodeUpstreamWeather, "malformed forecast response", err)
	}
	if len(payload.List) == 0 {
		return NearTermObservation{}, types.NewAppError(types.ErrCodeUpstreamWeather, "forecast response contains no entries", nil)
	}

	closest := payload.List[0]
	closestDiff := absDuration(time.Unix(closest.Dt, 0).UTC().Sub(target))
	for _, entry := range payload.List[1:] {
		diff := absDuration(time.Unix(entry.Dt, 0).UTC().Sub(target))
		if diff < closestDiff {
			closest = entry
			closestDiff = diff
		}
	}

	precip := 0.0
	if closest.Rain != nil {
		precip = closest.Rain.ThreeHour / 3
	}

	obs := types.Observation{
		Date: types.Day(target),
		Channels: map[types.Channel]float64{
			types.ChannelTemp:      closest.Main.Temp,
			types.ChannelTempMax:   closest.Main.TempMax,
			types.ChannelTempMin:   closest.Main.TempMin,
			types.ChannelHumidity:  closest.Main.Humidity,
			types.ChannelPressure:  closest.Main.Pressure,
			types.ChannelWindSpeed: closest.Wind.Speed,
			types.ChannelPrecip:    precip,
			types.ChannelCloudAmt:  closest.Clouds.All,
		},
	}

	forecastTime := time.Unix(closest.Dt, 0).UTC()
	c.logger.DebugContext(ctx, "near-term forecast matched",
		"lat", loc.Latitude,
		"lon", loc.Longitude,
		"forecast_time", forecastTime,
		"time_diff", closestDiff,
	)

	return NearTermObservation{
		Observation:  obs,
		ForecastTime: forecastTime,
		TimeDiff:     closestDiff,
	}, nil
}

// owmCurrentResponse mirrors the subset of the current-weather payload the
// service consumes. Rain carries a 1-hour accumulation, already an hourly
// rate, so it is passed through unscaled.
type owmCurrentResponse struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Pressure float64 `json:"pressure"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Rain *struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Name string `json:"name"`
}

// FetchCurrent retrieves the present conditions at the location, converted to
// canonical channels plus the provider's condition summary and place name.
func (c *ForecastClient) FetchCurrent(ctx context.Context, loc types.Location) (CurrentConditions, error) {
	if err := loc.Validate(); err != nil {
		return CurrentConditions{}, err
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("appid", c.apiKey.Unmask())
	q.Set("units", "metric")

	reqURL := c.baseURL + "/weather?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return CurrentConditions{}, types.NewAppError(types.ErrCodeInternalUnexpected, "building current weather request", err)
	}

	startedAt := time.Now()
	resp, err := c.base.Do(req)
	c.observe(startedAt, err == nil)
	if err != nil {
		return CurrentConditions{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CurrentConditions{}, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("current weather API returned status %d", resp.StatusCode),
			nil,
		)
	}

	var payload owmCurrentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return CurrentConditions{}, types.NewAppError(types.ErrCodeUpstreamWeather, "malformed current weather response", err)
	}

	precip := 0.0
	if payload.Rain != nil {
		precip = payload.Rain.OneHour
	}

	observedAt := time.Unix(payload.Dt, 0).UTC()
	obs := types.Observation{
		Date: types.Day(observedAt),
		Channels: map[types.Channel]float64{
			types.ChannelTemp:      payload.Main.Temp,
			types.ChannelTempMax:   payload.Main.TempMax,
			types.ChannelTempMin:   payload.Main.TempMin,
			types.ChannelHumidity:  payload.Main.Humidity,
			types.ChannelPressure:  payload.Main.Pressure,
			types.ChannelWindSpeed: payload.Wind.Speed,
			types.ChannelPrecip:    precip,
			types.ChannelCloudAmt:  payload.Clouds.All,
		},
	}

	description := ""
	if len(payload.Weather) > 0 {
		description = payload.Weather[0].Description
	}

	c.logger.DebugContext(ctx, "current weather fetched",
		"lat", loc.Latitude,
		"lon", loc.Longitude,
		"observed_at", observedAt,
		"location_name", payload.Name,
	)

	return CurrentConditions{
		Observation:  obs,
		Description:  description,
		LocationName: payload.Name,
		ObservedAt:   observedAt,
	}, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func (c *ForecastClient) observe(startedAt time.Time, ok bool) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	c.metrics.ProviderRequests.WithLabelValues("openweathermap", outcome).Inc()
	c.metrics.ProviderDuration.WithLabelValues("openweathermap").Observe(time.Since(startedAt).Seconds())
}
