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

// powerDateLayout is the compact date format used by the POWER API for both
// query parameters and response keys.
const powerDateLayout = "20060102"

// PowerClient fetches daily historical observations from a NASA-POWER-shaped
// point API. Responses key each channel by parameter name and each reading by
// YYYYMMDD date string.
type PowerClient struct {
	base      *external.BaseClient
	baseURL   string
	community string
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewPowerClient creates a historical source backed by the given resilient
// HTTP client.
func NewPowerClient(
	base *external.BaseClient,
	baseURL string,
	community string,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *PowerClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &PowerClient{
		base:      base,
		baseURL:   strings.TrimRight(baseURL, "/"),
		community: community,
		metrics:   metrics,
		logger:    logger,
	}
}

// powerResponse mirrors the subset of the POWER JSON payload the service
// consumes: properties.parameter.<channel>.<YYYYMMDD> -> value.
type powerResponse struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}

// FetchWindow retrieves the closed interval [target-lookbackDays, target] of
// daily observations. Channels the provider omits stay absent in the returned
// rows; defaulting happens only at vector assembly. A provider failure,
// malformed payload, or empty result surfaces as an upstream AppError so the
// orchestrator can choose the statistical fallback.
func (c *PowerClient) FetchWindow(ctx context.Context, loc types.Location, target time.Time, lookbackDays int) (*types.ObservationWindow, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}

	end := types.Day(target)
	start := end.AddDate(0, 0, -lookbackDays)

	channels := types.CanonicalChannels()
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = string(ch)
	}

	q := url.Values{}
	q.Set("parameters", strings.Join(names, ","))
	q.Set("community", c.community)
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("start", start.Format(powerDateLayout))
	q.Set("end", end.Format(powerDateLayout))
	q.Set("format", "JSON")

	reqURL := c.baseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "building POWER request", err)
	}

	startedAt := time.Now()
	resp, err := c.base.Do(req)
	c.observe("power", startedAt, err == nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("POWER API returned status %d", resp.StatusCode),
			nil,
		)
	}

	var payload powerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "malformed POWER response", err)
	}
	if len(payload.Properties.Parameter) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "POWER response contains no parameters", nil)
	}

	window, err := c.buildWindow(loc, payload)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "historical window fetched",
		"lat", loc.Latitude,
		"lon", loc.Longitude,
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
		"rows", window.Len(),
	)

	return window, nil
}

// buildWindow pivots the per-channel maps into per-day observations. Every
// date that appears under any channel becomes a row; channels missing for a
// given date stay absent on that row.
func (c *PowerClient) buildWindow(loc types.Location, payload powerResponse) (*types.ObservationWindow, error) {
	byDate := make(map[string]map[types.Channel]float64)

	for _, ch := range types.CanonicalChannels() {
		readings, ok := payload.Properties.Parameter[string(ch)]
		if !ok {
			continue
		}
		for dateStr, value := range readings {
			row, ok := byDate[dateStr]
			if !ok {
				row = make(map[types.Channel]float64, len(types.CanonicalChannels()))
				byDate[dateStr] = row
			}
			row[ch] = value
		}
	}

	obs := make([]types.Observation, 0, len(byDate))
	for dateStr, row := range byDate {
		date, err := time.Parse(powerDateLayout, dateStr)
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeUpstreamWeather,
				fmt.Sprintf("POWER response contains unparseable date %q", dateStr),
				err,
			)
		}
		obs = append(obs, types.Observation{Date: date, Channels: row})
	}

	if len(obs) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "POWER response contains zero observation rows", nil)
	}

	return types.NewObservationWindow(loc, obs), nil
}

func (c *PowerClient) observe(provider string, startedAt time.Time, ok bool) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	c.metrics.ProviderRequests.WithLabelValues(provider, outcome).Inc()
	c.metrics.ProviderDuration.WithLabelValues(provider).Observe(time.Since(startedAt).Seconds())
}
