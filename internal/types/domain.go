// Package types defines the shared domain model for the ClimaRisk service:
// weather observations, observation windows, prediction results, and the
// application error taxonomy. It has no dependencies on other internal
// packages so that every layer can consume it without import cycles.
package types

import (
	"sort"
	"time"
)

// Channel is one named weather variable in an observation. Channel names
// follow the NASA POWER parameter vocabulary because the trained models'
// feature names are derived from them.
type Channel string

const (
	ChannelTemp      Channel = "T2M"         // 2m air temperature
	ChannelTempMax   Channel = "T2M_MAX"     // daily maximum temperature
	ChannelTempMin   Channel = "T2M_MIN"     // daily minimum temperature
	ChannelPrecip    Channel = "PRECTOTCORR" // corrected precipitation rate
	ChannelWindSpeed Channel = "WS2M"        // 2m wind speed
	ChannelHumidity  Channel = "RH2M"        // relative humidity
	ChannelPressure  Channel = "PS"          // surface pressure
	ChannelCloudAmt  Channel = "CLOUD_AMT"   // cloud fraction
)

// CanonicalChannels returns the fixed channel set in its canonical order.
// Feature names are generated by iterating this slice, so the order is part
// of the model compatibility contract and must never change.
func CanonicalChannels() []Channel {
	return []Channel{
		ChannelTemp,
		ChannelTempMax,
		ChannelTempMin,
		ChannelPrecip,
		ChannelWindSpeed,
		ChannelHumidity,
		ChannelPressure,
		ChannelCloudAmt,
	}
}

// Location is a geographic point in decimal degrees.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Validate checks the coordinate ranges. It returns an AppError so the check
// can run before any I/O and surface directly to the caller.
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return NewAppErrorWithDetails(
			ErrCodeValidationInvalidLat,
			"latitude must be between -90 and 90",
			nil,
			map[string]any{"latitude": l.Latitude},
		)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return NewAppErrorWithDetails(
			ErrCodeValidationInvalidLon,
			"longitude must be between -180 and 180",
			nil,
			map[string]any{"longitude": l.Longitude},
		)
	}
	return nil
}

// Day truncates a timestamp to its UTC calendar day. All date arithmetic in
// the feature pipeline operates on Day-normalized times so that "date
// equality" is an exact calendar-date match.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Observation is one daily weather reading for a location. Channels holds the
// numeric readings keyed by channel name; a missing key means the provider
// omitted that channel, which is distinct from a legitimate zero reading.
type Observation struct {
	Date     time.Time
	Channels map[Channel]float64
}

// Value returns the reading for the given channel and whether it was present.
func (o Observation) Value(ch Channel) (float64, bool) {
	v, ok := o.Channels[ch]
	return v, ok
}

// ObservationWindow is a time-ordered sequence of daily observations for one
// location, unique per calendar day. Lag and rolling computations are defined
// relative to a target date within the window, never relative to "now".
type ObservationWindow struct {
	Location Location

	rows   []Observation
	byDate map[time.Time]int
}

// NewObservationWindow builds a window from raw observations. Dates are
// normalized to UTC calendar days, duplicates resolve last-write-wins, and
// rows are sorted ascending by date.
func NewObservationWindow(loc Location, obs []Observation) *ObservationWindow {
	byDate := make(map[time.Time]int, len(obs))
	rows := make([]Observation, 0, len(obs))

	for _, o := range obs {
		o.Date = Day(o.Date)
		if i, exists := byDate[o.Date]; exists {
			rows[i] = o
			continue
		}
		byDate[o.Date] = len(rows)
		rows = append(rows, o)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	// Rebuild the index after sorting.
	for i, o := range rows {
		byDate[o.Date] = i
	}

	return &ObservationWindow{
		Location: loc,
		rows:     rows,
		byDate:   byDate,
	}
}

// Len returns the number of distinct days in the window.
func (w *ObservationWindow) Len() int {
	return len(w.rows)
}

// Rows returns the observations in ascending date order. The returned slice
// is shared; callers must not mutate it.
func (w *ObservationWindow) Rows() []Observation {
	return w.rows
}

// At returns the observation for the exact calendar day, if present.
func (w *ObservationWindow) At(date time.Time) (Observation, bool) {
	i, ok := w.byDate[Day(date)]
	if !ok {
		return Observation{}, false
	}
	return w.rows[i], true
}

// Value returns the channel reading for the exact calendar day, if both the
// day and the channel are present.
func (w *ObservationWindow) Value(date time.Time, ch Channel) (float64, bool) {
	o, ok := w.At(date)
	if !ok {
		return 0, false
	}
	return o.Value(ch)
}

// RiskLevel is the coarse ordered risk category derived from the maximum
// per-target probability.
type RiskLevel string

const (
	RiskMinimal  RiskLevel = "MINIMAL"
	RiskLow      RiskLevel = "LOW"
	RiskModerate RiskLevel = "MODERATE"
	RiskHigh     RiskLevel = "HIGH"
	RiskExtreme  RiskLevel = "EXTREME"
)

// riskRank orders risk levels for monotonicity checks.
var riskRank = map[RiskLevel]int{
	RiskMinimal:  0,
	RiskLow:      1,
	RiskModerate: 2,
	RiskHigh:     3,
	RiskExtreme:  4,
}

// Rank returns the position of the level in the ascending risk ordering.
// Unknown levels rank below MINIMAL.
func (r RiskLevel) Rank() int {
	rank, ok := riskRank[r]
	if !ok {
		return -1
	}
	return rank
}

// DataSource tags a prediction with the provenance of its input data.
type DataSource string

const (
	DataSourceLiveForecast DataSource = "live_forecast"
	DataSourceHistorical   DataSource = "historical_model"
	DataSourceSeasonal     DataSource = "seasonal_statistical"
)

// PredictionResult is the outcome of one prediction request. Constructed
// fresh per request and never persisted.
type PredictionResult struct {
	Location    Location           `json:"location"`
	Date        string             `json:"date"` // YYYY-MM-DD
	Predictions map[string]float64 `json:"predictions"`
	RiskLevel   RiskLevel          `json:"risk_level"`
	ComputedAt  time.Time          `json:"timestamp"`
	DataSource  DataSource         `json:"data_source"`
	// SourceDetail carries human-readable provenance such as the matched
	// forecast entry time on the live path. Empty on other paths.
	SourceDetail string `json:"source_detail,omitempty"`
}

// MonthOutlook is one month's entry in a multi-month forecast response.
type MonthOutlook struct {
	Month       string                      `json:"month"` // YYYY-MM
	Predictions map[string]float64          `json:"predictions"`
	Bands       map[string]DistributionBand `json:"distributions,omitempty"`
	RiskLevel   RiskLevel                   `json:"risk_level"`
	DataSource  DataSource                  `json:"data_source"`
}

// DistributionBand describes the uncertainty band around a forecast
// probability.
type DistributionBand struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// ForecastResult is the outcome of a multi-month forecast request.
type ForecastResult struct {
	Location Location       `json:"location"`
	Months   []MonthOutlook `json:"forecasts"`
}
