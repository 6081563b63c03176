// Package weather implements the outbound clients for the two weather data
// providers: a NASA-POWER-shaped historical reanalysis API and an
// OpenWeatherMap-shaped short-range forecast API. Both clients normalize
// provider responses into the canonical observation shape defined in the
// types package; channel defaulting is deliberately left to the feature
// assembler.
package weather

import (
	"context"
	"time"

	"climarisk/internal/types"
)

// HistoricalSource produces a full observation window ending at the target
// date. Implementations must validate the location before any I/O and report
// provider failures as upstream AppErrors.
type HistoricalSource interface {
	FetchWindow(ctx context.Context, loc types.Location, target time.Time, lookbackDays int) (*types.ObservationWindow, error)
}

// LiveSource produces a single near-term observation adapted from a
// short-range forecast, for target dates within the live horizon.
type LiveSource interface {
	FetchNearTerm(ctx context.Context, loc types.Location, target time.Time) (NearTermObservation, error)
}

// CurrentSource produces the present conditions at a location, for the
// current-weather endpoint.
type CurrentSource interface {
	FetchCurrent(ctx context.Context, loc types.Location) (CurrentConditions, error)
}

// NearTermObservation is a single-point substitute for an observation window,
// taken from the forecast entry closest to the target timestamp.
type NearTermObservation struct {
	types.Observation

	// ForecastTime is the valid time of the matched forecast entry.
	ForecastTime time.Time
	// TimeDiff is the absolute distance between the matched entry and the
	// requested target timestamp.
	TimeDiff time.Duration
}

// CurrentConditions is a present-moment observation enriched with the
// human-readable fields the provider reports alongside the measurements.
type CurrentConditions struct {
	types.Observation

	// Description is the provider's condition summary ("light rain").
	Description string
	// LocationName is the provider's place name for the coordinates; empty
	// when the provider does not resolve one.
	LocationName string
	// ObservedAt is the provider's measurement timestamp.
	ObservedAt time.Time
}
