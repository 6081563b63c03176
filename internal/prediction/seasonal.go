package prediction

import "climarisk/internal/types"

// The statistical seasonal model: month-indexed baseline probabilities per
// extreme-weather target, keyed by a coarse climate zone derived from
// latitude. It serves as the fallback when neither the live forecast nor the
// historical/trained-model path can produce a prediction, and as the
// long-range component of multi-month outlooks.
//
// Unlike its ancestor, the output is fully deterministic: no noise is
// injected, and the uncertainty band is derived from the baseline value so
// repeated requests for the same location and month agree.

// Seasonal target names. These match the trained target vocabulary so
// responses keep one consistent key set across data sources.
const (
	TargetVeryHot           = "very_hot"
	TargetVeryCold          = "very_cold"
	TargetVeryWet           = "very_wet"
	TargetVeryWindy         = "very_windy"
	TargetVeryUncomfortable = "very_uncomfortable"
)

type climateZone string

const (
	zoneTropical  climateZone = "tropical"
	zoneTemperate climateZone = "temperate"
	zonePolar     climateZone = "polar"
)

// monthly holds one January-through-December probability pattern.
type monthly [12]float64

// zonePatterns are the baseline seasonal probabilities per climate zone,
// northern-hemisphere calendar.
var zonePatterns = map[climateZone]map[string]monthly{
	zoneTropical: {
		TargetVeryHot:  {0.7, 0.75, 0.8, 0.85, 0.8, 0.7, 0.65, 0.6, 0.65, 0.7, 0.7, 0.65},
		TargetVeryCold: {0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01, 0.01},
		TargetVeryWet:  {0.2, 0.2, 0.3, 0.4, 0.6, 0.8, 0.85, 0.8, 0.7, 0.5, 0.3, 0.2},
	},
	zoneTemperate: {
		TargetVeryHot:  {0.05, 0.1, 0.2, 0.4, 0.6, 0.8, 0.85, 0.8, 0.6, 0.3, 0.1, 0.05},
		TargetVeryCold: {0.8, 0.7, 0.5, 0.2, 0.1, 0.01, 0.01, 0.01, 0.1, 0.3, 0.6, 0.8},
		TargetVeryWet:  {0.6, 0.5, 0.5, 0.5, 0.4, 0.4, 0.4, 0.5, 0.6, 0.7, 0.7, 0.6},
	},
	zonePolar: {
		TargetVeryHot:  {0.01, 0.01, 0.01, 0.05, 0.1, 0.2, 0.25, 0.2, 0.1, 0.05, 0.01, 0.01},
		TargetVeryCold: {0.95, 0.9, 0.8, 0.6, 0.4, 0.2, 0.1, 0.2, 0.4, 0.7, 0.9, 0.95},
		TargetVeryWet:  {0.4, 0.4, 0.3, 0.3, 0.2, 0.2, 0.3, 0.4, 0.5, 0.5, 0.4, 0.4},
	},
}

// windPattern is zone-independent.
var windPattern = monthly{0.5, 0.5, 0.6, 0.6, 0.5, 0.4, 0.4, 0.4, 0.5, 0.6, 0.6, 0.5}

// zoneFor maps absolute latitude onto the coarse climate zone.
func zoneFor(lat float64) climateZone {
	abs := lat
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs > 60:
		return zonePolar
	case abs > 35:
		return zoneTemperate
	default:
		return zoneTropical
	}
}

// adjustMonth shifts the calendar month by six for southern-hemisphere
// locations so the seasonal patterns line up with local seasons.
func adjustMonth(month int, lat float64) int {
	if lat < 0 {
		return (month+5)%12 + 1
	}
	return month
}

// SeasonalOutlook returns the baseline probability and uncertainty band for
// each target at the given location and calendar month (1-12).
func SeasonalOutlook(lat float64, month int) map[string]types.DistributionBand {
	zone := zoneFor(lat)
	m := adjustMonth(month, lat) - 1

	patterns := zonePatterns[zone]
	hot := patterns[TargetVeryHot][m]
	wet := patterns[TargetVeryWet][m]

	uncomfortable := hot
	if zone != zoneTropical {
		uncomfortable = (hot + wet) / 2.5
	}

	values := map[string]float64{
		TargetVeryHot:           hot,
		TargetVeryCold:          patterns[TargetVeryCold][m],
		TargetVeryWet:           wet,
		TargetVeryWindy:         windPattern[m],
		TargetVeryUncomfortable: uncomfortable,
	}

	outlook := make(map[string]types.DistributionBand, len(values))
	for target, v := range values {
		mean := clamp(v, 0.01, 0.99)
		outlook[target] = types.DistributionBand{
			Mean: mean,
			// Wider band for higher baselines, bounded to [0.05, 0.15].
			StdDev: 0.05 + 0.1*mean,
		}
	}
	return outlook
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
