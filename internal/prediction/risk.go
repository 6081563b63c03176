package prediction

import "climarisk/internal/types"

// Thresholds are the ascending probability cut-offs that map the maximum
// per-target probability onto a risk level. They come from deployment
// configuration; validation of the ascending order happens at config load.
type Thresholds struct {
	Low      float64
	Moderate float64
	High     float64
	Extreme  float64
}

// DefaultThresholds returns the documented default calibration for raw
// (undivided) model probabilities.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 0.2, Moderate: 0.4, High: 0.6, Extreme: 0.8}
}

// Classify derives the risk level from the maximum probability across
// targets. An empty prediction map classifies as MINIMAL. The mapping is
// monotonic: a higher maximum probability never yields a lower level.
func (t Thresholds) Classify(predictions map[string]float64) types.RiskLevel {
	maxProb := 0.0
	first := true
	for _, p := range predictions {
		if first || p > maxProb {
			maxProb = p
			first = false
		}
	}
	if first {
		return types.RiskMinimal
	}

	switch {
	case maxProb >= t.Extreme:
		return types.RiskExtreme
	case maxProb >= t.High:
		return types.RiskHigh
	case maxProb >= t.Moderate:
		return types.RiskModerate
	case maxProb >= t.Low:
		return types.RiskLow
	default:
		return types.RiskMinimal
	}
}
