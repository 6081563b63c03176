// Package models loads and serves the trained per-target classifiers. The
// artifacts are produced by the offline training pipeline as JSON documents
// (optionally gzip-compressed): a metadata record naming targets and the best
// model per target, the authoritative ordered feature-name list, and one
// coefficient file (plus optional scaler file) per target.
package models

import (
	"math"

	"climarisk/internal/types"
)

// LinearModel is a binary logistic-regression classifier exported from the
// training pipeline as raw coefficients. PredictProbability reproduces the
// trained model's probability output exactly given the same feature vector.
type LinearModel struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// PredictProbability returns the positive-class probability for the feature
// vector, in [0, 1]. The vector length must match the coefficient count.
func (m *LinearModel) PredictProbability(vector []float64) (float64, error) {
	if len(vector) != len(m.Coefficients) {
		return 0, types.NewAppErrorWithDetails(
			types.ErrCodeInternalSchemaMismatch,
			"feature vector length does not match model coefficients",
			nil,
			map[string]any{"vector_len": len(vector), "coefficients_len": len(m.Coefficients)},
		)
	}

	z := m.Intercept
	for i, v := range vector {
		z += m.Coefficients[i] * v
	}

	p := 1 / (1 + math.Exp(-z))
	// Guard against float drift at the extremes.
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p, nil
}

// Scaler is a standard scaler exported from the training pipeline. Transform
// must be applied before inference for targets that were trained on scaled
// inputs.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform returns (x - mean) / scale element-wise. A zero scale entry
// passes the centered value through unscaled, matching the training-side
// behavior for constant features.
func (s *Scaler) Transform(vector []float64) ([]float64, error) {
	if len(vector) != len(s.Mean) || len(vector) != len(s.Scale) {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeInternalSchemaMismatch,
			"feature vector length does not match scaler parameters",
			nil,
			map[string]any{"vector_len": len(vector), "scaler_len": len(s.Mean)},
		)
	}

	out := make([]float64, len(vector))
	for i, v := range vector {
		centered := v - s.Mean[i]
		if s.Scale[i] != 0 {
			out[i] = centered / s.Scale[i]
		} else {
			out[i] = centered
		}
	}
	return out, nil
}
