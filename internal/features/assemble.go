package features

import "math"

// Assemble reconciles a computed feature union against the authoritative
// ordered feature-name list, producing the exact input vector a trained model
// expects:
//
//   - schema names absent from the union are filled with 0;
//   - computed features not in the schema are dropped;
//   - the output order strictly matches the schema order.
//
// Non-finite computed values (NaN, ±Inf) are treated as missing and filled
// with 0 so the model never sees them. Deterministic and idempotent: the same
// union and schema always produce the same vector.
func Assemble(computed map[string]float64, schema []string) []float64 {
	vector := make([]float64, len(schema))
	for i, name := range schema {
		v, ok := computed[name]
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		vector[i] = v
	}
	return vector
}
