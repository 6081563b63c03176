// Package features implements the deterministic feature-engineering pipeline
// that turns a target date and an observation window into the exact numeric
// vector the trained classifiers expect: temporal encodings, lag features,
// rolling-window statistics, trend deltas, interaction terms, and the final
// schema reconciliation.
//
// Feature names and defaulting rules are part of the model compatibility
// contract: the same inputs must always yield the same vector.
package features

import (
	"math"
	"time"
)

// Temporal encodes a calendar date into its temporal features: calendar
// fields, a weekend flag, a coarse season index, and cyclical sine/cosine
// encodings of day-of-year and month. Pure and total.
func Temporal(date time.Time) map[string]float64 {
	doy := float64(date.YearDay())
	month := float64(int(date.Month()))

	// Day-of-week with Monday=0..Sunday=6; the weekend flag covers
	// Saturday and Sunday.
	dow := float64((int(date.Weekday()) + 6) % 7)
	isWeekend := 0.0
	if dow >= 5 {
		isWeekend = 1.0
	}

	f := map[string]float64{
		"day_of_year": doy,
		"month":       month,
		"day_of_week": dow,
		"is_weekend":  isWeekend,
		"year":        float64(date.Year()),
		"season":      float64((int(date.Month())%12 + 3) / 3),
	}

	f["day_of_year_sin"] = math.Sin(2 * math.Pi * doy / 365.25)
	f["day_of_year_cos"] = math.Cos(2 * math.Pi * doy / 365.25)
	f["month_sin"] = math.Sin(2 * math.Pi * month / 12)
	f["month_cos"] = math.Cos(2 * math.Pi * month / 12)

	return f
}
