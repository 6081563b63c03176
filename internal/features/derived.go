package features

import (
	"fmt"
	"math"
	"time"

	"climarisk/internal/types"
)

// Builder computes the derived feature groups for a target date. Lag
// distances and rolling window sizes are configuration because they mirror
// the offsets the models were trained with.
type Builder struct {
	LagDays        []int
	RollingWindows []int
}

// NewBuilder creates a Builder with the given lag distances and rolling
// window sizes (in days).
func NewBuilder(lagDays, rollingWindows []int) *Builder {
	return &Builder{
		LagDays:        lagDays,
		RollingWindows: rollingWindows,
	}
}

// BuildFromWindow computes the full feature union for a target date from a
// historical observation window: temporal encodings, current-day values, lag
// features, rolling statistics, trend deltas, and interaction terms.
func (b *Builder) BuildFromWindow(w *types.ObservationWindow, target time.Time) map[string]float64 {
	target = types.Day(target)

	all := Temporal(target)
	merge(all, b.currentDay(w, target))
	merge(all, b.lags(w, target))
	merge(all, b.rolling(w, target))
	merge(all, b.trends(w, target))

	if obs, ok := w.At(target); ok {
		merge(all, Interactions(obs))
	}

	return all
}

// BuildFromSinglePoint computes the feature union for the near-term path,
// where only a single forecast-derived observation is available. Lag and
// rolling features are backfilled from that single point: every lag takes the
// current value, rolling mean/max/min take the current value, and rolling
// standard deviation is zero.
func (b *Builder) BuildFromSinglePoint(obs types.Observation, target time.Time) map[string]float64 {
	target = types.Day(target)

	all := Temporal(target)
	for _, ch := range types.CanonicalChannels() {
		if v, ok := obs.Value(ch); ok {
			all[string(ch)] = v
		}
	}
	merge(all, Interactions(obs))

	for _, ch := range types.CanonicalChannels() {
		v := obs.Channels[ch] // zero when absent, by design of the backfill
		for _, lag := range b.LagDays {
			all[fmt.Sprintf("%s_lag_%d", ch, lag)] = v
		}
		for _, window := range b.RollingWindows {
			all[fmt.Sprintf("%s_rolling_mean_%d", ch, window)] = v
			all[fmt.Sprintf("%s_rolling_std_%d", ch, window)] = 0
			all[fmt.Sprintf("%s_rolling_max_%d", ch, window)] = v
			all[fmt.Sprintf("%s_rolling_min_%d", ch, window)] = v
		}
	}

	return all
}

// currentDay passes through the target date's own channel readings, when
// present.
func (b *Builder) currentDay(w *types.ObservationWindow, target time.Time) map[string]float64 {
	f := make(map[string]float64)
	obs, ok := w.At(target)
	if !ok {
		return f
	}
	for _, ch := range types.CanonicalChannels() {
		if v, present := obs.Value(ch); present {
			f[string(ch)] = v
		}
	}
	return f
}

// lags emits <ch>_lag_<n> for each configured lag distance. A missing
// reference date, or a missing channel on that date, defaults to 0. Channels
// the provider never returned are skipped entirely; they are filled at
// assembly instead.
func (b *Builder) lags(w *types.ObservationWindow, target time.Time) map[string]float64 {
	f := make(map[string]float64)
	for _, ch := range types.CanonicalChannels() {
		if !channelPresent(w, ch) {
			continue
		}
		for _, lag := range b.LagDays {
			lagDate := target.AddDate(0, 0, -lag)
			v, ok := w.Value(lagDate, ch)
			if !ok {
				v = 0
			}
			f[fmt.Sprintf("%s_lag_%d", ch, lag)] = v
		}
	}
	return f
}

// rolling aggregates channel values strictly within [target-window, target)
// into mean, standard deviation, max, and min. The target date itself is
// excluded. An empty interval defaults all four to 0; the standard deviation
// of fewer than two points is 0.
func (b *Builder) rolling(w *types.ObservationWindow, target time.Time) map[string]float64 {
	f := make(map[string]float64)
	for _, ch := range types.CanonicalChannels() {
		if !channelPresent(w, ch) {
			continue
		}
		for _, window := range b.RollingWindows {
			start := target.AddDate(0, 0, -window)

			var values []float64
			for _, obs := range w.Rows() {
				if obs.Date.Before(start) || !obs.Date.Before(target) {
					continue
				}
				if v, ok := obs.Value(ch); ok {
					values = append(values, v)
				}
			}

			mean, std, maxV, minV := summarize(values)
			f[fmt.Sprintf("%s_rolling_mean_%d", ch, window)] = mean
			f[fmt.Sprintf("%s_rolling_std_%d", ch, window)] = std
			f[fmt.Sprintf("%s_rolling_max_%d", ch, window)] = maxV
			f[fmt.Sprintf("%s_rolling_min_%d", ch, window)] = minV
		}
	}
	return f
}

// trends emits 1-day and 7-day absolute changes and the 1-day percentage
// change. The group is empty when the window has no row for the target date;
// individual features default to 0 when a reference date is missing, and the
// percentage change guards against division by zero.
func (b *Builder) trends(w *types.ObservationWindow, target time.Time) map[string]float64 {
	f := make(map[string]float64)
	targetObs, ok := w.At(target)
	if !ok {
		return f
	}

	for _, ch := range types.CanonicalChannels() {
		if !channelPresent(w, ch) {
			continue
		}
		current, hasCurrent := targetObs.Value(ch)

		change1 := 0.0
		pct1 := 0.0
		if prev, okPrev := w.Value(target.AddDate(0, 0, -1), ch); okPrev && hasCurrent {
			change1 = current - prev
			if prev != 0 {
				pct1 = (current - prev) / prev
			}
		}
		f[fmt.Sprintf("%s_change_1d", ch)] = change1
		f[fmt.Sprintf("%s_pct_change_1d", ch)] = pct1

		change7 := 0.0
		if prev, okPrev := w.Value(target.AddDate(0, 0, -7), ch); okPrev && hasCurrent {
			change7 = current - prev
		}
		f[fmt.Sprintf("%s_change_7d", ch)] = change7
	}
	return f
}

// Interactions computes the cross-variable terms from a single observation.
// Each term is emitted only when its inputs are present; omission is resolved
// later at assembly.
//
// The heat index uses the Fahrenheit-calibrated approximation applied
// directly to the supplied temperature unit. The trained models learned this
// exact formula, so it must not be corrected to a unit-aware variant.
func Interactions(obs types.Observation) map[string]float64 {
	f := make(map[string]float64)

	t, hasTemp := obs.Value(types.ChannelTemp)
	rh, hasHumidity := obs.Value(types.ChannelHumidity)

	if hasTemp && hasHumidity {
		f["temp_humidity_interaction"] = t * rh
		f["heat_index"] = t + 0.5*(t+61.0+(t-68.0)*1.2+rh*0.094)
	}

	if ws, ok := obs.Value(types.ChannelWindSpeed); ok {
		if precip, okP := obs.Value(types.ChannelPrecip); okP {
			f["wind_precip_interaction"] = ws * precip
		}
	}

	if tmax, ok := obs.Value(types.ChannelTempMax); ok {
		if tmin, okMin := obs.Value(types.ChannelTempMin); okMin {
			f["temp_range"] = tmax - tmin
		}
	}

	return f
}

// channelPresent reports whether any row in the window carries the channel.
func channelPresent(w *types.ObservationWindow, ch types.Channel) bool {
	for _, obs := range w.Rows() {
		if _, ok := obs.Value(ch); ok {
			return true
		}
	}
	return false
}

// summarize computes mean, sample standard deviation, max, and min of the
// values. Empty input yields all zeros; a single value yields zero deviation.
func summarize(values []float64) (mean, std, maxV, minV float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sum := 0.0
	maxV = values[0]
	minV = values[0]
	for _, v := range values {
		sum += v
		if v > maxV {
			maxV = v
		}
		if v < minV {
			minV = v
		}
	}
	mean = sum / float64(len(values))

	if len(values) > 1 {
		var ss float64
		for _, v := range values {
			d := v - mean
			ss += d * d
		}
		std = math.Sqrt(ss / float64(len(values)-1))
	}

	return mean, std, maxV, minV
}

func merge(dst, src map[string]float64) {
	for k, v := range src {
		dst[k] = v
	}
}
