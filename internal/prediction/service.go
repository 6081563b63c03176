// Package prediction orchestrates the per-request pipeline: route the target
// date to a data source, build the feature vector, run each target's
// classifier, and derive the overall risk level. Requests are independent and
// share only the immutable model registry, so the service is safe for
// concurrent use.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"climarisk/internal/features"
	"climarisk/internal/models"
	"climarisk/internal/observability"
	"climarisk/internal/types"
	"climarisk/internal/weather"
)

// ModelRegistry is the read-only contract the service needs from the loaded
// model artifacts. Defined locally so tests can inject a fake registry.
type ModelRegistry interface {
	Targets() []string
	FeatureNames() []string
	PredictProbability(target string, vector []float64) (float64, error)
	Performance(target string) (models.TargetPerformance, bool)
}

// Deps bundles the service dependencies. Registry may be nil, which puts the
// service in degraded mode: every prediction request fails with a
// service-unavailable error until the process restarts with valid artifacts.
type Deps struct {
	Registry   ModelRegistry
	Builder    *features.Builder
	Historical weather.HistoricalSource
	Live       weather.LiveSource
	Thresholds Thresholds
	Metrics    *observability.Metrics
	Clock      clockwork.Clock
	Logger     *slog.Logger

	LookbackDays    int
	LiveHorizonDays int
}

// Service executes prediction and multi-month forecast requests.
type Service struct {
	registry   ModelRegistry
	builder    *features.Builder
	historical weather.HistoricalSource
	live       weather.LiveSource
	thresholds Thresholds
	metrics    *observability.Metrics
	clock      clockwork.Clock
	logger     *slog.Logger

	lookbackDays    int
	liveHorizonDays int
}

// NewService constructs a Service from its dependencies, applying defaults
// for the clock and logger.
func NewService(deps Deps) *Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.LookbackDays <= 0 {
		deps.LookbackDays = 60
	}
	if deps.LiveHorizonDays <= 0 {
		deps.LiveHorizonDays = 5
	}
	return &Service{
		registry:        deps.Registry,
		builder:         deps.Builder,
		historical:      deps.Historical,
		live:            deps.Live,
		thresholds:      deps.Thresholds,
		metrics:         deps.Metrics,
		clock:           deps.Clock,
		logger:          deps.Logger,
		lookbackDays:    deps.LookbackDays,
		liveHorizonDays: deps.LiveHorizonDays,
	}
}

// ModelsLoaded reports whether the registry loaded at startup.
func (s *Service) ModelsLoaded() bool {
	return s.registry != nil
}

// Predict runs the full pipeline for one (location, date) request.
//
// Routing: target dates within the live horizon use the short-range forecast
// provider; all other dates use the historical window. Either provider
// failing is recoverable: the request falls back to the seasonal statistical
// model rather than surfacing the upstream error.
func (s *Service) Predict(ctx context.Context, loc types.Location, date time.Time) (*types.PredictionResult, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if !s.ModelsLoaded() {
		return nil, types.NewAppError(
			types.ErrCodeModelsNotLoaded,
			"trained models are not loaded; service is running degraded",
			nil,
		)
	}

	target := types.Day(date)
	daysAhead := s.daysAhead(target)

	if daysAhead >= 0 && daysAhead <= s.liveHorizonDays && s.live != nil {
		result, err := s.predictLive(ctx, loc, target)
		if err == nil {
			return result, nil
		}
		if !isUpstream(err) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "live forecast unavailable, using seasonal fallback", "error", err)
		return s.predictSeasonal(loc, target), nil
	}

	result, err := s.predictHistorical(ctx, loc, target)
	if err == nil {
		return result, nil
	}
	if !isUpstream(err) {
		return nil, err
	}
	s.logger.WarnContext(ctx, "historical window unavailable, using seasonal fallback", "error", err)
	return s.predictSeasonal(loc, target), nil
}

// Forecast produces a multi-month outlook, one entry per ~30 days. Entries
// are independent, so they are computed concurrently. The first entry may use
// the live path when it falls within the live horizon; later entries use the
// seasonal model with its distribution bands.
func (s *Service) Forecast(ctx context.Context, loc types.Location, months int) (*types.ForecastResult, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if months < 1 || months > 12 {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidHorizon,
			"forecast horizon must be between 1 and 12 months",
			nil,
			map[string]any{"months": months},
		)
	}
	if !s.ModelsLoaded() {
		return nil, types.NewAppError(
			types.ErrCodeModelsNotLoaded,
			"trained models are not loaded; service is running degraded",
			nil,
		)
	}

	start := types.Day(s.clock.Now())
	outlooks := make([]types.MonthOutlook, months)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < months; i++ {
		g.Go(func() error {
			date := start.AddDate(0, 0, i*30)
			outlook, err := s.monthOutlook(gctx, loc, date)
			if err != nil {
				return err
			}
			outlooks[i] = outlook
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &types.ForecastResult{Location: loc, Months: outlooks}, nil
}

// monthOutlook computes one entry of the multi-month forecast.
func (s *Service) monthOutlook(ctx context.Context, loc types.Location, date time.Time) (types.MonthOutlook, error) {
	daysAhead := s.daysAhead(date)

	if daysAhead >= 0 && daysAhead <= s.liveHorizonDays && s.live != nil {
		if result, err := s.predictLive(ctx, loc, date); err == nil {
			bands := make(map[string]types.DistributionBand, len(result.Predictions))
			for target, p := range result.Predictions {
				bands[target] = types.DistributionBand{Mean: p, StdDev: s.modelBand(target)}
			}
			return types.MonthOutlook{
				Month:       date.Format("2006-01"),
				Predictions: result.Predictions,
				Bands:       bands,
				RiskLevel:   result.RiskLevel,
				DataSource:  types.DataSourceLiveForecast,
			}, nil
		} else if !isUpstream(err) {
			return types.MonthOutlook{}, err
		}
		// Live failure falls through to the seasonal entry.
	}

	outlook := SeasonalOutlook(loc.Latitude, int(date.Month()))
	predictions := make(map[string]float64, len(outlook))
	for target, band := range outlook {
		predictions[target] = round4(band.Mean)
	}

	return types.MonthOutlook{
		Month:       date.Format("2006-01"),
		Predictions: predictions,
		Bands:       outlook,
		RiskLevel:   s.thresholds.Classify(predictions),
		DataSource:  types.DataSourceSeasonal,
	}, nil
}

// predictLive fetches the closest short-range forecast entry and runs the
// models on the single-point feature build.
func (s *Service) predictLive(ctx context.Context, loc types.Location, target time.Time) (*types.PredictionResult, error) {
	nearTerm, err := s.live.FetchNearTerm(ctx, loc, target)
	if err != nil {
		return nil, err
	}

	computed := s.builder.BuildFromSinglePoint(nearTerm.Observation, target)
	predictions, err := s.infer(computed)
	if err != nil {
		return nil, err
	}

	result := s.newResult(loc, target, predictions, types.DataSourceLiveForecast)
	result.SourceDetail = fmt.Sprintf(
		"closest forecast entry %s (%.1fh from target)",
		nearTerm.ForecastTime.Format(time.RFC3339),
		nearTerm.TimeDiff.Hours(),
	)
	return result, nil
}

// predictHistorical fetches the full observation window and runs the models
// on the complete feature build.
func (s *Service) predictHistorical(ctx context.Context, loc types.Location, target time.Time) (*types.PredictionResult, error) {
	window, err := s.historical.FetchWindow(ctx, loc, target, s.lookbackDays)
	if err != nil {
		return nil, err
	}

	computed := s.builder.BuildFromWindow(window, target)
	predictions, err := s.infer(computed)
	if err != nil {
		return nil, err
	}

	return s.newResult(loc, target, predictions, types.DataSourceHistorical), nil
}

// predictSeasonal produces the statistical fallback result. It never fails.
func (s *Service) predictSeasonal(loc types.Location, target time.Time) *types.PredictionResult {
	outlook := SeasonalOutlook(loc.Latitude, int(target.Month()))
	predictions := make(map[string]float64, len(outlook))
	for name, band := range outlook {
		predictions[name] = round4(band.Mean)
	}
	return s.newResult(loc, target, predictions, types.DataSourceSeasonal)
}

// infer assembles the computed features against the authoritative schema and
// runs every loaded target's classifier. Probabilities are rounded to four
// decimal places.
func (s *Service) infer(computed map[string]float64) (map[string]float64, error) {
	started := time.Now()

	vector := features.Assemble(computed, s.registry.FeatureNames())

	predictions := make(map[string]float64)
	for _, target := range s.registry.Targets() {
		p, err := s.registry.PredictProbability(target, vector)
		if err != nil {
			return nil, err
		}
		predictions[target] = round4(p)
	}

	if s.metrics != nil {
		s.metrics.InferenceDuration.Observe(time.Since(started).Seconds())
	}
	return predictions, nil
}

func (s *Service) newResult(loc types.Location, target time.Time, predictions map[string]float64, source types.DataSource) *types.PredictionResult {
	risk := s.thresholds.Classify(predictions)
	if s.metrics != nil {
		s.metrics.Predictions.WithLabelValues(string(source), string(risk)).Inc()
	}
	return &types.PredictionResult{
		Location:    loc,
		Date:        target.Format(time.DateOnly),
		Predictions: predictions,
		RiskLevel:   risk,
		ComputedAt:  s.clock.Now().UTC(),
		DataSource:  source,
	}
}

// modelBand derives an uncertainty band from the target's training metrics:
// better-verified models get tighter bands, bounded to [0.05, 0.25].
func (s *Service) modelBand(target string) float64 {
	perf, ok := s.registry.Performance(target)
	if !ok {
		return 0.15
	}
	rocAUC, ok := perf.Metrics["roc_auc"]
	if !ok {
		return 0.15
	}
	return (1-rocAUC)*0.2 + 0.05
}

// daysAhead returns the whole calendar days between now and the target date.
// Negative for past dates.
func (s *Service) daysAhead(target time.Time) int {
	now := types.Day(s.clock.Now())
	return int(types.Day(target).Sub(now).Hours() / 24)
}

// isUpstream reports whether the error is a recoverable provider failure
// eligible for the seasonal fallback.
func isUpstream(err error) bool {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == types.ErrCodeUpstreamWeather || appErr.Code == types.ErrCodeUpstreamRateLimited
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
