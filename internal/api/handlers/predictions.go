// Package handlers contains the HTTP handler implementations for the
// ClimaRisk API: extreme-weather prediction, multi-month forecasts, and the
// model catalog.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"climarisk/internal/core"
	"climarisk/internal/types"
)

// defaultForecastMonths is used when a forecast request omits the months
// field.
const defaultForecastMonths = 6

// PredictionServiceInterface defines the service contract for the prediction
// handler. Matches the prediction.Service methods but is defined locally to
// avoid tight coupling per the handler injection pattern.
type PredictionServiceInterface interface {
	Predict(ctx context.Context, loc types.Location, date time.Time) (*types.PredictionResult, error)
	Forecast(ctx context.Context, loc types.Location, months int) (*types.ForecastResult, error)
}

// PredictionHandler maps HTTP requests to prediction service methods.
type PredictionHandler struct {
	service   PredictionServiceInterface
	validator *core.Validator
	logger    *slog.Logger
}

// NewPredictionHandler creates a new PredictionHandler with the provided
// dependencies.
func NewPredictionHandler(
	svc PredictionServiceInterface,
	val *core.Validator,
	logger *slog.Logger,
) *PredictionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictionHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the prediction endpoints onto the mux.
func (h *PredictionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/predict", h.HandlePredict)
	r.Post("/forecast", h.HandleForecast)
}

// predictRequest is the body of POST /v1/predict. Coordinates are pointers so
// that an omitted field is distinguishable from a legitimate zero coordinate.
type predictRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	Date      string   `json:"date" validate:"required"`
}

// forecastRequest is the body of POST /v1/forecast.
type forecastRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	Months    int      `json:"months" validate:"omitempty,min=1,max=12"`
}

// HandlePredict handles POST /v1/predict.
//  1. Decode and validate the request body.
//  2. Parse the target date (YYYY-MM-DD).
//  3. Call the prediction service.
//  4. Return the structured result.
func (h *PredictionHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		core.Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidDate,
			"date must use the YYYY-MM-DD format",
			err,
			map[string]any{"date": req.Date},
		))
		return
	}

	loc := types.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}

	result, err := h.service.Predict(r.Context(), loc, date)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp := core.APIResponse{Data: result}
	if result.DataSource == types.DataSourceSeasonal {
		resp.Meta = &core.ResponseMeta{
			Warnings: []string{"weather providers unavailable; prediction uses the seasonal statistical model"},
		}
	}
	core.JSON(w, r, http.StatusOK, resp)
}

// HandleForecast handles POST /v1/forecast. Months defaults to 6 when
// omitted.
func (h *PredictionHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	months := req.Months
	if months == 0 {
		months = defaultForecastMonths
	}

	loc := types.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}

	result, err := h.service.Forecast(r.Context(), loc, months)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: result})
}
