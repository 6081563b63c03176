package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"climarisk/internal/core"
	"climarisk/internal/models"
	"climarisk/internal/types"
)

// ModelCatalog is the read-only view of the loaded model registry the
// catalog endpoint needs. Defined locally so tests can inject a fake.
type ModelCatalog interface {
	Targets() []string
	FeatureNames() []string
	Metadata() models.Metadata
}

// ModelsHandler serves the model catalog endpoint. catalog is nil when the
// registry failed to load at startup; the endpoint then reports 503 so
// operators can distinguish "degraded" from "no such route".
type ModelsHandler struct {
	catalog ModelCatalog
	logger  *slog.Logger
}

// NewModelsHandler creates a new ModelsHandler. A nil catalog is valid and
// represents degraded mode.
func NewModelsHandler(catalog ModelCatalog, logger *slog.Logger) *ModelsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModelsHandler{catalog: catalog, logger: logger}
}

// RegisterRoutes mounts the model catalog endpoint onto the mux.
func (h *ModelsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/models", h.HandleGetModels)
}

// modelCatalogResponse is the JSON body of GET /v1/models.
type modelCatalogResponse struct {
	Targets      []string                            `json:"targets"`
	FeatureCount int                                 `json:"feature_count"`
	TrainedDate  string                              `json:"trained_date,omitempty"`
	Performance  map[string]models.TargetPerformance `json:"model_performance,omitempty"`
}

// HandleGetModels handles GET /v1/models. Returns the loaded targets, the
// feature schema size, and the training-time evaluation record.
func (h *ModelsHandler) HandleGetModels(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeModelsNotLoaded,
			"trained models are not loaded; service is running degraded",
			nil,
		))
		return
	}

	meta := h.catalog.Metadata()
	resp := modelCatalogResponse{
		Targets:      h.catalog.Targets(),
		FeatureCount: len(h.catalog.FeatureNames()),
		TrainedDate:  meta.TrainedDate,
		Performance:  meta.Performance,
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: resp})
}
