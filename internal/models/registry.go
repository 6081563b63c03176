package models

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"climarisk/internal/types"
)

// Artifact file names within the model directory. Each may also exist with a
// .gz suffix; the uncompressed variant wins when both are present.
const (
	metadataFile     = "metadata.json"
	featureNamesFile = "feature_names.json"
)

// TargetPerformance records the best model choice and its evaluation metrics
// for one target, as written by the training pipeline.
type TargetPerformance struct {
	BestModel string             `json:"best_model"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Metadata is the training run record naming the target set and the best
// model per target.
type Metadata struct {
	Targets      []string                     `json:"targets"`
	FeatureCount int                          `json:"feature_count"`
	TrainedDate  string                       `json:"trained_date"`
	Performance  map[string]TargetPerformance `json:"model_performance"`
}

// Registry holds the trained classifiers, their optional scalers, and the
// authoritative feature-name ordering. Loaded once at process start and
// immutable thereafter; a reload requires a process restart.
type Registry struct {
	metadata     Metadata
	featureNames []string
	models       map[string]*LinearModel
	scalers      map[string]*Scaler
}

// Load reads all model artifacts from dir. Missing metadata or feature-name
// list is a load failure; the caller decides whether to run degraded. A
// target whose model file is absent is skipped with a warning, but at least
// one target must load.
func Load(dir string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		models:  make(map[string]*LinearModel),
		scalers: make(map[string]*Scaler),
	}

	if err := readArtifact(dir, metadataFile, &r.metadata); err != nil {
		return nil, fmt.Errorf("loading model metadata: %w", err)
	}
	if len(r.metadata.Targets) == 0 {
		return nil, fmt.Errorf("model metadata names no targets")
	}

	if err := readArtifact(dir, featureNamesFile, &r.featureNames); err != nil {
		return nil, fmt.Errorf("loading feature names: %w", err)
	}
	if len(r.featureNames) == 0 {
		return nil, fmt.Errorf("feature name list is empty")
	}

	for _, target := range r.metadata.Targets {
		perf, ok := r.metadata.Performance[target]
		if !ok || perf.BestModel == "" {
			return nil, fmt.Errorf("metadata names no best model for target %q", target)
		}

		var model LinearModel
		modelName := fmt.Sprintf("%s_%s.json", target, perf.BestModel)
		if err := readArtifact(dir, modelName, &model); err != nil {
			if os.IsNotExist(err) {
				logger.Warn("model artifact missing, skipping target", "target", target, "file", modelName)
				continue
			}
			return nil, fmt.Errorf("loading model for target %q: %w", target, err)
		}
		r.models[target] = &model

		var scaler Scaler
		scalerName := fmt.Sprintf("%s_%s_scaler.json", target, perf.BestModel)
		err := readArtifact(dir, scalerName, &scaler)
		switch {
		case err == nil:
			r.scalers[target] = &scaler
		case os.IsNotExist(err):
			// Scaler is optional; the raw vector is used.
		default:
			return nil, fmt.Errorf("loading scaler for target %q: %w", target, err)
		}
	}

	if len(r.models) == 0 {
		return nil, fmt.Errorf("no model artifacts could be loaded from %s", dir)
	}

	logger.Info("model registry loaded",
		"targets", len(r.models),
		"features", len(r.featureNames),
		"trained", r.metadata.TrainedDate,
	)

	return r, nil
}

// Targets returns the targets with a loaded model, in metadata order.
func (r *Registry) Targets() []string {
	targets := make([]string, 0, len(r.models))
	for _, t := range r.metadata.Targets {
		if _, ok := r.models[t]; ok {
			targets = append(targets, t)
		}
	}
	return targets
}

// FeatureNames returns the authoritative ordered feature-name list. The
// returned slice is shared; callers must not mutate it.
func (r *Registry) FeatureNames() []string {
	return r.featureNames
}

// Metadata returns the training run record.
func (r *Registry) Metadata() Metadata {
	return r.metadata
}

// Performance returns the training-time evaluation record for a target.
func (r *Registry) Performance(target string) (TargetPerformance, bool) {
	perf, ok := r.metadata.Performance[target]
	return perf, ok
}

// PredictProbability runs the target's classifier on the assembled vector,
// applying the target's scaler transform first when one is registered.
func (r *Registry) PredictProbability(target string, vector []float64) (float64, error) {
	model, ok := r.models[target]
	if !ok {
		return 0, types.NewAppErrorWithDetails(
			types.ErrCodeInternalUnexpected,
			"no model loaded for target",
			nil,
			map[string]any{"target": target},
		)
	}

	x := vector
	if scaler, ok := r.scalers[target]; ok {
		scaled, err := scaler.Transform(vector)
		if err != nil {
			return 0, err
		}
		x = scaled
	}

	return model.PredictProbability(x)
}

// readArtifact decodes a JSON artifact from dir, transparently handling
// gzip-compressed variants. Lookup order: <name>, then <name>.gz. A missing
// artifact is reported with os.IsNotExist semantics.
func readArtifact(dir, name string, dst any) error {
	path := filepath.Join(dir, name)

	var reader io.ReadCloser
	f, err := os.Open(path)
	switch {
	case err == nil:
		reader = f
	case os.IsNotExist(err):
		gz, gzErr := os.Open(path + ".gz")
		if gzErr != nil {
			return gzErr
		}
		zr, zErr := gzip.NewReader(gz)
		if zErr != nil {
			gz.Close()
			return fmt.Errorf("opening gzip artifact %s: %w", name, zErr)
		}
		reader = &gzipArtifact{zr: zr, file: gz}
	default:
		return err
	}
	defer reader.Close()

	if err := json.NewDecoder(reader).Decode(dst); err != nil {
		return fmt.Errorf("decoding artifact %s: %w", name, err)
	}
	return nil
}

// gzipArtifact couples a gzip reader with its underlying file so both close
// together.
type gzipArtifact struct {
	zr   *gzip.Reader
	file *os.File
}

func (g *gzipArtifact) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g *gzipArtifact) Close() error {
	zErr := g.zr.Close()
	fErr := g.file.Close()
	if zErr != nil {
		return zErr
	}
	return fErr
}
