package core

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// healthCheckTimeout is the maximum time allowed for all health probes to
// complete. If any probe exceeds this deadline, the check reports unhealthy.
const healthCheckTimeout = 2 * time.Second

// HealthProbe defines the interface for a subsystem health check. Each probe
// represents a dependency that must be operational for the service to
// function correctly.
type HealthProbe interface {
	// Name returns a human-readable identifier for the probe.
	Name() string

	// Check performs the health check against the subsystem. It should
	// respect the context deadline and return an error if the subsystem is
	// unhealthy or unreachable.
	Check(ctx context.Context) error
}

// HealthProbes holds the registered subsystem checks. ModelsLoaded reports
// whether the trained model registry loaded at startup; when false the
// service answers prediction requests with 503 but the process itself is
// still alive, so the health endpoint reports "degraded" with status 200.
type healthState struct {
	Probes       []HealthProbe
	ModelsLoaded func() bool
}

// SetHealthState registers the health probes and degraded-mode reporter.
func (s *Server) SetHealthState(probes []HealthProbe, modelsLoaded func() bool) {
	s.health = healthState{Probes: probes, ModelsLoaded: modelsLoaded}
}

// componentStatus represents the health state of a single subsystem.
type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status       string                     `json:"status"`
	ModelsLoaded bool                       `json:"models_loaded"`
	Components   map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth executes all registered health probes concurrently with a
// short timeout. Returns 200 OK if all probes report healthy (the status
// field is "degraded" when the model registry is absent), 503 Service
// Unavailable if any probe fails or the global timeout is exceeded.
//
// This endpoint is public and is mounted at GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	modelsLoaded := true
	if s.health.ModelsLoaded != nil {
		modelsLoaded = s.health.ModelsLoaded()
	}

	okStatus := "healthy"
	if !modelsLoaded {
		okStatus = "degraded"
	}

	probes := s.health.Probes
	if len(probes) == 0 {
		JSON(w, r, http.StatusOK, healthResponse{Status: okStatus, ModelsLoaded: modelsLoaded})
		return
	}

	type probeResult struct {
		name string
		err  error
	}

	var (
		mu      sync.Mutex
		results = make([]probeResult, 0, len(probes))
		wg      sync.WaitGroup
	)

	for _, probe := range probes {
		wg.Add(1)
		go func(p HealthProbe) {
			defer wg.Done()

			var err error
			func() {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("probe panicked: %v", r)
					}
				}()
				err = p.Check(ctx)
			}()

			mu.Lock()
			results = append(results, probeResult{name: p.Name(), err: err})
			mu.Unlock()
		}(probe)
	}

	// Wait for all probes to complete or the context to expire.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		// Timeout expired before all probes completed. Build a partial
		// response; missing probes are marked as timed out.
	}

	mu.Lock()
	collected := make([]probeResult, len(results))
	copy(collected, results)
	mu.Unlock()

	completed := make(map[string]probeResult, len(collected))
	for _, r := range collected {
		completed[r.name] = r
	}

	components := make(map[string]componentStatus, len(probes))
	allHealthy := true

	for _, probe := range probes {
		name := probe.Name()
		if result, ok := completed[name]; ok {
			if result.err != nil {
				allHealthy = false
				components[name] = componentStatus{
					Status:  "unhealthy",
					Message: result.err.Error(),
				}
			} else {
				components[name] = componentStatus{Status: "healthy"}
			}
		} else {
			// Probe did not complete before the timeout.
			allHealthy = false
			components[name] = componentStatus{
				Status:  "unhealthy",
				Message: "health check timed out",
			}
		}
	}

	resp := healthResponse{
		ModelsLoaded: modelsLoaded,
		Components:   components,
	}

	if allHealthy {
		resp.Status = okStatus
		JSON(w, r, http.StatusOK, resp)
	} else {
		resp.Status = "unhealthy"
		JSON(w, r, http.StatusServiceUnavailable, resp)
	}
}
