// Package handler provides HTTP handlers for the Tidewise API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/tidewise/tidewise/internal/api/models"
	"github.com/tidewise/tidewise/internal/api/response"
	"github.com/tidewise/tidewise/internal/resilience"
)

// readinessTimeout bounds dependency checks made by the readiness and status endpoints.
const readinessTimeout = 2 * time.Second

// Pinger checks that a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	catalog   Pinger
	breakers  *resilience.Registry
	now       func() time.Time
}

// NewOpsHandler creates a new OpsHandler. catalog and breakers may be nil.
func NewOpsHandler(version, buildTime string, catalog Pinger, breakers *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		catalog:   catalog,
		breakers:  breakers,
		now:       time.Now,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready - ready once the catalog store
// answers.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingCatalog(r.Context()); err != nil {
		response.JSON(w, r, http.StatusServiceUnavailable, models.Health{
			Status:  models.HealthStatusFail,
			Time:    models.Timestamp(h.now()),
			Details: map[string]any{"catalog": err.Error()},
		})
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.now()),
	})
}

// SystemStatus handles GET /v1/ops/status - subsystem and circuit breaker status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	overall := models.HealthStatusOK

	catalog := models.SubsystemStatus{Name: "catalog", Status: models.HealthStatusOK}
	if err := h.pingCatalog(r.Context()); err != nil {
		detail := err.Error()
		catalog.Status = models.HealthStatusFail
		catalog.Detail = &detail
		overall = models.HealthStatusFail
	}

	breakers := []models.BreakerStatus{}
	if h.breakers != nil {
		for _, b := range h.breakers.Health() {
			status := models.HealthStatusOK
			switch {
			case b.IsHealthy():
			case b.IsDegraded():
				status = models.HealthStatusDegraded
			default:
				status = models.HealthStatusFail
			}
			if status != models.HealthStatusOK && overall == models.HealthStatusOK {
				overall = models.HealthStatusDegraded
			}
			breakers = append(breakers, models.BreakerStatus{
				Name:                b.Name,
				State:               b.CircuitState.String(),
				Status:              status,
				ConsecutiveFailures: b.Counts.ConsecutiveFailures,
			})
		}
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:     overall,
		Time:       models.Timestamp(h.now()),
		Subsystems: []models.SubsystemStatus{catalog},
		Breakers:   breakers,
	})
}

func (h *OpsHandler) pingCatalog(ctx context.Context) error {
	if h.catalog == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return h.catalog.Ping(ctx)
}
