package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/anasy333/krishisat-gateway/pkg/response"
)

// HealthChecker probes a backing dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version string
	box     HealthChecker
}

// NewHealthHandler creates the health handler; box is the session backend
// probe.
func NewHealthHandler(version string, box HealthChecker) *HealthHandler {
	return &HealthHandler{version: version, box: box}
}

// Health is the liveness probe
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready is the readiness probe; it fails when the session box backend is
// unreachable, since every request resolves the box.
// GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.box.HealthCheck(c.Request.Context()); err != nil {
		response.Error(c, http.StatusServiceUnavailable, "NOT_READY",
			"Session backend unreachable", err.Error())
		return
	}
	response.Success(c, gin.H{"status": "ready"})
}
