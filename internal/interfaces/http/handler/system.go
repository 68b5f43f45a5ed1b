package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/commerceops/backend/internal/interfaces/http/dto"
)

// SystemHandler handles liveness and system information endpoints.
type SystemHandler struct {
	name      string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name string) *SystemHandler {
	return &SystemHandler{
		name:      name,
		startTime: time.Now(),
	}
}

// RegisterRoutes implements router.RouteRegistrar.
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/healthz", h.Health)
	rg.GET("/system/info", h.GetSystemInfo)
}

// HealthResponse represents the liveness response
type HealthResponse struct {
	Status    string `json:"status" example:"ok"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Health reports process liveness.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}))
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string `json:"name" example:"commerceops-backend"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo returns basic system information including version and uptime.
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}
