package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/commerceops/backend/internal/domain/integration"
	"github.com/commerceops/backend/internal/infrastructure/marketplace"
	"github.com/commerceops/backend/internal/interfaces/http/dto"
)

// MarketplaceHandler exposes the marketplace client's operational state:
// registered modules, their catalog policies and the live rate-limit buckets.
type MarketplaceHandler struct {
	catalog    *marketplace.Catalog
	registry   *marketplace.Registry
	dispatcher *marketplace.Dispatcher
}

// NewMarketplaceHandler creates a new MarketplaceHandler
func NewMarketplaceHandler(catalog *marketplace.Catalog, registry *marketplace.Registry, dispatcher *marketplace.Dispatcher) *MarketplaceHandler {
	return &MarketplaceHandler{
		catalog:    catalog,
		registry:   registry,
		dispatcher: dispatcher,
	}
}

// RegisterRoutes implements router.RouteRegistrar.
func (h *MarketplaceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/marketplace")
	group.GET("/modules", h.ListModules)
	group.GET("/modules/:id", h.GetModule)
	group.GET("/limits", h.ListLimits)
}

// ModuleStatusResponse describes one registered module.
type ModuleStatusResponse struct {
	ID           string                      `json:"id"`
	DisplayName  string                      `json:"display_name"`
	Version      string                      `json:"version"`
	Dependencies []string                    `json:"dependencies,omitempty"`
	RateLimit    RateLimitResponse           `json:"rate_limit"`
	Bucket       *marketplace.BucketSnapshot `json:"bucket,omitempty"`
}

// RateLimitResponse is the catalog policy of a module.
type RateLimitResponse struct {
	RestoreRatePerSecond float64 `json:"restore_rate_per_second"`
	BurstCapacity        int     `json:"burst_capacity"`
	MaximumRequestQuota  int64   `json:"maximum_request_quota,omitempty"`
}

// ListModules returns every registered module with its policy and the live
// bucket state when the module has already issued calls.
func (h *MarketplaceHandler) ListModules(c *gin.Context) {
	buckets := h.bucketIndex()

	ids := h.registry.List()
	out := make([]ModuleStatusResponse, 0, len(ids))
	for _, id := range ids {
		status, err := h.moduleStatus(id, buckets)
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("UNKNOWN", err.Error()))
			return
		}
		out = append(out, status)
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(out))
}

// GetModule returns one registered module by id.
func (h *MarketplaceHandler) GetModule(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.registry.Get(id); err != nil {
		if errors.Is(err, integration.ErrUnknownModule) {
			c.JSON(http.StatusNotFound, dto.NewErrorResponse("NOT_FOUND", "module not registered: "+id))
			return
		}
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("UNKNOWN", err.Error()))
		return
	}

	status, err := h.moduleStatus(id, h.bucketIndex())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse("UNKNOWN", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(status))
}

// ListLimits returns the live bucket snapshots of every module that has
// issued at least one call.
func (h *MarketplaceHandler) ListLimits(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(h.dispatcher.Snapshots()))
}

func (h *MarketplaceHandler) moduleStatus(id string, buckets map[string]marketplace.BucketSnapshot) (ModuleStatusResponse, error) {
	m, err := h.registry.Get(id)
	if err != nil {
		return ModuleStatusResponse{}, err
	}
	def, err := h.catalog.Get(id)
	if err != nil {
		return ModuleStatusResponse{}, err
	}

	status := ModuleStatusResponse{
		ID:           id,
		DisplayName:  def.DisplayName,
		Version:      m.Version(),
		Dependencies: def.Dependencies,
		RateLimit: RateLimitResponse{
			RestoreRatePerSecond: def.RateLimit.RestoreRatePerSecond,
			BurstCapacity:        def.RateLimit.BurstCapacity,
			MaximumRequestQuota:  def.RateLimit.MaximumRequestQuota,
		},
	}
	if snap, ok := buckets[id]; ok {
		status.Bucket = &snap
	}
	return status, nil
}

func (h *MarketplaceHandler) bucketIndex() map[string]marketplace.BucketSnapshot {
	snaps := h.dispatcher.Snapshots()
	out := make(map[string]marketplace.BucketSnapshot, len(snaps))
	for _, s := range snaps {
		out[s.ModuleID] = s
	}
	return out
}
