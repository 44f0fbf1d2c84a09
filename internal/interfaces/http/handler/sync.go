package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appenrich "github.com/ordersync/backend/internal/application/enrich"
	appsync "github.com/ordersync/backend/internal/application/sync"
	"github.com/ordersync/backend/internal/domain/ingest"
	"github.com/ordersync/backend/internal/interfaces/http/dto"
)

// getTenantID extracts the tenant from the X-Tenant-ID header, falling back
// to the development tenant when absent.
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	tenantIDStr := c.GetHeader("X-Tenant-ID")
	if tenantIDStr == "" {
		return uuid.MustParse("00000000-0000-0000-0000-000000000001"), nil
	}
	return uuid.Parse(tenantIDStr)
}

// SyncHandler exposes the sync and enrichment entry points over HTTP.
type SyncHandler struct {
	orchestrator *appsync.Orchestrator
	drainer      *appenrich.Drainer
	logger       *zap.Logger
}

// NewSyncHandler creates a sync handler
func NewSyncHandler(orchestrator *appsync.Orchestrator, drainer *appenrich.Drainer, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		orchestrator: orchestrator,
		drainer:      drainer,
		logger:       logger,
	}
}

// RegisterRoutes registers sync routes on the API group
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/orders", h.SyncOrders)
		sync.POST("/products", h.SyncProducts)
	}
	enrichment := rg.Group("/enrichment")
	{
		enrichment.POST("/drain", h.DrainEnrichment)
	}
}

type syncRequest struct {
	Mode string `json:"mode" binding:"omitempty,oneof=incremental full"`
}

func (r *syncRequest) mode() appsync.Mode {
	if r.Mode == string(appsync.ModeFull) {
		return appsync.ModeFull
	}
	return appsync.ModeIncremental
}

// SyncOrders triggers an order sync run for the caller's tenant
func (h *SyncHandler) SyncOrders(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "invalid tenant id"))
		return
	}

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, err.Error()))
		return
	}

	progress := h.logProgress("order sync")
	stats, err := h.orchestrator.RunOrders(c.Request.Context(), tenantID, req.mode(), progress)
	if err != nil {
		h.syncError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(stats))
}

// SyncProducts triggers a product sync run for the caller's tenant
func (h *SyncHandler) SyncProducts(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, "invalid tenant id"))
		return
	}

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, err.Error()))
		return
	}

	progress := h.logProgress("product sync")
	stats, err := h.orchestrator.RunProducts(c.Request.Context(), tenantID, req.mode(), progress)
	if err != nil {
		h.syncError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(stats))
}

// DrainEnrichment processes the queued enrichment tasks
func (h *SyncHandler) DrainEnrichment(c *gin.Context) {
	stats, err := h.drainer.Drain(c.Request.Context())
	if err != nil {
		h.logger.Error("Enrichment drain failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "enrichment drain failed"))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(stats))
}

// logProgress reports sync progress to the log. The callback contract is
// fire-and-forget: it can never fail the run.
func (h *SyncHandler) logProgress(label string) appsync.ProgressFunc {
	return func(percent int, message string, stats *appsync.ProgressStats) {
		fields := []zap.Field{
			zap.Int("percent", percent),
			zap.String("message", message),
		}
		if stats != nil {
			fields = append(fields,
				zap.Duration("elapsed", stats.Elapsed),
				zap.Float64("rate", stats.Rate),
			)
		}
		h.logger.Info(label+" progress", fields...)
	}
}

func (h *SyncHandler) syncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ingest.ErrMarketplaceNotConfigured):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, err.Error()))
	case errors.Is(err, ingest.ErrMarketplaceUnavailable):
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse(dto.ErrCodeUpstream, err.Error()))
	case errors.Is(err, ingest.ErrMarketplaceRequestFailed):
		c.JSON(http.StatusBadGateway, dto.NewErrorResponse(dto.ErrCodeUpstream, err.Error()))
	default:
		h.logger.Error("Sync run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "sync run failed"))
	}
}
