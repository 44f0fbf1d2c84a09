package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ordersync/backend/internal/infrastructure/persistence"
)

// HealthHandler reports process and dependency health.
type HealthHandler struct {
	db *persistence.Database
}

// NewHealthHandler creates a health handler
func NewHealthHandler(db *persistence.Database) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health reports liveness plus database reachability
func (h *HealthHandler) Health(c *gin.Context) {
	status := "ok"
	code := http.StatusOK
	if err := h.db.Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status})
}
