package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/middleware"
	"github.com/jwalitptl/event-notify/internal/repository"
	"github.com/jwalitptl/event-notify/pkg/logger"
)

type AnalyticsHandler struct {
	analytics repository.AnalyticsRepository
	logger    *logger.Logger
}

func NewAnalyticsHandler(analytics repository.AnalyticsRepository, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: log}
}

func (h *AnalyticsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/analytics", h.ListAnalytics)
}

func (h *AnalyticsHandler) ListAnalytics(c *gin.Context) {
	businessID := c.MustGet(middleware.ContextTenantID).(uuid.UUID)
	records, err := h.analytics.GetByBusiness(c.Request.Context(), businessID)
	if err != nil {
		h.logger.Error(err, "failed to list analytics", "business_id", businessID.String())
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to list analytics"))
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(records))
}
