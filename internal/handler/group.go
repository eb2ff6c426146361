package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/middleware"
	"github.com/jwalitptl/event-notify/internal/repository"
	"github.com/jwalitptl/event-notify/pkg/logger"
)

// GroupHandler lists a tenant's subscriber groups so targeting rules can be
// authored against real group ids.
type GroupHandler struct {
	users  repository.UserRepository
	logger *logger.Logger
}

func NewGroupHandler(users repository.UserRepository, log *logger.Logger) *GroupHandler {
	return &GroupHandler{users: users, logger: log}
}

func (h *GroupHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/groups", h.ListGroups)
}

func (h *GroupHandler) ListGroups(c *gin.Context) {
	businessID := c.MustGet(middleware.ContextTenantID).(uuid.UUID)
	groups, err := h.users.ListGroups(c.Request.Context(), businessID)
	if err != nil {
		h.logger.Error(err, "failed to list groups", "business_id", businessID.String())
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to list groups"))
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(groups))
}
