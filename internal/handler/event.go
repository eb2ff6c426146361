package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/cache"
	"github.com/jwalitptl/event-notify/internal/middleware"
	"github.com/jwalitptl/event-notify/internal/model"
	"github.com/jwalitptl/event-notify/internal/repository"
	"github.com/jwalitptl/event-notify/pkg/logger"
)

const (
	upcomingKeyPrefix = "events:upcoming:"
	upcomingLimit     = 5
)

// EventHandler exposes the tenant-facing scheduling API.
type EventHandler struct {
	events repository.EventRepository
	cache  cache.Store
	logger *logger.Logger
}

func NewEventHandler(events repository.EventRepository, store cache.Store, log *logger.Logger) *EventHandler {
	return &EventHandler{events: events, cache: store, logger: log}
}

func (h *EventHandler) RegisterRoutes(r *gin.RouterGroup) {
	events := r.Group("/events")
	{
		events.POST("", h.CreateEvent)
		events.GET("", h.ListEvents)
		events.GET("/upcoming", h.ListUpcomingEvents)
	}
}

type createEventRequest struct {
	Title       string             `json:"title" binding:"required"`
	Description string             `json:"description"`
	ScheduledAt time.Time          `json:"scheduled_at" binding:"required"`
	TargetRules *model.TargetRules `json:"target_rules"`
	Recurrence  *string            `json:"recurrence" binding:"omitempty,oneof=daily weekly monthly"`
}

func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req createEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}

	event := &model.Event{
		ID:          uuid.New(),
		BusinessID:  c.MustGet(middleware.ContextTenantID).(uuid.UUID),
		Title:       req.Title,
		Description: req.Description,
		ScheduledAt: req.ScheduledAt.UTC(),
		CreatedAt:   time.Now().UTC(),
	}
	if req.TargetRules != nil {
		doc, err := json.Marshal(req.TargetRules)
		if err != nil {
			c.JSON(http.StatusBadRequest, NewErrorResponse("invalid target rules"))
			return
		}
		event.TargetRules = doc
	}
	if req.Recurrence != nil {
		recurrence := model.RecurrenceType(*req.Recurrence)
		event.Recurrence = &recurrence
	}

	if err := h.events.Create(c.Request.Context(), event); err != nil {
		h.logger.Error(err, "failed to create event", "business_id", event.BusinessID.String())
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to create event"))
		return
	}
	c.JSON(http.StatusCreated, NewSuccessResponse(event))
}

func (h *EventHandler) ListEvents(c *gin.Context) {
	businessID := c.MustGet(middleware.ContextTenantID).(uuid.UUID)
	events, err := h.events.GetByBusiness(c.Request.Context(), businessID)
	if err != nil {
		h.logger.Error(err, "failed to list events", "business_id", businessID.String())
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to list events"))
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(events))
}

// ListUpcomingEvents serves from the prefetched cache when warm and falls
// back to the repository on a cold key.
func (h *EventHandler) ListUpcomingEvents(c *gin.Context) {
	businessID := c.MustGet(middleware.ContextTenantID).(uuid.UUID)

	var cached []*model.Event
	found, err := h.cache.Get(c.Request.Context(), upcomingKeyPrefix+businessID.String(), &cached)
	if err != nil {
		h.logger.Error(err, "upcoming events cache read failed", "business_id", businessID.String())
	}
	if found {
		c.JSON(http.StatusOK, NewSuccessResponse(cached))
		return
	}

	upcoming, err := h.events.GetUpcomingByBusiness(c.Request.Context(), businessID, time.Now().UTC(), upcomingLimit)
	if err != nil {
		h.logger.Error(err, "failed to list upcoming events", "business_id", businessID.String())
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to list upcoming events"))
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(upcoming))
}
