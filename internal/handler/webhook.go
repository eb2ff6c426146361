package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/middleware"
	"github.com/jwalitptl/event-notify/internal/model"
	"github.com/jwalitptl/event-notify/internal/repository"
	webhooksvc "github.com/jwalitptl/event-notify/internal/service/webhook"
	"github.com/jwalitptl/event-notify/pkg/logger"
)

// WebhookHandler manages tenant webhook registrations. Secrets are returned
// exactly once, on creation and on rotation; reads never expose them.
type WebhookHandler struct {
	webhooks repository.WebhookRepository
	service  *webhooksvc.Service
	logger   *logger.Logger
}

func NewWebhookHandler(webhooks repository.WebhookRepository, service *webhooksvc.Service, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, service: service, logger: log}
}

func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("", h.CreateWebhook)
		webhooks.GET("", h.ListWebhooks)
		webhooks.POST("/:id/rotate", h.RotateSecret)
	}
}

type createWebhookRequest struct {
	URL       string `json:"url" binding:"required,url"`
	EventType string `json:"event_type" binding:"required"`
}

func (h *WebhookHandler) CreateWebhook(c *gin.Context) {
	var req createWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error()))
		return
	}

	secret, err := newSecret()
	if err != nil {
		h.logger.Error(err, "failed to generate webhook secret")
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to create webhook"))
		return
	}

	webhook := &model.Webhook{
		ID:         uuid.New(),
		BusinessID: c.MustGet(middleware.ContextTenantID).(uuid.UUID),
		URL:        req.URL,
		SecretKey:  secret,
		EventType:  req.EventType,
	}
	if err := h.webhooks.Create(c.Request.Context(), webhook); err != nil {
		h.logger.Error(err, "failed to create webhook", "business_id", webhook.BusinessID.String())
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to create webhook"))
		return
	}

	c.JSON(http.StatusCreated, NewSuccessResponse(gin.H{
		"webhook": webhook,
		"secret":  secret,
	}))
}

func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	businessID := c.MustGet(middleware.ContextTenantID).(uuid.UUID)
	webhooks, err := h.webhooks.GetByBusiness(c.Request.Context(), businessID)
	if err != nil {
		h.logger.Error(err, "failed to list webhooks", "business_id", businessID.String())
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to list webhooks"))
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(webhooks))
}

func (h *WebhookHandler) RotateSecret(c *gin.Context) {
	webhookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid webhook id"))
		return
	}

	secret, err := newSecret()
	if err != nil {
		h.logger.Error(err, "failed to generate webhook secret")
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to rotate secret"))
		return
	}

	err = h.service.RotateSecret(c.Request.Context(), webhookID, secret)
	if errors.Is(err, webhooksvc.ErrUnknownWebhook) || errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, NewErrorResponse("webhook not found"))
		return
	}
	if err != nil {
		h.logger.Error(err, "failed to rotate secret", "webhook_id", webhookID.String())
		c.JSON(http.StatusInternalServerError, NewErrorResponse("failed to rotate secret"))
		return
	}

	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{"secret": secret}))
}

func newSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
