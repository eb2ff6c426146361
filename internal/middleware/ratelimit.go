package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/event-notify/internal/model"
	"github.com/jwalitptl/event-notify/internal/ratelimit"
	"github.com/jwalitptl/event-notify/internal/repository"
	apperrors "github.com/jwalitptl/event-notify/pkg/errors"
	"github.com/jwalitptl/event-notify/pkg/logger"
	"github.com/jwalitptl/event-notify/pkg/metrics"
)

const (
	HeaderXTenantID = "X-Tenant-ID"
	ContextTenantID = "tenant_id"
	ContextBusiness = "business"
)

// TenantRateLimiter enforces per-tenant fixed-window quotas. Limits come from
// the tenant's plan; zero plan values fall back to the configured defaults.
type TenantRateLimiter struct {
	store      ratelimit.Store
	businesses repository.BusinessRepository
	logger     *logger.Logger
	metrics    *metrics.Metrics

	defaultPerMinute int
	defaultPerHour   int
}

func NewTenantRateLimiter(store ratelimit.Store, businesses repository.BusinessRepository,
	log *logger.Logger, m *metrics.Metrics, defaultPerMinute, defaultPerHour int) *TenantRateLimiter {
	if defaultPerMinute <= 0 {
		defaultPerMinute = 60
	}
	if defaultPerHour <= 0 {
		defaultPerHour = 1000
	}
	return &TenantRateLimiter{
		store:            store,
		businesses:       businesses,
		logger:           log,
		metrics:          m,
		defaultPerMinute: defaultPerMinute,
		defaultPerHour:   defaultPerHour,
	}
}

// RateLimit resolves the tenant from X-Tenant-ID, checks its quota and either
// admits the request (storing the tenant on the context) or rejects with 429.
// A missing or malformed tenant header is a 400, an unknown tenant a 404.
func (rl *TenantRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := uuid.Parse(c.GetHeader(HeaderXTenantID))
		if err != nil {
			appErr := apperrors.BadRequest("missing or malformed "+HeaderXTenantID+" header", err)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"status": "error", "code": appErr.Code, "message": appErr.Message,
			})
			return
		}

		business, err := rl.businesses.GetByID(c.Request.Context(), tenantID)
		if errors.Is(err, repository.ErrNotFound) {
			appErr := apperrors.NotFound("business", err)
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"status": "error", "code": appErr.Code, "message": appErr.Message,
			})
			return
		}
		if err != nil {
			rl.logger.Error(err, "failed to load tenant for rate limiting", "tenant_id", tenantID.String())
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"status": "error", "message": "internal server error",
			})
			return
		}

		perMinute, perHour := rl.limitsFor(business)
		allowed, err := rl.store.Allow(c.Request.Context(), tenantID, perMinute, perHour)
		if err != nil {
			// Fail open: a broken limiter backend must not take the API down.
			rl.logger.Error(err, "rate limit check failed, admitting", "tenant_id", tenantID.String())
			allowed = true
		}
		if !allowed {
			rl.metrics.RateLimitRejected.Inc()
			appErr := apperrors.RateLimited("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"status": "error", "code": appErr.Code, "message": appErr.Message,
			})
			return
		}

		c.Set(ContextTenantID, tenantID)
		c.Set(ContextBusiness, business)
		c.Next()
	}
}

func (rl *TenantRateLimiter) limitsFor(business *model.Business) (int, int) {
	perMinute, perHour := business.MaxRequestsPerMinute, business.MaxRequestsPerHour
	if perMinute <= 0 {
		perMinute = rl.defaultPerMinute
	}
	if perHour <= 0 {
		perHour = rl.defaultPerHour
	}
	return perMinute, perHour
}
