package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRequestIDRouter(t *testing.T) (*gin.Engine, *string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen string
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) {
		seen = c.GetString(ContextRequestID)
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestRequestIDHonorsInboundHeader(t *testing.T) {
	r, seen := setupRequestIDRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderXRequestID, "caller-supplied-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "caller-supplied-id", *seen)
	assert.Equal(t, "caller-supplied-id", w.Header().Get(HeaderXRequestID))
}

func TestRequestIDGeneratesWhenAbsent(t *testing.T) {
	r, seen := setupRequestIDRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderXRequestID, "   ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.NotEmpty(t, *seen)
	_, err := uuid.Parse(*seen)
	assert.NoError(t, err)
	assert.Equal(t, *seen, w.Header().Get(HeaderXRequestID))
}
