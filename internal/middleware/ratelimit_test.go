package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/filegpt/filegpt/internal/middleware"
)

func newLimitedRouter(window time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/limited", middleware.RateLimit(window), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	engine.POST("/open", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return engine
}

func hit(router *gin.Engine, path string) int {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitBlocksRepeatWithinWindow(t *testing.T) {
	router := newLimitedRouter(time.Hour)

	require.Equal(t, http.StatusOK, hit(router, "/limited"))
	require.Equal(t, http.StatusTooManyRequests, hit(router, "/limited"))
	require.Equal(t, http.StatusOK, hit(router, "/open"))
	require.Equal(t, http.StatusOK, hit(router, "/open"))
}

func TestRateLimitAllowsAfterWindow(t *testing.T) {
	router := newLimitedRouter(10 * time.Millisecond)

	require.Equal(t, http.StatusOK, hit(router, "/limited"))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, http.StatusOK, hit(router, "/limited"))
}

func TestRateLimitDisabledWithZeroWindow(t *testing.T) {
	router := newLimitedRouter(0)

	require.Equal(t, http.StatusOK, hit(router, "/limited"))
	require.Equal(t, http.StatusOK, hit(router, "/limited"))
}
