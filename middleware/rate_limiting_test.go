package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmms_backend/testutils"
)

func TestRateLimit_WithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(nil, RateLimitConfig{Requests: 1, Window: time.Minute}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestOrganizationKeyGenerator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.0.0.1:1234"

	assert.Equal(t, "10.0.0.1", OrganizationKeyGenerator(c))

	orgID := "5f1c6d5e-6a3b-4a8e-9c1f-2d7b0e4a9f10"
	c.Request.Header.Set(OrganizationHeader, orgID)
	NewTenantMiddleware("", "").SetTenant()(c)
	assert.Equal(t, "org:"+orgID, OrganizationKeyGenerator(c))
}

func TestRateLimit_WithRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client, server := testutils.SetupTestRedis(t)

	router := gin.New()
	router.Use(RateLimit(client, RateLimitConfig{Requests: 2, Window: time.Minute}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	key := "rate_limit:default:192.0.2.1"
	require.True(t, server.Exists(key))
	assert.Equal(t, time.Minute, server.TTL(key))

	// После истечения окна счетчик начинается заново
	server.FastForward(time.Minute)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRateLimit_PresetsUseSeparateCounters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	client, server := testutils.SetupTestRedis(t)
	orgID := "5f1c6d5e-6a3b-4a8e-9c1f-2d7b0e4a9f10"

	router := gin.New()
	group := router.Group("/api")
	group.Use(NewTenantMiddleware("", "").SetTenant(), ModerateRateLimit(client))
	group.GET("/pm", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.GET("/export", StrictRateLimit(client), func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(OrganizationHeader, orgID)
		router.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, request("/api/pm").Code)
	}

	// Обычные запросы не расходуют лимит тяжелых операций
	w := request("/api/export")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "9", w.Header().Get("X-RateLimit-Remaining"))

	moderate, err := server.Get("rate_limit:moderate:org:" + orgID)
	require.NoError(t, err)
	assert.Equal(t, "11", moderate)
	strict, err := server.Get("rate_limit:strict:org:" + orgID)
	require.NoError(t, err)
	assert.Equal(t, "1", strict)

	for i := 0; i < 9; i++ {
		require.Equal(t, http.StatusOK, request("/api/export").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, request("/api/export").Code)
	assert.Equal(t, http.StatusOK, request("/api/pm").Code)
}
