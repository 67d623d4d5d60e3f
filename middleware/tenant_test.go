package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-at-least-32-characters"

func setupTenantRouter(tm *TenantMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(tm.SetTenant())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/api/v1/whoami", func(c *gin.Context) {
		orgID, ok := GetOrganizationID(c)
		resp := gin.H{"organization_id": orgID.String(), "ok": ok}
		if userID := GetUserID(c); userID != nil {
			resp["user_id"] = userID.String()
		}
		c.JSON(http.StatusOK, resp)
	})
	return router
}

func perform(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestTenantMiddleware_JWT(t *testing.T) {
	router := setupTenantRouter(NewTenantMiddleware(testSecret, "cmms"))
	orgID := uuid.New()
	userID := uuid.New()

	sign := func(t *testing.T, secret string, claims TenantClaims) string {
		token, err := SignToken(secret, claims)
		require.NoError(t, err)
		return token
	}
	valid := TenantClaims{
		OrganizationID: orgID.String(),
		UserID:         userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cmms",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	t.Run("valid token", func(t *testing.T) {
		w := perform(router, map[string]string{"Authorization": "Bearer " + sign(t, testSecret, valid)})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), orgID.String())
		assert.Contains(t, w.Body.String(), userID.String())
	})

	t.Run("wrong signature", func(t *testing.T) {
		w := perform(router, map[string]string{"Authorization": "Bearer " + sign(t, "another-secret", valid)})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := valid
		expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		w := perform(router, map[string]string{"Authorization": "Bearer " + sign(t, testSecret, expired)})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		foreign := valid
		foreign.Issuer = "other"
		w := perform(router, map[string]string{"Authorization": "Bearer " + sign(t, testSecret, foreign)})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("token without organization", func(t *testing.T) {
		noOrg := valid
		noOrg.OrganizationID = ""
		w := perform(router, map[string]string{"Authorization": "Bearer " + sign(t, testSecret, noOrg)})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("header is ignored when tokens are required", func(t *testing.T) {
		w := perform(router, map[string]string{OrganizationHeader: orgID.String()})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("public route", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestTenantMiddleware_Header(t *testing.T) {
	router := setupTenantRouter(NewTenantMiddleware("", ""))
	orgID := uuid.New()

	w := perform(router, map[string]string{OrganizationHeader: orgID.String()})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), orgID.String())
	assert.NotContains(t, w.Body.String(), "user_id")

	w = perform(router, map[string]string{OrganizationHeader: "not-a-uuid"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = perform(router, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
