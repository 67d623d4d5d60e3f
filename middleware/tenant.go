package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// OrganizationHeader используется для выбора организации, когда подпись токенов не настроена
	OrganizationHeader = "X-Organization-ID"

	organizationKey = "organization_id"
	userKey         = "user_id"
)

var (
	errMissingOrganization = errors.New("организация не указана")
	errInvalidToken        = errors.New("недействительный токен")
)

// TenantClaims содержит поля токена, определяющие организацию и пользователя
type TenantClaims struct {
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// TenantMiddleware определяет организацию запроса
type TenantMiddleware struct {
	secret []byte
	issuer string
}

// NewTenantMiddleware создает новый экземпляр TenantMiddleware.
// С пустым secret организация берется из заголовка X-Organization-ID.
func NewTenantMiddleware(secret, issuer string) *TenantMiddleware {
	return &TenantMiddleware{secret: []byte(secret), issuer: issuer}
}

// SetTenant сохраняет ID организации (и пользователя, если он есть в токене) в контексте
func (tm *TenantMiddleware) SetTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublicRoute(c.Request.URL.Path) {
			c.Next()
			return
		}

		orgID, userID, err := tm.extractTenant(c)
		if err != nil {
			log.WithFields(log.Fields{
				"path":  c.Request.URL.Path,
				"error": err.Error(),
			}).Debug("Не удалось определить организацию")
			c.JSON(http.StatusUnauthorized, gin.H{
				"status": "error",
				"error":  "Не удалось определить организацию: " + err.Error(),
			})
			c.Abort()
			return
		}

		c.Set(organizationKey, orgID)
		if userID != nil {
			c.Set(userKey, *userID)
		}
		c.Next()
	}
}

func (tm *TenantMiddleware) extractTenant(c *gin.Context) (uuid.UUID, *uuid.UUID, error) {
	if len(tm.secret) == 0 {
		header := c.GetHeader(OrganizationHeader)
		if header == "" {
			return uuid.Nil, nil, errMissingOrganization
		}
		orgID, err := uuid.Parse(header)
		if err != nil {
			return uuid.Nil, nil, fmt.Errorf("некорректный ID организации: %w", err)
		}
		return orgID, nil, nil
	}

	tokenString := bearerToken(c.GetHeader("Authorization"))
	if tokenString == "" {
		return uuid.Nil, nil, errMissingOrganization
	}
	return tm.parseToken(tokenString)
}

// parseToken проверяет подпись HS256 и извлекает организацию из claims
func (tm *TenantMiddleware) parseToken(tokenString string) (uuid.UUID, *uuid.UUID, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	claims := &TenantClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return uuid.Nil, nil, errInvalidToken
	}

	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return uuid.Nil, nil, errMissingOrganization
	}

	var userID *uuid.UUID
	if claims.UserID != "" {
		if id, err := uuid.Parse(claims.UserID); err == nil {
			userID = &id
		}
	}
	return orgID, userID, nil
}

// SignToken выпускает токен организации, используется утилитами и тестами
func SignToken(secret string, claims TenantClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func bearerToken(header string) string {
	switch {
	case strings.HasPrefix(header, "Bearer "):
		return strings.TrimPrefix(header, "Bearer ")
	case strings.HasPrefix(header, "Token "):
		return strings.TrimPrefix(header, "Token ")
	default:
		return header
	}
}

// isPublicRoute проверяет, является ли маршрут публичным
func isPublicRoute(path string) bool {
	publicRoutes := []string{
		"/ping",
		"/health",
	}

	for _, route := range publicRoutes {
		if strings.HasPrefix(path, route) {
			return true
		}
	}
	return false
}

// GetOrganizationID возвращает ID организации из контекста
func GetOrganizationID(c *gin.Context) (uuid.UUID, bool) {
	if value, exists := c.Get(organizationKey); exists {
		if id, ok := value.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}

// GetUserID возвращает ID пользователя из контекста
func GetUserID(c *gin.Context) *uuid.UUID {
	if value, exists := c.Get(userKey); exists {
		if id, ok := value.(uuid.UUID); ok {
			return &id
		}
	}
	return nil
}
