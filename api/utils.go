package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"cmms_backend/middleware"
	"cmms_backend/models"
	"cmms_backend/services"
)

// Clock возвращает текущее время, подменяется в тестах
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c()
}

// organizationID извлекает ID организации из контекста Gin.
// При отсутствии отвечает 401 и возвращает false.
func organizationID(c *gin.Context) (uuid.UUID, bool) {
	orgID, ok := middleware.GetOrganizationID(c)
	if !ok || orgID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "error": "Организация не определена"})
		return uuid.Nil, false
	}
	return orgID, true
}

// uuidParam разбирает параметр пути как UUID, при ошибке отвечает 400
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректный ID: " + c.Param(name)})
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUIDQuery разбирает необязательный query параметр как UUID
func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("%w: некорректный %s", models.ErrValidation, name)
	}
	return &id, nil
}

// optionalIntQuery разбирает необязательный целочисленный query параметр
func optionalIntQuery(c *gin.Context, name string) (*int, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("%w: некорректный %s", models.ErrValidation, name)
	}
	return &n, nil
}

// optionalBoolQuery разбирает необязательный логический query параметр
func optionalBoolQuery(c *gin.Context, name string) (*bool, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("%w: некорректный %s", models.ErrValidation, name)
	}
	return &b, nil
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(services.DefaultPageLimit)))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = services.DefaultPageLimit
	}
	if limit > services.MaxPageLimit {
		limit = services.MaxPageLimit
	}
	return page, limit
}

func pagination(page, limit int, total int64) gin.H {
	return gin.H{
		"page":  page,
		"limit": limit,
		"total": total,
		"pages": (total + int64(limit) - 1) / int64(limit),
	}
}

// statusForError сопоставляет ошибку сервисов HTTP статусу
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidFrequency), errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrMissingAnchor):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrPMNotFound),
		errors.Is(err, services.ErrEquipmentNotFound),
		errors.Is(err, services.ErrWorkOrderNotFound),
		errors.Is(err, services.ErrWarehouseNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPMInactive), errors.Is(err, services.ErrWorkOrderClosed):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError отправляет ошибку в едином формате
func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).WithError(err).Error("Ошибка обработки запроса")
		c.JSON(status, gin.H{"status": "error", "error": "Внутренняя ошибка сервера"})
		return
	}
	c.JSON(status, gin.H{"status": "error", "error": err.Error()})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "Некорректные данные: " + err.Error()})
}
