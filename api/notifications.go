package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cmms_backend/middleware"
	"cmms_backend/services"
)

// NotificationAPI представляет API для просмотра уведомлений
type NotificationAPI struct {
	service *services.NotificationService
}

// NewNotificationAPI создает новый экземпляр NotificationAPI
func NewNotificationAPI(service *services.NotificationService) *NotificationAPI {
	return &NotificationAPI{service: service}
}

// GetNotifications возвращает уведомления организации
// GET /notifications?type=pm_overdue&unread=true
func (api *NotificationAPI) GetNotifications(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	unread, err := optionalBoolQuery(c, "unread")
	if err != nil {
		respondError(c, err)
		return
	}

	filters := services.NotificationFilters{
		UserID:     middleware.GetUserID(c),
		Type:       c.Query("type"),
		UnreadOnly: unread != nil && *unread,
	}
	filters.Page, filters.Limit = pageParams(c)

	notifications, total, err := api.service.List(c.Request.Context(), orgID, filters)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"data":       notifications,
		"pagination": pagination(filters.Page, filters.Limit, total),
	})
}

// MarkNotificationRead отмечает уведомление прочитанным
func (api *NotificationAPI) MarkNotificationRead(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := api.service.MarkRead(c.Request.Context(), orgID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Уведомление отмечено прочитанным"})
}
