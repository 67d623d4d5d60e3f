package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cmms_backend/models"
)

// ErrNotificationNotFound возвращается, когда уведомление не найдено
var ErrNotificationNotFound = errors.New("notification not found")

// Шаблоны сообщений для внешних каналов (Telegram HTML)
var messageTemplates = map[string]*template.Template{
	models.NotificationPMDue: template.Must(template.New(models.NotificationPMDue).Parse(
		`<b>Плановое ТО</b>: {{.Name}}
Срок: {{.DueDate}}{{if .Priority}}
Приоритет: {{.Priority}}{{end}}`)),
	models.NotificationPMOverdue: template.Must(template.New(models.NotificationPMOverdue).Parse(
		`<b>Просрочено ТО</b>: {{.Name}}
Срок был: {{.DueDate}}`)),
	models.NotificationPartLowStock: template.Must(template.New(models.NotificationPartLowStock).Parse(
		`<b>Низкий остаток</b>: {{.Name}} ({{.PartNumber}})
Остаток: {{.StockLevel}}, точка заказа: {{.ReorderPoint}}`)),
}

// NotificationFilters содержит фильтры списка уведомлений
type NotificationFilters struct {
	UserID     *uuid.UUID
	Type       string
	UnreadOnly bool
	Page       int
	Limit      int
}

// NotificationService сохраняет уведомления и доставляет их в Telegram
type NotificationService struct {
	DB        *gorm.DB
	messenger Messenger
	chatID    string
}

// NewNotificationService создает новый экземпляр NotificationService.
// Если messenger равен nil, уведомления только сохраняются в базе.
func NewNotificationService(db *gorm.DB, messenger Messenger, chatID string) *NotificationService {
	return &NotificationService{
		DB:        db,
		messenger: messenger,
		chatID:    chatID,
	}
}

// Notify сохраняет уведомление и пытается доставить его во внешний канал.
// Ошибка доставки фиксируется в записи и не возвращается вызывающему.
func (s *NotificationService) Notify(ctx context.Context, n *models.Notification, data interface{}) error {
	if err := s.DB.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("ошибка при создании уведомления: %w", err)
	}

	if s.messenger == nil || s.chatID == "" {
		return nil
	}

	message, err := renderMessage(n, data)
	if err != nil {
		log.WithError(err).WithField("notification_id", n.ID).Warn("Ошибка рендеринга уведомления")
		message = fmt.Sprintf("<b>%s</b>\n%s", template.HTMLEscapeString(n.Title), template.HTMLEscapeString(n.Message))
	}

	updates := map[string]interface{}{}
	if err := s.messenger.SendMessage(s.chatID, message); err != nil {
		log.WithError(err).WithField("notification_id", n.ID).Warn("Не удалось доставить уведомление в Telegram")
		n.DeliveryError = err.Error()
		updates["delivery_error"] = n.DeliveryError
	} else {
		now := time.Now()
		n.DeliveredAt = &now
		updates["delivered_at"] = now
	}

	if err := s.DB.WithContext(ctx).Model(n).Updates(updates).Error; err != nil {
		log.WithError(err).WithField("notification_id", n.ID).Warn("Не удалось сохранить статус доставки")
	}
	return nil
}

// renderMessage формирует текст сообщения по шаблону типа уведомления
func renderMessage(n *models.Notification, data interface{}) (string, error) {
	tmpl, ok := messageTemplates[n.Type]
	if !ok || data == nil {
		return fmt.Sprintf("<b>%s</b>\n%s", template.HTMLEscapeString(n.Title), template.HTMLEscapeString(n.Message)), nil
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// pmMessageData содержит данные шаблонов уведомлений по ТО
type pmMessageData struct {
	Name     string
	DueDate  string
	Priority string
}

// NotifyPMDue уведомляет исполнителя о созданном наряде на плановое ТО
func (s *NotificationService) NotifyPMDue(ctx context.Context, pm *models.PreventiveMaintenance, wo *models.WorkOrder) error {
	dueDate := formatDue(pm.NextDueDate)
	n := &models.Notification{
		OrganizationID: pm.OrganizationID,
		UserID:         pm.AssignedTo,
		Type:           models.NotificationPMDue,
		Title:          fmt.Sprintf("Плановое ТО: %s", pm.Name),
		Message:        fmt.Sprintf("Создан наряд на плановое ТО «%s», срок %s", pm.Name, dueDate),
		WorkOrderID:    &wo.ID,
		EquipmentID:    &pm.EquipmentID,
		PMID:           &pm.ID,
	}
	return s.Notify(ctx, n, pmMessageData{Name: pm.Name, DueDate: dueDate, Priority: wo.Priority})
}

// NotifyPMOverdue уведомляет о просроченном ТО. Для одного срока уведомление
// создается один раз. Возвращает true, если уведомление создано.
func (s *NotificationService) NotifyPMOverdue(ctx context.Context, pm *models.PreventiveMaintenance) (bool, error) {
	if pm.NextDueDate == nil {
		return false, nil
	}

	var existing int64
	err := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("pm_id = ? AND type = ? AND created_at >= ?", pm.ID, models.NotificationPMOverdue, *pm.NextDueDate).
		Count(&existing).Error
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке уведомлений: %w", err)
	}
	if existing > 0 {
		return false, nil
	}

	dueDate := formatDue(pm.NextDueDate)
	n := &models.Notification{
		OrganizationID: pm.OrganizationID,
		UserID:         pm.AssignedTo,
		Type:           models.NotificationPMOverdue,
		Title:          fmt.Sprintf("Просрочено ТО: %s", pm.Name),
		Message:        fmt.Sprintf("Плановое ТО «%s» просрочено, срок был %s", pm.Name, dueDate),
		EquipmentID:    &pm.EquipmentID,
		PMID:           &pm.ID,
	}
	if err := s.Notify(ctx, n, pmMessageData{Name: pm.Name, DueDate: dueDate}); err != nil {
		return false, err
	}
	return true, nil
}

// NotifyLowStock уведомляет о низком остатке запчасти
func (s *NotificationService) NotifyLowStock(ctx context.Context, orgID uuid.UUID, part *models.Part) error {
	n := &models.Notification{
		OrganizationID: orgID,
		Type:           models.NotificationPartLowStock,
		Title:          lowStockTitle(part),
		Message: fmt.Sprintf("Остаток запчасти %s (%s): %d, точка заказа: %d",
			part.Name, part.PartNumber, part.StockLevel, part.ReorderPoint),
	}
	return s.Notify(ctx, n, part)
}

// List возвращает уведомления организации
func (s *NotificationService) List(ctx context.Context, orgID uuid.UUID, filters NotificationFilters) ([]models.Notification, int64, error) {
	query := s.DB.WithContext(ctx).Model(&models.Notification{}).Where("organization_id = ?", orgID)
	if filters.UserID != nil {
		query = query.Where("(user_id = ? OR user_id IS NULL)", *filters.UserID)
	}
	if filters.Type != "" {
		query = query.Where("type = ?", filters.Type)
	}
	if filters.UnreadOnly {
		query = query.Where("read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка при подсчете уведомлений: %w", err)
	}

	page, limit := normalizePage(filters.Page, filters.Limit)
	var notifications []models.Notification
	err := query.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&notifications).Error
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка при получении уведомлений: %w", err)
	}
	return notifications, total, nil
}

// MarkRead отмечает уведомление прочитанным
func (s *NotificationService) MarkRead(ctx context.Context, orgID, id uuid.UUID) error {
	result := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("ошибка при обновлении уведомления: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}
	return nil
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "не задан"
	}
	return t.Format("02.01.2006")
}
