package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Типы уведомлений
const (
	NotificationPMDue        = "pm_due"
	NotificationPMOverdue    = "pm_overdue"
	NotificationPartLowStock = "part_low_stock"
)

// Notification представляет уведомление пользователя
type Notification struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primarykey"`
	CreatedAt time.Time `json:"created_at"`

	OrganizationID uuid.UUID  `json:"organization_id" gorm:"type:uuid;not null;index"`
	UserID         *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"` // Пусто: уведомление для всей площадки

	Type    string `json:"type" gorm:"not null;type:varchar(30)"`
	Title   string `json:"title" gorm:"not null;type:varchar(200)"`
	Message string `json:"message" gorm:"type:text;not null"`
	Read    bool   `json:"read" gorm:"default:false"`

	// Связанные сущности
	WorkOrderID *uuid.UUID `json:"work_order_id,omitempty" gorm:"type:uuid"`
	EquipmentID *uuid.UUID `json:"equipment_id,omitempty" gorm:"type:uuid"`
	PMID        *uuid.UUID `json:"pm_id,omitempty" gorm:"type:uuid;index"`

	// Доставка во внешние каналы
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
	DeliveryError string     `json:"delivery_error,omitempty" gorm:"type:text"`
}

// TableName задает имя таблицы для модели Notification
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate генерирует идентификатор, если он не задан
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
