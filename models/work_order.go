package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WorkOrderType представляет тип наряда
type WorkOrderType string

const (
	WorkOrderCorrective WorkOrderType = "corrective"
	WorkOrderPreventive WorkOrderType = "preventive"
	WorkOrderEmergency  WorkOrderType = "emergency"
)

// WorkOrderStatus представляет статус наряда
type WorkOrderStatus string

const (
	WorkOrderStatusNew        WorkOrderStatus = "new"
	WorkOrderStatusAssigned   WorkOrderStatus = "assigned"
	WorkOrderStatusInProgress WorkOrderStatus = "in_progress"
	WorkOrderStatusCompleted  WorkOrderStatus = "completed"
	WorkOrderStatusVerified   WorkOrderStatus = "verified"
	WorkOrderStatusClosed     WorkOrderStatus = "closed"
)

// IsOpen проверяет, что наряд еще не выполнен
func (s WorkOrderStatus) IsOpen() bool {
	switch s {
	case WorkOrderStatusCompleted, WorkOrderStatusVerified, WorkOrderStatusClosed:
		return false
	}
	return true
}

// WorkOrder представляет наряд на выполнение работ
type WorkOrder struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	OrganizationID uuid.UUID  `json:"organization_id" gorm:"type:uuid;not null;index"`
	WarehouseID    uuid.UUID  `json:"warehouse_id" gorm:"type:uuid;not null;index"`
	EquipmentID    *uuid.UUID `json:"equipment_id,omitempty" gorm:"type:uuid;index"`
	PMID           *uuid.UUID `json:"pm_id,omitempty" gorm:"type:uuid;index"` // График ТО, по которому создан наряд

	Type        WorkOrderType   `json:"type" gorm:"not null;type:varchar(20)"`
	Status      WorkOrderStatus `json:"status" gorm:"not null;default:'new';type:varchar(20)"`
	Priority    string          `json:"priority" gorm:"not null;default:'medium';type:varchar(20)"`
	Title       string          `json:"title" gorm:"type:varchar(200)"`
	Description string          `json:"description" gorm:"type:text"`

	AssignedTo     *uuid.UUID      `json:"assigned_to,omitempty" gorm:"type:uuid"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	EstimatedHours decimal.Decimal `json:"estimated_hours" gorm:"type:decimal(5,2)"`
	Notes          string          `json:"notes" gorm:"type:text"`
}

// TableName задает имя таблицы для модели WorkOrder
func (WorkOrder) TableName() string {
	return "work_orders"
}

// BeforeCreate генерирует идентификатор, если он не задан
func (wo *WorkOrder) BeforeCreate(tx *gorm.DB) error {
	if wo.ID == uuid.Nil {
		wo.ID = uuid.New()
	}
	return nil
}

// CompletedOnTime проверяет, выполнен ли наряд не позже срока
func (wo *WorkOrder) CompletedOnTime() bool {
	if wo.CompletedAt == nil {
		return false
	}
	if wo.DueDate == nil {
		return true
	}
	return !wo.CompletedAt.After(*wo.DueDate)
}

// PriorityForCriticality возвращает приоритет наряда по критичности оборудования
func PriorityForCriticality(criticality string) string {
	switch criticality {
	case CriticalityCritical:
		return "critical"
	case CriticalityHigh:
		return "high"
	default:
		return "medium"
	}
}
