package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ошибки валидации графиков ТО
var (
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrMissingAnchor    = errors.New("missing anchor")
	ErrValidation       = errors.New("validation failed")
)

// FrequencyType представляет тип периодичности планового обслуживания
type FrequencyType string

const (
	FrequencyDaily     FrequencyType = "daily"
	FrequencyWeekly    FrequencyType = "weekly"
	FrequencyMonthly   FrequencyType = "monthly"
	FrequencyQuarterly FrequencyType = "quarterly"
	FrequencyAnnual    FrequencyType = "annual"
	FrequencyCustom    FrequencyType = "custom"
)

// IsValid проверяет, что тип периодичности известен
func (f FrequencyType) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual, FrequencyCustom:
		return true
	}
	return false
}

// ParseFrequencyType разбирает строку в FrequencyType, неизвестные значения отклоняются
func ParseFrequencyType(s string) (FrequencyType, error) {
	f := FrequencyType(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: unknown frequency type %q", ErrInvalidFrequency, s)
	}
	return f, nil
}

// FrequencyUnit задает единицу интервала для периодичности custom
type FrequencyUnit string

const (
	UnitDays   FrequencyUnit = "days"
	UnitWeeks  FrequencyUnit = "weeks"
	UnitMonths FrequencyUnit = "months"
	UnitYears  FrequencyUnit = "years"
)

// IsValid проверяет, что единица интервала известна
func (u FrequencyUnit) IsValid() bool {
	switch u {
	case UnitDays, UnitWeeks, UnitMonths, UnitYears:
		return true
	}
	return false
}

// AnchorPolicy определяет, от какой даты считается следующий срок
type AnchorPolicy string

const (
	// AnchorCompletion: от даты последнего выполнения (или создания)
	AnchorCompletion AnchorPolicy = "completion"
	// AnchorSchedule: от предыдущего планового срока
	AnchorSchedule AnchorPolicy = "schedule"
)

// IsValid проверяет политику привязки
func (p AnchorPolicy) IsValid() bool {
	return p == AnchorCompletion || p == AnchorSchedule
}

// ChecklistItem представляет пункт чек-листа обслуживания
type ChecklistItem struct {
	ID        string `json:"id"`
	Task      string `json:"task"`
	Completed bool   `json:"completed"`
	Notes     string `json:"notes,omitempty"`
}

// RequiredPart представляет запчасть, необходимую для обслуживания
type RequiredPart struct {
	PartID     uuid.UUID `json:"part_id"`
	Quantity   int       `json:"quantity"`
	IsOptional bool      `json:"is_optional"`
}

// PreventiveMaintenance представляет график планового обслуживания оборудования
type PreventiveMaintenance struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Мультитенантность
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;not null;index"`
	WarehouseID    uuid.UUID `json:"warehouse_id" gorm:"type:uuid;not null;index"`

	// Оборудование (принадлежит внешней сущности)
	EquipmentID uuid.UUID `json:"equipment_id" gorm:"type:uuid;not null;index"`

	Name              string `json:"name" gorm:"not null;type:varchar(200)"`
	Description       string `json:"description,omitempty" gorm:"type:text"`
	EstimatedDuration *int   `json:"estimated_duration,omitempty"` // В минутах
	Instructions      string `json:"instructions,omitempty" gorm:"type:text"`

	// Периодичность
	FrequencyType  FrequencyType `json:"frequency_type" gorm:"not null;type:varchar(20)"`
	FrequencyValue int           `json:"frequency_value" gorm:"not null"`
	FrequencyUnit  FrequencyUnit `json:"frequency_unit,omitempty" gorm:"type:varchar(10)"` // Только для custom

	// Содержание работ
	Checklist     []ChecklistItem `json:"checklist" gorm:"serializer:json;type:jsonb"`
	RequiredParts []RequiredPart  `json:"required_parts" gorm:"serializer:json;type:jsonb"`

	AssignedTo *uuid.UUID `json:"assigned_to,omitempty" gorm:"type:uuid"`

	// Состояние
	IsActive        bool       `json:"is_active" gorm:"not null;index"`
	NextDueDate     *time.Time `json:"next_due_date,omitempty" gorm:"index"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}

// TableName задает имя таблицы для модели PreventiveMaintenance
func (PreventiveMaintenance) TableName() string {
	return "preventive_maintenance"
}

// BeforeCreate генерирует идентификатор, если он не задан
func (pm *PreventiveMaintenance) BeforeCreate(tx *gorm.DB) error {
	if pm.ID == uuid.Nil {
		pm.ID = uuid.New()
	}
	return nil
}

// ValidateChecklist проверяет уникальность идентификаторов пунктов чек-листа
func ValidateChecklist(items []ChecklistItem) error {
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.ID == "" {
			return fmt.Errorf("%w: checklist item %d has empty id", ErrValidation, i)
		}
		if _, ok := seen[item.ID]; ok {
			return fmt.Errorf("%w: duplicate checklist item id %q", ErrValidation, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// ValidateRequiredParts проверяет список запчастей
func ValidateRequiredParts(parts []RequiredPart) error {
	for _, p := range parts {
		if p.PartID == uuid.Nil {
			return fmt.Errorf("%w: required part without part_id", ErrValidation)
		}
		if p.Quantity <= 0 {
			return fmt.Errorf("%w: part %s quantity must be positive", ErrValidation, p.PartID)
		}
	}
	return nil
}

// PMCompletion хранит историю выполнения планового обслуживания
type PMCompletion struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primarykey"`
	CreatedAt time.Time `json:"created_at"`

	PMID        uuid.UUID  `json:"pm_id" gorm:"type:uuid;not null;index"`
	WorkOrderID *uuid.UUID `json:"work_order_id,omitempty" gorm:"type:uuid"`
	CompletedAt time.Time  `json:"completed_at" gorm:"not null"`
	CompletedBy *uuid.UUID `json:"completed_by,omitempty" gorm:"type:uuid"`

	// Состояние чек-листа на момент выполнения
	AllChecked     bool            `json:"all_checked"`
	ChecklistDone  int             `json:"checklist_done"`
	ChecklistTotal int             `json:"checklist_total"`
	Checklist      []ChecklistItem `json:"checklist" gorm:"serializer:json;type:jsonb"`

	PreviousDueDate *time.Time `json:"previous_due_date,omitempty"`
	NextDueDate     time.Time  `json:"next_due_date"`
	Notes           string     `json:"notes,omitempty" gorm:"type:text"`
}

// TableName задает имя таблицы для модели PMCompletion
func (PMCompletion) TableName() string {
	return "pm_completions"
}

// BeforeCreate генерирует идентификатор, если он не задан
func (c *PMCompletion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
