package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Warehouse представляет площадку (склад, цех), к которой привязано оборудование
type Warehouse struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;not null;index"`
	Name           string    `json:"name" gorm:"not null;type:varchar(100)"`
	Address        string    `json:"address" gorm:"type:text"`
	Timezone       string    `json:"timezone" gorm:"default:'UTC';type:varchar(50)"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
}

// TableName задает имя таблицы для модели Warehouse
func (Warehouse) TableName() string {
	return "warehouses"
}

// BeforeCreate генерирует идентификатор, если он не задан
func (w *Warehouse) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Статусы оборудования
const (
	EquipmentStatusActive      = "active"
	EquipmentStatusInactive    = "inactive"
	EquipmentStatusMaintenance = "maintenance"
	EquipmentStatusRetired     = "retired"
)

// Уровни критичности оборудования
const (
	CriticalityLow      = "low"
	CriticalityMedium   = "medium"
	CriticalityHigh     = "high"
	CriticalityCritical = "critical"
)

// Equipment представляет единицу оборудования
type Equipment struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;not null;index"`
	WarehouseID    uuid.UUID `json:"warehouse_id" gorm:"type:uuid;not null;index"`

	AssetTag     string `json:"asset_tag" gorm:"uniqueIndex;not null;type:varchar(50)"`
	Model        string `json:"model" gorm:"not null;type:varchar(100)"`
	Description  string `json:"description" gorm:"type:text"`
	Area         string `json:"area" gorm:"type:varchar(100)"`
	Manufacturer string `json:"manufacturer" gorm:"type:varchar(100)"`
	SerialNumber string `json:"serial_number" gorm:"type:varchar(100)"`

	Status      string `json:"status" gorm:"default:'active';type:varchar(20)"`      // active, inactive, maintenance, retired
	Criticality string `json:"criticality" gorm:"default:'medium';type:varchar(20)"` // low, medium, high, critical

	InstallDate    *time.Time `json:"install_date"`
	WarrantyExpiry *time.Time `json:"warranty_expiry"`
}

// TableName задает имя таблицы для модели Equipment
func (Equipment) TableName() string {
	return "equipment"
}

// BeforeCreate генерирует идентификатор, если он не задан
func (e *Equipment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsOperational проверяет, находится ли оборудование в эксплуатации
func (e *Equipment) IsOperational() bool {
	return e.Status == EquipmentStatusActive
}

// Part представляет запчасть на складе
type Part struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primarykey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	WarehouseID   uuid.UUID       `json:"warehouse_id" gorm:"type:uuid;not null;index"`
	PartNumber    string          `json:"part_number" gorm:"uniqueIndex;not null;type:varchar(100)"`
	Name          string          `json:"name" gorm:"not null;type:varchar(200)"`
	UnitOfMeasure string          `json:"unit_of_measure" gorm:"type:varchar(20)"`
	UnitCost      decimal.Decimal `json:"unit_cost" gorm:"type:decimal(10,2)"`
	StockLevel    int             `json:"stock_level" gorm:"default:0"`
	ReorderPoint  int             `json:"reorder_point" gorm:"default:0"`
	IsActive      bool            `json:"is_active" gorm:"default:true"`
}

// TableName задает имя таблицы для модели Part
func (Part) TableName() string {
	return "parts"
}

// BeforeCreate генерирует идентификатор, если он не задан
func (p *Part) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsLowStock проверяет, опустился ли остаток до точки дозаказа
func (p *Part) IsLowStock() bool {
	return p.StockLevel <= p.ReorderPoint
}
