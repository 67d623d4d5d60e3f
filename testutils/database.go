package testutils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"cmms_backend/models"
)

// CreateTestWarehouse создает тестовую площадку организации
func CreateTestWarehouse(t *testing.T, db *gorm.DB, orgID uuid.UUID) *models.Warehouse {
	t.Helper()

	warehouse := &models.Warehouse{
		OrganizationID: orgID,
		Name:           "Test Warehouse",
		Address:        "1 Test Street",
		Timezone:       "UTC",
		IsActive:       true,
	}
	if err := db.Create(warehouse).Error; err != nil {
		t.Fatalf("Failed to create test warehouse: %v", err)
	}
	return warehouse
}

// CreateTestEquipment создает тестовое оборудование на площадке
func CreateTestEquipment(t *testing.T, db *gorm.DB, warehouse *models.Warehouse, criticality string) *models.Equipment {
	t.Helper()

	equipment := &models.Equipment{
		OrganizationID: warehouse.OrganizationID,
		WarehouseID:    warehouse.ID,
		AssetTag:       "EQ-" + uuid.NewString()[:8],
		Model:          "Conveyor C-100",
		Area:           "Zone A",
		Status:         models.EquipmentStatusActive,
		Criticality:    criticality,
	}
	if err := db.Create(equipment).Error; err != nil {
		t.Fatalf("Failed to create test equipment: %v", err)
	}
	return equipment
}

// CreateTestPart создает тестовую запчасть на площадке
func CreateTestPart(t *testing.T, db *gorm.DB, warehouse *models.Warehouse, unitCost string, stock int) *models.Part {
	t.Helper()

	part := &models.Part{
		WarehouseID:   warehouse.ID,
		PartNumber:    "P-" + uuid.NewString()[:8],
		Name:          "Drive belt",
		UnitOfMeasure: "each",
		UnitCost:      decimal.RequireFromString(unitCost),
		StockLevel:    stock,
		ReorderPoint:  2,
		IsActive:      true,
	}
	if err := db.Create(part).Error; err != nil {
		t.Fatalf("Failed to create test part: %v", err)
	}
	return part
}

// CreateTestPM создает активный график ТО напрямую в базе, минуя сервис.
// nextDue может быть nil для проверки неинициализированных графиков.
func CreateTestPM(t *testing.T, db *gorm.DB, equipment *models.Equipment, name string, createdAt time.Time, nextDue *time.Time) *models.PreventiveMaintenance {
	t.Helper()

	pm := &models.PreventiveMaintenance{
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
		OrganizationID: equipment.OrganizationID,
		WarehouseID:    equipment.WarehouseID,
		EquipmentID:    equipment.ID,
		Name:           name,
		FrequencyType:  models.FrequencyMonthly,
		FrequencyValue: 1,
		Checklist: []models.ChecklistItem{
			{ID: "inspect", Task: "Inspect belt"},
			{ID: "lube", Task: "Lubricate bearings"},
		},
		IsActive:    true,
		NextDueDate: nextDue,
	}
	if err := db.Create(pm).Error; err != nil {
		t.Fatalf("Failed to create test PM: %v", err)
	}
	return pm
}
