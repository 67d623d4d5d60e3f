package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&Warehouse{}, &Equipment{}, &PreventiveMaintenance{}, &PMCompletion{}, &WorkOrder{})
	require.NoError(t, err)
	return db
}

func TestValidateRequiredParts(t *testing.T) {
	partID := uuid.New()
	assert.NoError(t, ValidateRequiredParts([]RequiredPart{{PartID: partID, Quantity: 2}}))
	assert.ErrorIs(t, ValidateRequiredParts([]RequiredPart{{Quantity: 1}}), ErrValidation)
	assert.ErrorIs(t, ValidateRequiredParts([]RequiredPart{{PartID: partID, Quantity: 0}}), ErrValidation)
}

func TestAnchorPolicy_IsValid(t *testing.T) {
	assert.True(t, AnchorCompletion.IsValid())
	assert.True(t, AnchorSchedule.IsValid())
	assert.False(t, AnchorPolicy("calendar").IsValid())
}

func TestWorkOrder_CompletedOnTime(t *testing.T) {
	due := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	early := due.Add(-time.Hour)
	late := due.Add(time.Minute)

	assert.True(t, (&WorkOrder{DueDate: &due, CompletedAt: &early}).CompletedOnTime())
	assert.True(t, (&WorkOrder{DueDate: &due, CompletedAt: &due}).CompletedOnTime())
	assert.False(t, (&WorkOrder{DueDate: &due, CompletedAt: &late}).CompletedOnTime())
	assert.False(t, (&WorkOrder{DueDate: &due}).CompletedOnTime())
	assert.True(t, (&WorkOrder{CompletedAt: &late}).CompletedOnTime())

	assert.True(t, WorkOrderStatusInProgress.IsOpen())
	assert.False(t, WorkOrderStatusVerified.IsOpen())
}

func TestPriorityForCriticality(t *testing.T) {
	assert.Equal(t, "critical", PriorityForCriticality(CriticalityCritical))
	assert.Equal(t, "high", PriorityForCriticality(CriticalityHigh))
	assert.Equal(t, "medium", PriorityForCriticality(CriticalityLow))
	assert.Equal(t, "medium", PriorityForCriticality(""))
}

func TestPreventiveMaintenance_Persistence(t *testing.T) {
	db := setupTestDB(t)

	next := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	pm := &PreventiveMaintenance{
		OrganizationID: uuid.New(),
		WarehouseID:    uuid.New(),
		EquipmentID:    uuid.New(),
		Name:           "Проверка ремня",
		FrequencyType:  FrequencyCustom,
		FrequencyValue: 10,
		FrequencyUnit:  UnitDays,
		Checklist:      []ChecklistItem{{ID: "inspect", Task: "Осмотр"}},
		RequiredParts:  []RequiredPart{{PartID: uuid.New(), Quantity: 1, IsOptional: true}},
		NextDueDate:    &next,
	}
	require.NoError(t, db.Create(pm).Error)
	assert.NotEqual(t, uuid.Nil, pm.ID)

	var stored PreventiveMaintenance
	require.NoError(t, db.First(&stored, "id = ?", pm.ID).Error)
	assert.Equal(t, "preventive_maintenance", stored.TableName())
	assert.False(t, stored.IsActive)
	assert.Equal(t, UnitDays, stored.FrequencyUnit)
	require.Len(t, stored.Checklist, 1)
	assert.Equal(t, "inspect", stored.Checklist[0].ID)
	require.Len(t, stored.RequiredParts, 1)
	assert.True(t, stored.RequiredParts[0].IsOptional)
	assert.True(t, next.Equal(*stored.NextDueDate))
}
