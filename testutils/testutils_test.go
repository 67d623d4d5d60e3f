package testutils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmms_backend/models"
)

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t)
	require.NotNil(t, db, "Database should not be nil")

	// Проверяем, что таблицы созданы
	for _, table := range []string{"warehouses", "equipment", "parts", "preventive_maintenance", "pm_completions", "work_orders", "notifications"} {
		assert.True(t, db.Migrator().HasTable(table), "table %s should exist", table)
	}
}

func TestSetupTestConfig(t *testing.T) {
	cfg := SetupTestConfig(t)
	assert.Equal(t, "test", cfg.App.Env)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Empty(t, cfg.Telegram.BotToken)
}

func TestFixtures(t *testing.T) {
	db := SetupTestDB(t)
	orgID := uuid.New()

	warehouse := CreateTestWarehouse(t, db, orgID)
	assert.NotEqual(t, uuid.Nil, warehouse.ID)

	equipment := CreateTestEquipment(t, db, warehouse, models.CriticalityHigh)
	assert.Equal(t, warehouse.ID, equipment.WarehouseID)
	assert.Equal(t, orgID, equipment.OrganizationID)

	part := CreateTestPart(t, db, warehouse, "12.50", 3)
	assert.Equal(t, "12.5", part.UnitCost.String())

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pm := CreateTestPM(t, db, equipment, "Monthly belt check", created, nil)

	var loaded models.PreventiveMaintenance
	require.NoError(t, db.First(&loaded, "id = ?", pm.ID).Error)
	assert.Len(t, loaded.Checklist, 2)
	assert.Nil(t, loaded.NextDueDate)
	assert.True(t, loaded.IsActive)
}
