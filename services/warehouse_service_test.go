package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"cmms_backend/models"
	"cmms_backend/testutils"
)

func setupWarehouseServiceTest(t *testing.T) (*gorm.DB, *WarehouseService, *fakeMessenger) {
	db := testutils.SetupTestDB(t)
	messenger := &fakeMessenger{}
	notificationService := NewNotificationService(db, messenger, "42")
	return db, NewWarehouseService(db, notificationService), messenger
}

func TestWarehouseService_Get(t *testing.T) {
	db, ws, _ := setupWarehouseServiceTest(t)
	warehouse := testutils.CreateTestWarehouse(t, db, uuid.New())

	got, err := ws.Get(context.Background(), warehouse.OrganizationID, warehouse.ID)
	require.NoError(t, err)
	assert.Equal(t, warehouse.Name, got.Name)

	_, err = ws.Get(context.Background(), uuid.New(), warehouse.ID)
	assert.ErrorIs(t, err, ErrWarehouseNotFound)
}

func TestWarehouseService_ListActive(t *testing.T) {
	db, ws, _ := setupWarehouseServiceTest(t)
	testutils.CreateTestWarehouse(t, db, uuid.New())
	closed := testutils.CreateTestWarehouse(t, db, uuid.New())
	require.NoError(t, db.Model(closed).Update("is_active", false).Error)

	warehouses, err := ws.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, warehouses, 1)
}

func TestWarehouseService_CheckLowStockLevels(t *testing.T) {
	ctx := context.Background()
	db, ws, messenger := setupWarehouseServiceTest(t)
	warehouse := testutils.CreateTestWarehouse(t, db, uuid.New())

	// Точка заказа 2: остаток 1 ниже, остаток 10 в норме
	low := testutils.CreateTestPart(t, db, warehouse, "4.00", 1)
	testutils.CreateTestPart(t, db, warehouse, "4.00", 10)

	created, err := ws.CheckLowStockLevels(ctx, warehouse)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	var notification models.Notification
	require.NoError(t, db.Where("type = ?", models.NotificationPartLowStock).First(&notification).Error)
	assert.Contains(t, notification.Title, low.PartNumber)
	assert.Equal(t, warehouse.OrganizationID, notification.OrganizationID)
	assert.NotNil(t, notification.DeliveredAt)
	require.Len(t, messenger.messages, 1)
	assert.Contains(t, messenger.messages[0], low.PartNumber)

	// Повторная проверка не дублирует непрочитанное уведомление
	created, err = ws.CheckLowStockLevels(ctx, warehouse)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}
