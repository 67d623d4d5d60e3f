package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmms_backend/config"
	"cmms_backend/models"
	"cmms_backend/testutils"
)

func TestPMSchedulerService_RunOnce(t *testing.T) {
	ctx := context.Background()
	db := testutils.SetupTestDB(t)
	now := utc(2024, 6, 1)
	clock := func() time.Time { return now }

	warehouse := testutils.CreateTestWarehouse(t, db, uuid.New())
	equipment := testutils.CreateTestEquipment(t, db, warehouse, models.CriticalityHigh)
	testutils.CreateTestPart(t, db, warehouse, "9.99", 0)

	overdue := testutils.CreateTestPM(t, db, equipment, "Overdue", utc(2024, 1, 1), ptrTime(utc(2024, 5, 20)))
	// Создан 15.05, ежемесячно: после инициализации срок 15.06, вне окна 7 дней
	pending := testutils.CreateTestPM(t, db, equipment, "Pending", utc(2024, 5, 15), nil)

	messenger := &fakeMessenger{}
	notifications := NewNotificationService(db, messenger, "42")
	pmService := NewPMService(db, NewCacheService(nil), models.AnchorCompletion)
	workOrders := NewWorkOrderService(db, pmService, notifications)
	warehouses := NewWarehouseService(db, notifications)
	reports := NewReportService(t.TempDir())

	cfg := config.SchedulerConfig{CronSpec: "0 * * * *", LookaheadDays: 7}
	s := NewPMSchedulerService(cfg, warehouses, pmService, workOrders, notifications, reports, clock)

	summary, err := s.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Warehouses)
	assert.Equal(t, 1, summary.Initialized)
	assert.Equal(t, 1, summary.WorkOrdersCreated)
	assert.Equal(t, 1, summary.OverdueNotified)
	assert.Equal(t, 1, summary.LowStockNotified)
	assert.Equal(t, 0, summary.Errors)
	assert.Equal(t, summary, s.LastRun())

	var stored models.PreventiveMaintenance
	require.NoError(t, db.First(&stored, "id = ?", pending.ID).Error)
	require.NotNil(t, stored.NextDueDate)
	assert.True(t, utc(2024, 6, 15).Equal(*stored.NextDueDate))

	var wo models.WorkOrder
	require.NoError(t, db.Where("pm_id = ?", overdue.ID).First(&wo).Error)
	assert.Equal(t, "high", wo.Priority)

	t.Run("second run is idempotent", func(t *testing.T) {
		summary, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.Initialized)
		assert.Equal(t, 0, summary.WorkOrdersCreated)
		assert.Equal(t, 0, summary.OverdueNotified)
		assert.Equal(t, 0, summary.LowStockNotified)
	})

	t.Run("concurrent run is skipped", func(t *testing.T) {
		s.running.Lock()
		defer s.running.Unlock()

		summary, err := s.RunOnce(ctx)
		require.NoError(t, err)
		assert.True(t, summary.Skipped)
	})

	t.Run("next run follows cron spec", func(t *testing.T) {
		next := s.NextRun()
		require.NotNil(t, next)
		assert.True(t, utc(2024, 6, 1).Add(time.Hour).Equal(*next))
	})
}

func TestPMSchedulerService_ExportDueReports(t *testing.T) {
	ctx := context.Background()
	db := testutils.SetupTestDB(t)
	now := utc(2024, 6, 1)

	warehouse := testutils.CreateTestWarehouse(t, db, uuid.New())
	equipment := testutils.CreateTestEquipment(t, db, warehouse, models.CriticalityLow)
	testutils.CreateTestPM(t, db, equipment, "Belt check", utc(2024, 1, 1), ptrTime(utc(2024, 6, 3)))

	pmService := NewPMService(db, NewCacheService(nil), models.AnchorCompletion)
	dir := t.TempDir()
	s := NewPMSchedulerService(
		config.SchedulerConfig{CronSpec: "0 * * * *", LookaheadDays: 7},
		NewWarehouseService(db, nil), pmService, NewWorkOrderService(db, pmService, nil), nil,
		NewReportService(dir), func() time.Time { return now },
	)

	files, err := s.ExportDueReports(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, dir, filepath.Dir(files[0]))
	assert.Contains(t, files[0], warehouse.ID.String())
}

func TestPMSchedulerService_StartStop(t *testing.T) {
	db := testutils.SetupTestDB(t)
	pmService := NewPMService(db, NewCacheService(nil), models.AnchorCompletion)
	s := NewPMSchedulerService(
		config.SchedulerConfig{CronSpec: "invalid spec"},
		NewWarehouseService(db, nil), pmService, NewWorkOrderService(db, pmService, nil), nil, nil, nil,
	)
	assert.Error(t, s.Start())

	s = NewPMSchedulerService(
		config.SchedulerConfig{CronSpec: "@every 1h", ReportCronSpec: "0 6 * * *"},
		NewWarehouseService(db, nil), pmService, NewWorkOrderService(db, pmService, nil), nil, NewReportService(t.TempDir()), nil,
	)
	require.NoError(t, s.Start())
	s.Stop()
}
