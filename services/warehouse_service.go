package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cmms_backend/models"
)

// ErrWarehouseNotFound возвращается, когда площадка не найдена
var ErrWarehouseNotFound = errors.New("warehouse not found")

// WarehouseService предоставляет бизнес-логику площадок и складских остатков
type WarehouseService struct {
	DB                  *gorm.DB
	NotificationService *NotificationService
}

// NewWarehouseService создает новый экземпляр WarehouseService
func NewWarehouseService(db *gorm.DB, notificationService *NotificationService) *WarehouseService {
	return &WarehouseService{
		DB:                  db,
		NotificationService: notificationService,
	}
}

// Get возвращает площадку организации
func (ws *WarehouseService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Warehouse, error) {
	var warehouse models.Warehouse
	err := ws.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", id, orgID).First(&warehouse).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWarehouseNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении площадки: %w", err)
	}
	return &warehouse, nil
}

// ListActive возвращает все активные площадки всех организаций
func (ws *WarehouseService) ListActive(ctx context.Context) ([]models.Warehouse, error) {
	var warehouses []models.Warehouse
	if err := ws.DB.WithContext(ctx).Where("is_active = ?", true).Order("created_at ASC").Find(&warehouses).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении площадок: %w", err)
	}
	return warehouses, nil
}

// CheckLowStockLevels проверяет остатки запчастей площадки и создает уведомления.
// Для запчасти с непрочитанным уведомлением повторное не создается.
// Возвращает количество созданных уведомлений.
func (ws *WarehouseService) CheckLowStockLevels(ctx context.Context, warehouse *models.Warehouse) (int, error) {
	var parts []models.Part
	err := ws.DB.WithContext(ctx).
		Where("warehouse_id = ? AND is_active = ? AND stock_level <= reorder_point", warehouse.ID, true).
		Find(&parts).Error
	if err != nil {
		return 0, fmt.Errorf("ошибка при получении запчастей: %w", err)
	}

	created := 0
	for i := range parts {
		part := &parts[i]

		var existing int64
		err := ws.DB.WithContext(ctx).Model(&models.Notification{}).
			Where("organization_id = ? AND type = ? AND read = ? AND title = ?",
				warehouse.OrganizationID, models.NotificationPartLowStock, false, lowStockTitle(part)).
			Count(&existing).Error
		if err != nil {
			log.WithError(err).WithField("part_id", part.ID).Warn("Ошибка при проверке уведомлений о низком остатке")
			continue
		}
		if existing > 0 {
			continue
		}

		if ws.NotificationService == nil {
			continue
		}
		if err := ws.NotificationService.NotifyLowStock(ctx, warehouse.OrganizationID, part); err != nil {
			log.WithError(err).WithField("part_id", part.ID).Warn("Ошибка при создании уведомления о низком остатке")
			continue
		}
		created++
	}

	return created, nil
}

func lowStockTitle(part *models.Part) string {
	return fmt.Sprintf("Низкий остаток: %s (%s)", part.Name, part.PartNumber)
}
