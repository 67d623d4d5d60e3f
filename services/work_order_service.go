package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cmms_backend/models"
	"cmms_backend/scheduler"
)

// Ошибки сервиса нарядов
var (
	ErrWorkOrderNotFound = errors.New("work order not found")
	ErrWorkOrderClosed   = errors.New("work order is already completed")
)

// GenerationResult содержит итог генерации нарядов по графикам ТО
type GenerationResult struct {
	WarehouseID uuid.UUID          `json:"warehouse_id"`
	Created     []models.WorkOrder `json:"created"`
	// Графики, пропущенные из-за открытого наряда или неработающего оборудования
	Skipped int `json:"skipped"`
}

// WorkOrderCompletionInput описывает выполнение наряда
type WorkOrderCompletionInput struct {
	CompletedAt *time.Time
	CompletedBy *uuid.UUID
	Checklist   []models.ChecklistItem
	Notes       string
}

// ComplianceStats содержит показатели соблюдения графиков ТО оборудования
type ComplianceStats struct {
	EquipmentID          uuid.UUID       `json:"equipment_id"`
	AssetTag             string          `json:"asset_tag,omitempty"`
	TotalPMCount         int             `json:"total_pm_count"`
	CompletedOnTime      int             `json:"completed_on_time"`
	MissedPMCount        int             `json:"missed_pm_count"`
	CompliancePercentage decimal.Decimal `json:"compliance_percentage"`
	LastPMDate           *time.Time      `json:"last_pm_date,omitempty"`
	NextPMDate           *time.Time      `json:"next_pm_date,omitempty"`
}

// WarehouseCompliance содержит сводные показатели по площадке
type WarehouseCompliance struct {
	WarehouseID           uuid.UUID         `json:"warehouse_id"`
	OverallComplianceRate decimal.Decimal   `json:"overall_compliance_rate"`
	TotalPMsScheduled     int               `json:"total_pms_scheduled"`
	TotalPMsCompleted     int               `json:"total_pms_completed"`
	OverdueCount          int               `json:"overdue_count"`
	Equipment             []ComplianceStats `json:"equipment"`
}

// WorkOrderService предоставляет бизнес-логику нарядов на плановое ТО
type WorkOrderService struct {
	DB                  *gorm.DB
	PMService           *PMService
	NotificationService *NotificationService
}

// NewWorkOrderService создает новый экземпляр WorkOrderService
func NewWorkOrderService(db *gorm.DB, pmService *PMService, notificationService *NotificationService) *WorkOrderService {
	return &WorkOrderService{
		DB:                  db,
		PMService:           pmService,
		NotificationService: notificationService,
	}
}

// GeneratePMWorkOrders создает наряды по графикам площадки, срок которых
// наступил или наступит в течение lookaheadDays. Наряд не создается, если
// по графику уже есть открытый наряд или оборудование не в работе.
func (s *WorkOrderService) GeneratePMWorkOrders(ctx context.Context, warehouse *models.Warehouse, now time.Time, lookaheadDays int) (*GenerationResult, error) {
	result := &GenerationResult{WarehouseID: warehouse.ID, Created: []models.WorkOrder{}}

	var records []models.PreventiveMaintenance
	err := s.PMService.activeQuery(ctx, warehouse.OrganizationID, &warehouse.ID).Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении графиков ТО: %w", err)
	}

	classified := scheduler.Classify(records, now, &lookaheadDays)
	due := append(classified.Filter(scheduler.Overdue), classified.Filter(scheduler.DueSoon)...)
	if len(due) == 0 {
		return result, nil
	}

	equipmentIDs := make([]uuid.UUID, 0, len(due))
	for _, item := range due {
		equipmentIDs = append(equipmentIDs, item.PM.EquipmentID)
	}
	var equipment []models.Equipment
	if err := s.DB.WithContext(ctx).Where("id IN ?", equipmentIDs).Find(&equipment).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении оборудования: %w", err)
	}
	equipmentByID := make(map[uuid.UUID]models.Equipment, len(equipment))
	for _, e := range equipment {
		equipmentByID[e.ID] = e
	}

	for _, item := range due {
		pm := item.PM
		eq, ok := equipmentByID[pm.EquipmentID]
		if !ok || !eq.IsOperational() {
			result.Skipped++
			continue
		}

		hasOpen, err := s.hasOpenPMWorkOrder(ctx, pm.ID)
		if err != nil {
			return nil, err
		}
		if hasOpen {
			result.Skipped++
			continue
		}

		wo := newPMWorkOrder(&pm, &eq)
		if err := s.DB.WithContext(ctx).Create(wo).Error; err != nil {
			return nil, fmt.Errorf("ошибка при создании наряда: %w", err)
		}
		result.Created = append(result.Created, *wo)

		if s.NotificationService != nil {
			if err := s.NotificationService.NotifyPMDue(ctx, &pm, wo); err != nil {
				log.WithError(err).WithField("work_order_id", wo.ID).Warn("Не удалось создать уведомление о наряде")
			}
		}
	}

	log.WithFields(log.Fields{
		"organization_id": warehouse.OrganizationID,
		"warehouse_id":    warehouse.ID,
		"created":         len(result.Created),
		"skipped":         result.Skipped,
	}).Info("Генерация нарядов по графикам ТО завершена")
	return result, nil
}

// hasOpenPMWorkOrder проверяет наличие невыполненного наряда по графику
func (s *WorkOrderService) hasOpenPMWorkOrder(ctx context.Context, pmID uuid.UUID) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.WorkOrder{}).
		Where("pm_id = ? AND type = ? AND status NOT IN ?", pmID, models.WorkOrderPreventive, closedStatuses()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("ошибка при проверке открытых нарядов: %w", err)
	}
	return count > 0, nil
}

func closedStatuses() []models.WorkOrderStatus {
	return []models.WorkOrderStatus{
		models.WorkOrderStatusCompleted,
		models.WorkOrderStatusVerified,
		models.WorkOrderStatusClosed,
	}
}

// newPMWorkOrder формирует наряд по графику ТО
func newPMWorkOrder(pm *models.PreventiveMaintenance, equipment *models.Equipment) *models.WorkOrder {
	status := models.WorkOrderStatusNew
	if pm.AssignedTo != nil {
		status = models.WorkOrderStatusAssigned
	}

	hours := decimal.Zero
	if pm.EstimatedDuration != nil {
		hours = decimal.NewFromInt(int64(*pm.EstimatedDuration)).Div(decimal.NewFromInt(60)).Round(2)
	}

	description := pm.Description
	if pm.Instructions != "" {
		description = pm.Instructions
	}

	return &models.WorkOrder{
		OrganizationID: pm.OrganizationID,
		WarehouseID:    pm.WarehouseID,
		EquipmentID:    &equipment.ID,
		PMID:           &pm.ID,
		Type:           models.WorkOrderPreventive,
		Status:         status,
		Priority:       models.PriorityForCriticality(equipment.Criticality),
		Title:          fmt.Sprintf("ТО: %s (%s)", pm.Name, equipment.AssetTag),
		Description:    description,
		AssignedTo:     pm.AssignedTo,
		DueDate:        pm.NextDueDate,
		EstimatedHours: hours,
	}
}

// Get возвращает наряд организации
func (s *WorkOrderService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.WorkOrder, error) {
	return s.get(s.DB.WithContext(ctx), orgID, id)
}

func (s *WorkOrderService) get(db *gorm.DB, orgID, id uuid.UUID) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	err := db.Where("id = ? AND organization_id = ?", id, orgID).First(&wo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWorkOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении наряда: %w", err)
	}
	return &wo, nil
}

// CompleteWorkOrder закрывает наряд. Для наряда по графику ТО в той же
// транзакции фиксируется выполнение графика и пересчитывается срок.
func (s *WorkOrderService) CompleteWorkOrder(ctx context.Context, orgID, id uuid.UUID, in WorkOrderCompletionInput, now time.Time) (*models.WorkOrder, *models.PMCompletion, error) {
	var (
		wo         *models.WorkOrder
		completion *models.PMCompletion
	)

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		wo, err = s.get(tx, orgID, id)
		if err != nil {
			return err
		}
		if !wo.Status.IsOpen() {
			return fmt.Errorf("%w: %s", ErrWorkOrderClosed, id)
		}

		completedAt := now
		if in.CompletedAt != nil {
			completedAt = *in.CompletedAt
		}

		if wo.Type == models.WorkOrderPreventive && wo.PMID != nil {
			completion, err = s.PMService.recordCompletion(tx, orgID, *wo.PMID, CompletionInput{
				CompletedAt: &completedAt,
				CompletedBy: in.CompletedBy,
				WorkOrderID: &wo.ID,
				Checklist:   in.Checklist,
				Notes:       in.Notes,
			}, now)
			switch {
			case errors.Is(err, ErrPMInactive):
				// График выведен из работы после создания наряда: закрываем наряд без пересчета
				log.WithField("pm_id", *wo.PMID).Warn("Наряд выполнен по неактивному графику ТО")
				completion = nil
			case err != nil:
				return err
			}
		}
		if completedAt.After(now) {
			return fmt.Errorf("%w: completed_at is in the future", models.ErrValidation)
		}

		wo.Status = models.WorkOrderStatusCompleted
		wo.CompletedAt = &completedAt
		if in.Notes != "" {
			wo.Notes = in.Notes
		}
		wo.UpdatedAt = now
		if err := tx.Save(wo).Error; err != nil {
			return fmt.Errorf("ошибка при обновлении наряда: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if completion != nil {
		s.PMService.Cache.InvalidateDueReports(ctx, orgID)
	}
	log.WithFields(log.Fields{
		"organization_id": orgID,
		"work_order_id":   id,
		"pm_completion":   completion != nil,
	}).Info("Наряд выполнен")
	return wo, completion, nil
}

// Compliance рассчитывает показатели соблюдения графиков ТО оборудования.
// Наряд учитывается, если его срок наступил или он уже выполнен; пропущенным
// считается наряд, выполненный позже срока или просроченный и не выполненный.
func (s *WorkOrderService) Compliance(ctx context.Context, orgID, equipmentID uuid.UUID, now time.Time) (*ComplianceStats, error) {
	var equipment models.Equipment
	err := s.DB.WithContext(ctx).Where("id = ? AND organization_id = ?", equipmentID, orgID).First(&equipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrEquipmentNotFound, equipmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении оборудования: %w", err)
	}
	return s.complianceFor(ctx, &equipment, now)
}

func (s *WorkOrderService) complianceFor(ctx context.Context, equipment *models.Equipment, now time.Time) (*ComplianceStats, error) {
	stats := &ComplianceStats{EquipmentID: equipment.ID, AssetTag: equipment.AssetTag}

	var orders []models.WorkOrder
	err := s.DB.WithContext(ctx).
		Where("equipment_id = ? AND type = ?", equipment.ID, models.WorkOrderPreventive).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении нарядов: %w", err)
	}

	for i := range orders {
		wo := &orders[i]
		if wo.CompletedAt != nil {
			stats.TotalPMCount++
			if wo.CompletedOnTime() {
				stats.CompletedOnTime++
			} else {
				stats.MissedPMCount++
			}
			if stats.LastPMDate == nil || wo.CompletedAt.After(*stats.LastPMDate) {
				completed := *wo.CompletedAt
				stats.LastPMDate = &completed
			}
			continue
		}
		if wo.Status.IsOpen() && wo.DueDate != nil && wo.DueDate.Before(now) {
			stats.TotalPMCount++
			stats.MissedPMCount++
		}
	}

	stats.CompliancePercentage = percentage(stats.TotalPMCount-stats.MissedPMCount, stats.TotalPMCount)

	var next models.PreventiveMaintenance
	err = s.DB.WithContext(ctx).
		Where("equipment_id = ? AND is_active = ? AND next_due_date IS NOT NULL", equipment.ID, true).
		Order("next_due_date ASC").
		First(&next).Error
	if err == nil {
		stats.NextPMDate = next.NextDueDate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("ошибка при получении ближайшего ТО: %w", err)
	}

	return stats, nil
}

// WarehouseCompliance рассчитывает показатели по работающему оборудованию площадки
func (s *WorkOrderService) WarehouseCompliance(ctx context.Context, warehouse *models.Warehouse, now time.Time) (*WarehouseCompliance, error) {
	var equipment []models.Equipment
	err := s.DB.WithContext(ctx).
		Where("warehouse_id = ? AND status = ?", warehouse.ID, models.EquipmentStatusActive).
		Order("asset_tag ASC").
		Find(&equipment).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении оборудования: %w", err)
	}

	summary := &WarehouseCompliance{WarehouseID: warehouse.ID, Equipment: []ComplianceStats{}}
	for i := range equipment {
		stats, err := s.complianceFor(ctx, &equipment[i], now)
		if err != nil {
			return nil, err
		}
		summary.Equipment = append(summary.Equipment, *stats)
		summary.TotalPMsScheduled += stats.TotalPMCount
		summary.TotalPMsCompleted += stats.TotalPMCount - stats.MissedPMCount
		summary.OverdueCount += stats.MissedPMCount
	}
	summary.OverallComplianceRate = percentage(summary.TotalPMsCompleted, summary.TotalPMsScheduled)
	return summary, nil
}

// percentage возвращает part/total в процентах с точностью до сотых; при total = 0 возвращает 100
func percentage(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromInt(int64(part)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(total))).Round(2)
}
