package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cmms_backend/models"
	"cmms_backend/scheduler"
)

// Ошибки сервиса графиков ТО
var (
	ErrPMNotFound        = errors.New("preventive maintenance not found")
	ErrPMInactive        = errors.New("preventive maintenance is inactive")
	ErrEquipmentNotFound = errors.New("equipment not found")
)

// Параметры пагинации по умолчанию
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PMFilters содержит фильтры списка графиков ТО
type PMFilters struct {
	Search        string
	EquipmentID   *uuid.UUID
	WarehouseID   *uuid.UUID
	FrequencyType *models.FrequencyType
	IsActive      *bool
	Overdue       *bool
	Page          int
	Limit         int
}

// PMPatch содержит изменяемые поля графика. Срок следующего обслуживания
// не принимается от клиента и всегда вычисляется сервисом.
type PMPatch struct {
	Name              *string
	Description       *string
	EstimatedDuration *int
	Instructions      *string
	FrequencyType     *models.FrequencyType
	FrequencyValue    *int
	FrequencyUnit     *models.FrequencyUnit
	Checklist         *[]models.ChecklistItem
	RequiredParts     *[]models.RequiredPart
	AssignedTo        *uuid.UUID
}

// CompletionInput описывает факт выполнения обслуживания
type CompletionInput struct {
	CompletedAt *time.Time
	CompletedBy *uuid.UUID
	WorkOrderID *uuid.UUID
	// Отметки пунктов чек-листа, сопоставляются по ID
	Checklist []models.ChecklistItem
	Notes     string
}

// DueReport содержит классификацию графиков на момент GeneratedAt
type DueReport struct {
	GeneratedAt   time.Time                `json:"generated_at"`
	LookaheadDays *int                     `json:"lookahead_days,omitempty"`
	WarehouseID   *uuid.UUID               `json:"warehouse_id,omitempty"`
	Summary       scheduler.Summary        `json:"summary"`
	Items         []scheduler.ClassifiedPM `json:"items"`
	Uninitialized []scheduler.ClassifiedPM `json:"uninitialized"`
}

// PartCostLine содержит стоимость одной позиции запчастей
type PartCostLine struct {
	PartID     uuid.UUID       `json:"part_id"`
	PartNumber string          `json:"part_number"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	IsOptional bool            `json:"is_optional"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	LineTotal  decimal.Decimal `json:"line_total"`
	StockLevel int             `json:"stock_level"`
	Shortage   int             `json:"shortage"`
}

// PartsEstimate содержит оценку стоимости запчастей для обслуживания
type PartsEstimate struct {
	PMID              uuid.UUID       `json:"pm_id"`
	Lines             []PartCostLine  `json:"lines"`
	RequiredTotal     decimal.Decimal `json:"required_total"`
	TotalWithOptional decimal.Decimal `json:"total_with_optional"`
	Shortages         []PartCostLine  `json:"shortages"`
	MissingParts      []uuid.UUID     `json:"missing_parts"`
}

// PMService предоставляет бизнес-логику графиков планового обслуживания
type PMService struct {
	DB     *gorm.DB
	Cache  *CacheService
	Policy models.AnchorPolicy
}

// NewPMService создает новый экземпляр PMService
func NewPMService(db *gorm.DB, cache *CacheService, policy models.AnchorPolicy) *PMService {
	if !policy.IsValid() {
		policy = models.AnchorCompletion
	}
	return &PMService{
		DB:     db,
		Cache:  cache,
		Policy: policy,
	}
}

// Create создает график ТО. NextDueDate вычисляется от момента создания
// (или от переданной даты последнего выполнения), переданное значение игнорируется.
func (s *PMService) Create(ctx context.Context, pm *models.PreventiveMaintenance, now time.Time) error {
	if pm.OrganizationID == uuid.Nil {
		return fmt.Errorf("%w: organization_id is required", models.ErrValidation)
	}
	if strings.TrimSpace(pm.Name) == "" {
		return fmt.Errorf("%w: name is required", models.ErrValidation)
	}
	if pm.EquipmentID == uuid.Nil {
		return fmt.Errorf("%w: equipment_id is required", models.ErrValidation)
	}
	if err := validateDefinition(pm); err != nil {
		return err
	}
	if err := s.checkPartsOwnership(ctx, pm.OrganizationID, pm.RequiredParts); err != nil {
		return err
	}

	var equipment models.Equipment
	err := s.DB.WithContext(ctx).
		Where("id = ? AND organization_id = ?", pm.EquipmentID, pm.OrganizationID).
		First(&equipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrEquipmentNotFound, pm.EquipmentID)
	}
	if err != nil {
		return fmt.Errorf("ошибка при получении оборудования: %w", err)
	}
	if pm.WarehouseID == uuid.Nil {
		pm.WarehouseID = equipment.WarehouseID
	}

	pm.ID = uuid.Nil
	pm.CreatedAt = now
	pm.UpdatedAt = now
	pm.NextDueDate = nil
	if pm.LastCompletedAt != nil && pm.LastCompletedAt.After(now) {
		return fmt.Errorf("%w: last_completed_at is in the future", models.ErrValidation)
	}
	if pm.IsActive {
		next, err := scheduler.ComputeNextDue(pm, models.AnchorCompletion)
		if err != nil {
			return err
		}
		pm.NextDueDate = &next
	}

	if err := s.DB.WithContext(ctx).Create(pm).Error; err != nil {
		return fmt.Errorf("ошибка при создании графика ТО: %w", err)
	}

	s.Cache.InvalidateDueReports(ctx, pm.OrganizationID)
	log.WithFields(log.Fields{
		"organization_id": pm.OrganizationID,
		"pm_id":           pm.ID,
		"frequency":       scheduler.FrequencyOf(pm).String(),
	}).Info("Создан график ТО")
	return nil
}

// validateDefinition проверяет периодичность, чек-лист и запчасти
func validateDefinition(pm *models.PreventiveMaintenance) error {
	if pm.FrequencyType != models.FrequencyCustom {
		pm.FrequencyUnit = ""
	}
	if err := scheduler.FrequencyOf(pm).Validate(); err != nil {
		return err
	}
	if err := models.ValidateChecklist(pm.Checklist); err != nil {
		return err
	}
	if err := models.ValidateRequiredParts(pm.RequiredParts); err != nil {
		return err
	}
	if pm.EstimatedDuration != nil && *pm.EstimatedDuration < 0 {
		return fmt.Errorf("%w: estimated_duration must not be negative", models.ErrValidation)
	}
	return nil
}

// orgParts загружает запчасти с указанными ID, принадлежащие складам организации
func (s *PMService) orgParts(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) ([]models.Part, error) {
	warehouses := s.DB.Model(&models.Warehouse{}).Select("id").Where("organization_id = ?", orgID)
	var parts []models.Part
	err := s.DB.WithContext(ctx).
		Where("id IN ? AND warehouse_id IN (?)", ids, warehouses).
		Find(&parts).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении запчастей: %w", err)
	}
	return parts, nil
}

// checkPartsOwnership отклоняет запчасти, которых нет на складах организации
func (s *PMService) checkPartsOwnership(ctx context.Context, orgID uuid.UUID, required []models.RequiredPart) error {
	if len(required) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(required))
	for _, rp := range required {
		ids = append(ids, rp.PartID)
	}
	parts, err := s.orgParts(ctx, orgID, ids)
	if err != nil {
		return err
	}
	known := make(map[uuid.UUID]bool, len(parts))
	for _, p := range parts {
		known[p.ID] = true
	}
	for _, rp := range required {
		if !known[rp.PartID] {
			return fmt.Errorf("%w: unknown part %s", models.ErrValidation, rp.PartID)
		}
	}
	return nil
}

// Get возвращает график ТО организации
func (s *PMService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.PreventiveMaintenance, error) {
	return s.get(s.DB.WithContext(ctx), orgID, id)
}

func (s *PMService) get(db *gorm.DB, orgID, id uuid.UUID) (*models.PreventiveMaintenance, error) {
	var pm models.PreventiveMaintenance
	err := db.Where("id = ? AND organization_id = ?", id, orgID).First(&pm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPMNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении графика ТО: %w", err)
	}
	return &pm, nil
}

// List возвращает графики ТО организации с фильтрами и пагинацией
func (s *PMService) List(ctx context.Context, orgID uuid.UUID, filters PMFilters, now time.Time) ([]models.PreventiveMaintenance, int64, error) {
	query := s.DB.WithContext(ctx).Model(&models.PreventiveMaintenance{}).
		Where("organization_id = ?", orgID)

	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}
	if filters.EquipmentID != nil {
		query = query.Where("equipment_id = ?", *filters.EquipmentID)
	}
	if filters.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *filters.WarehouseID)
	}
	if filters.FrequencyType != nil {
		query = query.Where("frequency_type = ?", *filters.FrequencyType)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.Overdue != nil {
		if *filters.Overdue {
			query = query.Where("is_active = ? AND next_due_date IS NOT NULL AND next_due_date < ?", true, now)
		} else {
			query = query.Where("NOT (is_active = ? AND next_due_date IS NOT NULL AND next_due_date < ?)", true, now)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка при подсчете графиков ТО: %w", err)
	}

	page, limit := normalizePage(filters.Page, filters.Limit)
	var records []models.PreventiveMaintenance
	err := query.Order("created_at ASC").Order("id ASC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка при получении графиков ТО: %w", err)
	}
	return records, total, nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// Update изменяет график ТО. При изменении периодичности срок пересчитывается
// от даты последнего выполнения (или создания).
func (s *PMService) Update(ctx context.Context, orgID, id uuid.UUID, patch PMPatch, now time.Time) (*models.PreventiveMaintenance, error) {
	pm, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	frequencyChanged := false
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", models.ErrValidation)
		}
		pm.Name = *patch.Name
	}
	if patch.Description != nil {
		pm.Description = *patch.Description
	}
	if patch.EstimatedDuration != nil {
		pm.EstimatedDuration = patch.EstimatedDuration
	}
	if patch.Instructions != nil {
		pm.Instructions = *patch.Instructions
	}
	if patch.FrequencyType != nil && *patch.FrequencyType != pm.FrequencyType {
		pm.FrequencyType = *patch.FrequencyType
		frequencyChanged = true
	}
	if patch.FrequencyValue != nil && *patch.FrequencyValue != pm.FrequencyValue {
		pm.FrequencyValue = *patch.FrequencyValue
		frequencyChanged = true
	}
	if patch.FrequencyUnit != nil && *patch.FrequencyUnit != pm.FrequencyUnit {
		pm.FrequencyUnit = *patch.FrequencyUnit
		frequencyChanged = true
	}
	if patch.Checklist != nil {
		pm.Checklist = *patch.Checklist
	}
	if patch.RequiredParts != nil {
		pm.RequiredParts = *patch.RequiredParts
	}
	if patch.AssignedTo != nil {
		pm.AssignedTo = patch.AssignedTo
	}

	if err := validateDefinition(pm); err != nil {
		return nil, err
	}
	if patch.RequiredParts != nil {
		if err := s.checkPartsOwnership(ctx, orgID, pm.RequiredParts); err != nil {
			return nil, err
		}
	}

	if frequencyChanged && pm.IsActive {
		// Прежний срок посчитан по старому правилу, поэтому якорь политики schedule не подходит
		next, err := scheduler.ComputeNextDue(pm, models.AnchorCompletion)
		if err != nil {
			return nil, err
		}
		pm.NextDueDate = &next
	}
	pm.UpdatedAt = now

	if err := s.DB.WithContext(ctx).Save(pm).Error; err != nil {
		return nil, fmt.Errorf("ошибка при обновлении графика ТО: %w", err)
	}

	s.Cache.InvalidateDueReports(ctx, orgID)
	return pm, nil
}

// RecordCompletion фиксирует выполнение обслуживания: обновляет дату последнего
// выполнения, пересчитывает срок, сохраняет запись истории и сбрасывает чек-лист.
func (s *PMService) RecordCompletion(ctx context.Context, orgID, id uuid.UUID, in CompletionInput, now time.Time) (*models.PMCompletion, error) {
	var completion *models.PMCompletion
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		completion, err = s.recordCompletion(tx, orgID, id, in, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Cache.InvalidateDueReports(ctx, orgID)
	log.WithFields(log.Fields{
		"organization_id": orgID,
		"pm_id":           id,
		"all_checked":     completion.AllChecked,
		"next_due_date":   completion.NextDueDate,
	}).Info("Зафиксировано выполнение ТО")
	return completion, nil
}

// recordCompletion выполняет фиксацию внутри переданной транзакции
func (s *PMService) recordCompletion(tx *gorm.DB, orgID, id uuid.UUID, in CompletionInput, now time.Time) (*models.PMCompletion, error) {
	pm, err := s.get(tx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !pm.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrPMInactive, id)
	}

	completedAt := now
	if in.CompletedAt != nil {
		completedAt = *in.CompletedAt
	}
	if completedAt.After(now) {
		return nil, fmt.Errorf("%w: completed_at is in the future", models.ErrValidation)
	}
	if pm.LastCompletedAt != nil && completedAt.Before(*pm.LastCompletedAt) {
		return nil, fmt.Errorf("%w: completed_at precedes last completion", models.ErrValidation)
	}

	checklist, err := mergeChecklist(pm.Checklist, in.Checklist)
	if err != nil {
		return nil, err
	}

	next, err := scheduler.NextDueOnCompletion(pm, s.Policy, completedAt)
	if err != nil {
		return nil, err
	}

	done, total := scheduler.ChecklistProgress(checklist)
	completion := &models.PMCompletion{
		PMID:            pm.ID,
		WorkOrderID:     in.WorkOrderID,
		CompletedAt:     completedAt,
		CompletedBy:     in.CompletedBy,
		AllChecked:      scheduler.AllChecked(checklist),
		ChecklistDone:   done,
		ChecklistTotal:  total,
		Checklist:       checklist,
		PreviousDueDate: pm.NextDueDate,
		NextDueDate:     next,
		Notes:           in.Notes,
	}
	if err := tx.Create(completion).Error; err != nil {
		return nil, fmt.Errorf("ошибка при сохранении истории ТО: %w", err)
	}

	pm.LastCompletedAt = &completedAt
	pm.NextDueDate = &next
	pm.Checklist = scheduler.ResetChecklist(checklist)
	pm.UpdatedAt = now
	if err := tx.Save(pm).Error; err != nil {
		return nil, fmt.Errorf("ошибка при обновлении графика ТО: %w", err)
	}
	return completion, nil
}

// mergeChecklist переносит отметки исполнителя на пункты графика
func mergeChecklist(current, marks []models.ChecklistItem) ([]models.ChecklistItem, error) {
	merged := make([]models.ChecklistItem, len(current))
	index := make(map[string]int, len(current))
	for i, item := range current {
		merged[i] = models.ChecklistItem{ID: item.ID, Task: item.Task, Completed: item.Completed, Notes: item.Notes}
		index[item.ID] = i
	}
	for _, mark := range marks {
		i, ok := index[mark.ID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown checklist item %q", models.ErrValidation, mark.ID)
		}
		merged[i].Completed = mark.Completed
		if mark.Notes != "" {
			merged[i].Notes = mark.Notes
		}
	}
	return merged, nil
}

// Deactivate выводит график из эксплуатации без удаления истории
func (s *PMService) Deactivate(ctx context.Context, orgID, id uuid.UUID, now time.Time) (*models.PreventiveMaintenance, error) {
	pm, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if !pm.IsActive {
		return pm, nil
	}

	pm.IsActive = false
	pm.UpdatedAt = now
	if err := s.DB.WithContext(ctx).Model(pm).Select("is_active", "updated_at").Updates(pm).Error; err != nil {
		return nil, fmt.Errorf("ошибка при деактивации графика ТО: %w", err)
	}

	s.Cache.InvalidateDueReports(ctx, orgID)
	log.WithFields(log.Fields{"organization_id": orgID, "pm_id": id}).Info("График ТО деактивирован")
	return pm, nil
}

// Activate возвращает график в работу. Если срок ни разу не вычислялся,
// он вычисляется от даты последнего выполнения (или создания).
func (s *PMService) Activate(ctx context.Context, orgID, id uuid.UUID, now time.Time) (*models.PreventiveMaintenance, error) {
	pm, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if pm.IsActive {
		return pm, nil
	}

	pm.IsActive = true
	if pm.NextDueDate == nil {
		next, err := scheduler.ComputeNextDue(pm, models.AnchorCompletion)
		if err != nil {
			return nil, err
		}
		pm.NextDueDate = &next
	}
	pm.UpdatedAt = now
	if err := s.DB.WithContext(ctx).Model(pm).Select("is_active", "next_due_date", "updated_at").Updates(pm).Error; err != nil {
		return nil, fmt.Errorf("ошибка при активации графика ТО: %w", err)
	}

	s.Cache.InvalidateDueReports(ctx, orgID)
	log.WithFields(log.Fields{"organization_id": orgID, "pm_id": id}).Info("График ТО активирован")
	return pm, nil
}

// activeQuery возвращает запрос активных графиков организации
func (s *PMService) activeQuery(ctx context.Context, orgID uuid.UUID, warehouseID *uuid.UUID) *gorm.DB {
	query := s.DB.WithContext(ctx).Where("organization_id = ? AND is_active = ?", orgID, true)
	if warehouseID != nil {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}
	return query.Order("created_at ASC").Order("id ASC")
}

// DueReport классифицирует активные графики организации относительно now.
// В Redis кэшируются только загруженные графики, классификация всегда
// выполняется заново для переданного момента времени.
func (s *PMService) DueReport(ctx context.Context, orgID uuid.UUID, warehouseID *uuid.UUID, now time.Time, lookaheadDays *int) (*DueReport, error) {
	if lookaheadDays != nil && *lookaheadDays < 0 {
		return nil, fmt.Errorf("%w: lookahead_days must not be negative", models.ErrValidation)
	}

	records, err := s.activeRecords(ctx, orgID, warehouseID)
	if err != nil {
		return nil, err
	}

	result := scheduler.Classify(records, now, lookaheadDays)
	return &DueReport{
		GeneratedAt:   now,
		LookaheadDays: lookaheadDays,
		WarehouseID:   warehouseID,
		Summary:       result.Summary(),
		Items:         result.Items,
		Uninitialized: result.Uninitialized,
	}, nil
}

// activeRecords загружает активные графики через кэш
func (s *PMService) activeRecords(ctx context.Context, orgID uuid.UUID, warehouseID *uuid.UUID) ([]models.PreventiveMaintenance, error) {
	key := DueReportKey(orgID, warehouseID)
	var records []models.PreventiveMaintenance
	if err := s.Cache.GetJSON(ctx, key, &records); err == nil {
		return records, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		log.WithError(err).Warn("Ошибка чтения кэша графиков ТО")
	}

	records = nil
	if err := s.activeQuery(ctx, orgID, warehouseID).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("ошибка при получении графиков ТО: %w", err)
	}

	if err := s.Cache.SetJSON(ctx, key, records, CacheTTLShort); err != nil {
		log.WithError(err).Warn("Ошибка записи кэша графиков ТО")
	}
	return records, nil
}

// InitializeDueDates вычисляет срок для активных графиков, у которых он еще не задан.
// Возвращает количество обновленных графиков.
func (s *PMService) InitializeDueDates(ctx context.Context, orgID uuid.UUID, warehouseID *uuid.UUID, now time.Time) (int, error) {
	var records []models.PreventiveMaintenance
	if err := s.activeQuery(ctx, orgID, warehouseID).Where("next_due_date IS NULL").Find(&records).Error; err != nil {
		return 0, fmt.Errorf("ошибка при получении графиков без срока: %w", err)
	}

	updated := 0
	for i := range records {
		pm := &records[i]
		next, err := scheduler.ComputeNextDue(pm, models.AnchorCompletion)
		if err != nil {
			log.WithError(err).WithField("pm_id", pm.ID).Warn("Не удалось вычислить срок графика ТО")
			continue
		}
		err = s.DB.WithContext(ctx).Model(pm).
			Select("next_due_date", "updated_at").
			Updates(map[string]interface{}{"next_due_date": next, "updated_at": now}).Error
		if err != nil {
			return updated, fmt.Errorf("ошибка при сохранении срока графика ТО: %w", err)
		}
		updated++
	}

	if updated > 0 {
		s.Cache.InvalidateDueReports(ctx, orgID)
		log.WithFields(log.Fields{"organization_id": orgID, "count": updated}).Info("Инициализированы сроки графиков ТО")
	}
	return updated, nil
}

// EstimatePartsCost оценивает стоимость запчастей для одного выполнения ТО
func (s *PMService) EstimatePartsCost(ctx context.Context, orgID, id uuid.UUID) (*PartsEstimate, error) {
	pm, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	estimate := &PartsEstimate{
		PMID:              pm.ID,
		Lines:             []PartCostLine{},
		RequiredTotal:     decimal.Zero,
		TotalWithOptional: decimal.Zero,
		Shortages:         []PartCostLine{},
		MissingParts:      []uuid.UUID{},
	}
	if len(pm.RequiredParts) == 0 {
		return estimate, nil
	}

	ids := make([]uuid.UUID, 0, len(pm.RequiredParts))
	for _, rp := range pm.RequiredParts {
		ids = append(ids, rp.PartID)
	}
	// Запчасти других организаций считаются отсутствующими
	parts, err := s.orgParts(ctx, orgID, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Part, len(parts))
	for _, p := range parts {
		byID[p.ID] = p
	}

	for _, rp := range pm.RequiredParts {
		part, ok := byID[rp.PartID]
		if !ok {
			estimate.MissingParts = append(estimate.MissingParts, rp.PartID)
			continue
		}
		line := PartCostLine{
			PartID:     part.ID,
			PartNumber: part.PartNumber,
			Name:       part.Name,
			Quantity:   rp.Quantity,
			IsOptional: rp.IsOptional,
			UnitCost:   part.UnitCost,
			LineTotal:  part.UnitCost.Mul(decimal.NewFromInt(int64(rp.Quantity))),
			StockLevel: part.StockLevel,
		}
		if part.StockLevel < rp.Quantity {
			line.Shortage = rp.Quantity - part.StockLevel
		}

		estimate.TotalWithOptional = estimate.TotalWithOptional.Add(line.LineTotal)
		if !rp.IsOptional {
			estimate.RequiredTotal = estimate.RequiredTotal.Add(line.LineTotal)
			if line.Shortage > 0 {
				estimate.Shortages = append(estimate.Shortages, line)
			}
		}
		estimate.Lines = append(estimate.Lines, line)
	}
	return estimate, nil
}
