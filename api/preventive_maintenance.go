package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cmms_backend/middleware"
	"cmms_backend/models"
	"cmms_backend/services"
)

// PreventiveMaintenanceAPI представляет API графиков планового обслуживания
type PreventiveMaintenanceAPI struct {
	Service *services.PMService
	Reports *services.ReportService
	Clock   Clock
}

// NewPreventiveMaintenanceAPI создает новый экземпляр PreventiveMaintenanceAPI
func NewPreventiveMaintenanceAPI(service *services.PMService, reports *services.ReportService, clock Clock) *PreventiveMaintenanceAPI {
	return &PreventiveMaintenanceAPI{Service: service, Reports: reports, Clock: clock}
}

type createPMRequest struct {
	EquipmentID       uuid.UUID              `json:"equipment_id"`
	Name              string                 `json:"name" binding:"required"`
	Description       string                 `json:"description"`
	EstimatedDuration *int                   `json:"estimated_duration"`
	Instructions      string                 `json:"instructions"`
	FrequencyType     string                 `json:"frequency_type" binding:"required"`
	FrequencyValue    int                    `json:"frequency_value"`
	FrequencyUnit     string                 `json:"frequency_unit"`
	Checklist         []models.ChecklistItem `json:"checklist"`
	RequiredParts     []models.RequiredPart  `json:"required_parts"`
	AssignedTo        *uuid.UUID             `json:"assigned_to"`
	IsActive          *bool                  `json:"is_active"`
	LastCompletedAt   *time.Time             `json:"last_completed_at"`
}

type updatePMRequest struct {
	Name              *string                 `json:"name"`
	Description       *string                 `json:"description"`
	EstimatedDuration *int                    `json:"estimated_duration"`
	Instructions      *string                 `json:"instructions"`
	FrequencyType     *string                 `json:"frequency_type"`
	FrequencyValue    *int                    `json:"frequency_value"`
	FrequencyUnit     *string                 `json:"frequency_unit"`
	Checklist         *[]models.ChecklistItem `json:"checklist"`
	RequiredParts     *[]models.RequiredPart  `json:"required_parts"`
	AssignedTo        *uuid.UUID              `json:"assigned_to"`
}

type completePMRequest struct {
	CompletedAt *time.Time             `json:"completed_at"`
	CompletedBy *uuid.UUID             `json:"completed_by"`
	WorkOrderID *uuid.UUID             `json:"work_order_id"`
	Checklist   []models.ChecklistItem `json:"checklist"`
	Notes       string                 `json:"notes"`
}

// CreatePM создает график ТО
func (api *PreventiveMaintenanceAPI) CreatePM(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	var req createPMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	frequencyType, err := models.ParseFrequencyType(req.FrequencyType)
	if err != nil {
		respondError(c, err)
		return
	}

	pm := &models.PreventiveMaintenance{
		OrganizationID:    orgID,
		EquipmentID:       req.EquipmentID,
		Name:              req.Name,
		Description:       req.Description,
		EstimatedDuration: req.EstimatedDuration,
		Instructions:      req.Instructions,
		FrequencyType:     frequencyType,
		FrequencyValue:    req.FrequencyValue,
		FrequencyUnit:     models.FrequencyUnit(req.FrequencyUnit),
		Checklist:         req.Checklist,
		RequiredParts:     req.RequiredParts,
		AssignedTo:        req.AssignedTo,
		IsActive:          req.IsActive == nil || *req.IsActive,
		LastCompletedAt:   req.LastCompletedAt,
	}
	if err := api.Service.Create(c.Request.Context(), pm, api.Clock.now()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "График ТО успешно создан",
		"data":    pm,
	})
}

// GetPMs возвращает список графиков ТО с фильтрами и пагинацией
func (api *PreventiveMaintenanceAPI) GetPMs(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	filters := services.PMFilters{Search: c.Query("search")}
	var err error
	if filters.EquipmentID, err = optionalUUIDQuery(c, "equipment_id"); err != nil {
		respondError(c, err)
		return
	}
	if filters.WarehouseID, err = optionalUUIDQuery(c, "warehouse_id"); err != nil {
		respondError(c, err)
		return
	}
	if filters.IsActive, err = optionalBoolQuery(c, "is_active"); err != nil {
		respondError(c, err)
		return
	}
	if filters.Overdue, err = optionalBoolQuery(c, "overdue"); err != nil {
		respondError(c, err)
		return
	}
	if value := c.Query("frequency_type"); value != "" {
		frequencyType, err := models.ParseFrequencyType(value)
		if err != nil {
			respondError(c, err)
			return
		}
		filters.FrequencyType = &frequencyType
	}
	filters.Page, filters.Limit = pageParams(c)

	items, total, err := api.Service.List(c.Request.Context(), orgID, filters, api.Clock.now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "success",
		"data":       items,
		"pagination": pagination(filters.Page, filters.Limit, total),
	})
}

// GetPM возвращает график ТО по ID
func (api *PreventiveMaintenanceAPI) GetPM(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	pm, err := api.Service.Get(c.Request.Context(), orgID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": pm})
}

// UpdatePM обновляет определение графика ТО
func (api *PreventiveMaintenanceAPI) UpdatePM(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req updatePMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	patch := services.PMPatch{
		Name:              req.Name,
		Description:       req.Description,
		EstimatedDuration: req.EstimatedDuration,
		Instructions:      req.Instructions,
		FrequencyValue:    req.FrequencyValue,
		Checklist:         req.Checklist,
		RequiredParts:     req.RequiredParts,
		AssignedTo:        req.AssignedTo,
	}
	if req.FrequencyType != nil {
		frequencyType, err := models.ParseFrequencyType(*req.FrequencyType)
		if err != nil {
			respondError(c, err)
			return
		}
		patch.FrequencyType = &frequencyType
	}
	if req.FrequencyUnit != nil {
		unit := models.FrequencyUnit(*req.FrequencyUnit)
		patch.FrequencyUnit = &unit
	}

	pm, err := api.Service.Update(c.Request.Context(), orgID, id, patch, api.Clock.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "График ТО обновлен",
		"data":    pm,
	})
}

// CompletePM фиксирует выполнение обслуживания и возвращает новый срок
func (api *PreventiveMaintenanceAPI) CompletePM(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req completePMRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	if req.CompletedBy == nil {
		req.CompletedBy = middleware.GetUserID(c)
	}

	completion, err := api.Service.RecordCompletion(c.Request.Context(), orgID, id, services.CompletionInput{
		CompletedAt: req.CompletedAt,
		CompletedBy: req.CompletedBy,
		WorkOrderID: req.WorkOrderID,
		Checklist:   req.Checklist,
		Notes:       req.Notes,
	}, api.Clock.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Выполнение ТО зафиксировано",
		"data":    completion,
	})
}

// DeactivatePM снимает график с учета, история сохраняется
func (api *PreventiveMaintenanceAPI) DeactivatePM(c *gin.Context) {
	api.toggle(c, api.Service.Deactivate, "График ТО деактивирован")
}

// ActivatePM возвращает график в работу
func (api *PreventiveMaintenanceAPI) ActivatePM(c *gin.Context) {
	api.toggle(c, api.Service.Activate, "График ТО активирован")
}

type toggleFunc func(ctx context.Context, orgID, id uuid.UUID, now time.Time) (*models.PreventiveMaintenance, error)

func (api *PreventiveMaintenanceAPI) toggle(c *gin.Context, fn toggleFunc, message string) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	pm, err := fn(c.Request.Context(), orgID, id, api.Clock.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": message, "data": pm})
}

// GetPartsCost возвращает оценку стоимости запчастей для обслуживания
func (api *PreventiveMaintenanceAPI) GetPartsCost(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	estimate, err := api.Service.EstimatePartsCost(c.Request.Context(), orgID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": estimate})
}

// dueReport строит отчет по срокам из query параметров
func (api *PreventiveMaintenanceAPI) dueReport(c *gin.Context, orgID uuid.UUID) (*services.DueReport, error) {
	warehouseID, err := optionalUUIDQuery(c, "warehouse_id")
	if err != nil {
		return nil, err
	}
	lookahead, err := optionalIntQuery(c, "lookahead_days")
	if err != nil {
		return nil, err
	}
	if lookahead != nil && *lookahead < 0 {
		return nil, fmt.Errorf("%w: lookahead_days must not be negative", models.ErrValidation)
	}
	return api.Service.DueReport(c.Request.Context(), orgID, warehouseID, api.Clock.now(), lookahead)
}

// GetDueReport возвращает классификацию графиков: просроченные, ближайшие, плановые
func (api *PreventiveMaintenanceAPI) GetDueReport(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	report, err := api.dueReport(c, orgID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": report})
}

// ExportDueReport выгружает отчет по срокам в CSV, Excel, PDF или JSON
func (api *PreventiveMaintenanceAPI) ExportDueReport(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}

	format, err := services.ParseReportFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": err.Error()})
		return
	}

	report, err := api.dueReport(c, orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := api.Reports.Write(&buf, services.BuildDueReportData(report), format); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("pm_due_%s.%s", report.GeneratedAt.Format("20060102"), format.Extension())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
