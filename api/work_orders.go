package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cmms_backend/middleware"
	"cmms_backend/models"
	"cmms_backend/services"
)

// WorkOrderAPI представляет API нарядов на плановое ТО и показателей соблюдения графиков
type WorkOrderAPI struct {
	WorkOrders    *services.WorkOrderService
	Warehouses    *services.WarehouseService
	LookaheadDays int
	Clock         Clock
}

// NewWorkOrderAPI создает новый экземпляр WorkOrderAPI
func NewWorkOrderAPI(workOrders *services.WorkOrderService, warehouses *services.WarehouseService, lookaheadDays int, clock Clock) *WorkOrderAPI {
	return &WorkOrderAPI{
		WorkOrders:    workOrders,
		Warehouses:    warehouses,
		LookaheadDays: lookaheadDays,
		Clock:         clock,
	}
}

type completeWorkOrderRequest struct {
	CompletedAt *time.Time             `json:"completed_at"`
	Checklist   []models.ChecklistItem `json:"checklist"`
	Notes       string                 `json:"notes"`
}

// GeneratePMWorkOrders создает наряды по просроченным и ближайшим графикам площадки
// POST /warehouses/:id/pm-work-orders?lookahead_days=7
func (api *WorkOrderAPI) GeneratePMWorkOrders(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	warehouseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	lookahead := api.LookaheadDays
	if value, err := optionalIntQuery(c, "lookahead_days"); err != nil {
		respondError(c, err)
		return
	} else if value != nil {
		if *value < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "error": "lookahead_days не может быть отрицательным"})
			return
		}
		lookahead = *value
	}

	warehouse, err := api.Warehouses.Get(c.Request.Context(), orgID, warehouseID)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := api.WorkOrders.GeneratePMWorkOrders(c.Request.Context(), warehouse, api.Clock.now(), lookahead)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": result})
}

// CompleteWorkOrder закрывает наряд; для наряда на ТО фиксируется выполнение графика
func (api *WorkOrderAPI) CompleteWorkOrder(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req completeWorkOrderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	wo, completion, err := api.WorkOrders.CompleteWorkOrder(c.Request.Context(), orgID, id, services.WorkOrderCompletionInput{
		CompletedAt: req.CompletedAt,
		CompletedBy: middleware.GetUserID(c),
		Checklist:   req.Checklist,
		Notes:       req.Notes,
	}, api.Clock.now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Наряд выполнен",
		"data": gin.H{
			"work_order": wo,
			"completion": completion,
		},
	})
}

// GetEquipmentCompliance возвращает показатели соблюдения графиков ТО оборудования
func (api *WorkOrderAPI) GetEquipmentCompliance(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	equipmentID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	stats, err := api.WorkOrders.Compliance(c.Request.Context(), orgID, equipmentID, api.Clock.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": stats})
}

// GetWarehouseCompliance возвращает сводные показатели по площадке
func (api *WorkOrderAPI) GetWarehouseCompliance(c *gin.Context) {
	orgID, ok := organizationID(c)
	if !ok {
		return
	}
	warehouseID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	warehouse, err := api.Warehouses.Get(c.Request.Context(), orgID, warehouseID)
	if err != nil {
		respondError(c, err)
		return
	}

	summary, err := api.WorkOrders.WarehouseCompliance(c.Request.Context(), warehouse, api.Clock.now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": summary})
}
