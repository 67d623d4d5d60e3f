package api

import (
	"github.com/gin-gonic/gin"
)

// Handlers объединяет обработчики API
type Handlers struct {
	PM            *PreventiveMaintenanceAPI
	WorkOrders    *WorkOrderAPI
	Notifications *NotificationAPI
	Scheduler     *SchedulerAPI
}

// RegisterRoutes регистрирует маршруты API в группе.
// heavy применяется к генерации нарядов и выгрузке отчетов, может быть nil.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, heavy gin.HandlerFunc) {
	limited := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		if heavy == nil {
			return []gin.HandlerFunc{handler}
		}
		return []gin.HandlerFunc{heavy, handler}
	}

	pm := group.Group("/pm")
	{
		pm.POST("", h.PM.CreatePM)
		pm.GET("", h.PM.GetPMs)
		pm.GET("/due", h.PM.GetDueReport)
		pm.GET("/due/export", limited(h.PM.ExportDueReport)...)
		pm.GET("/:id", h.PM.GetPM)
		pm.PUT("/:id", h.PM.UpdatePM)
		pm.POST("/:id/complete", h.PM.CompletePM)
		pm.POST("/:id/deactivate", h.PM.DeactivatePM)
		pm.POST("/:id/activate", h.PM.ActivatePM)
		pm.GET("/:id/parts-cost", h.PM.GetPartsCost)
	}

	group.POST("/warehouses/:id/pm-work-orders", limited(h.WorkOrders.GeneratePMWorkOrders)...)
	group.GET("/warehouses/:id/pm-compliance", h.WorkOrders.GetWarehouseCompliance)
	group.POST("/work-orders/:id/complete", h.WorkOrders.CompleteWorkOrder)
	group.GET("/equipment/:id/pm-compliance", h.WorkOrders.GetEquipmentCompliance)

	if h.Notifications != nil {
		group.GET("/notifications", h.Notifications.GetNotifications)
		group.POST("/notifications/:id/read", h.Notifications.MarkNotificationRead)
	}
	if h.Scheduler != nil {
		group.GET("/scheduler/status", h.Scheduler.GetStatus)
	}
}
