package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cmms_backend/services"
)

// SchedulerAPI отдает состояние фонового планировщика ТО
type SchedulerAPI struct {
	scheduler *services.PMSchedulerService
}

// NewSchedulerAPI создает новый экземпляр SchedulerAPI. scheduler равен nil, если планировщик отключен.
func NewSchedulerAPI(scheduler *services.PMSchedulerService) *SchedulerAPI {
	return &SchedulerAPI{scheduler: scheduler}
}

// GetStatus возвращает итог последнего прохода и время следующего
func (api *SchedulerAPI) GetStatus(c *gin.Context) {
	if api.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"enabled": false}})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"enabled":  true,
			"last_run": api.scheduler.LastRun(),
			"next_run": api.scheduler.NextRun(),
		},
	})
}
