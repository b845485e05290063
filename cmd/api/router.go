package api

import (
	"net/http"

	scheduleDelivery "actionitems-backend/internal/schedule/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, scheduleHandler *scheduleDelivery.ScheduleHandler) {
	api := r.Group("/api")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Action-item email schedules
		schedules := api.Group("/action-items/schedules")
		{
			schedules.GET("", scheduleHandler.ListSchedules)
			schedules.POST("", scheduleHandler.CreateSchedule)
			schedules.GET("/due", scheduleHandler.ListDueSchedules)
			schedules.GET("/:id", scheduleHandler.GetSchedule)
			schedules.PATCH("/:id", scheduleHandler.UpdateSchedule)
			schedules.POST("/:id/toggle", scheduleHandler.ToggleSchedule)
			schedules.POST("/:id/sent", scheduleHandler.MarkScheduleSent)
			schedules.DELETE("/:id", scheduleHandler.DeleteSchedule)
		}
	}
}
