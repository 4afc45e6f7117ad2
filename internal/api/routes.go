package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine, handler *Handler) {
	api := router.Group("/api")
	{
		api.POST("/comparables", handler.FindComparables)
		api.GET("/trend/:postal_code", handler.GetTrend)
		api.POST("/reports", handler.CreateReport)
		api.GET("/reports", handler.GetReportHistory)
		api.GET("/reports/:id", handler.GetReport)
		api.POST("/prospects", handler.CreateProspect)
		api.GET("/prospects", handler.GetProspects)
	}
}
