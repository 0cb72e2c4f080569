package api

import (
	"pv_design/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all API routes for the block configurator.
func SetupRoutes(r *gin.Engine, svc *service.Service) {
	h := NewHandler(svc)

	api := r.Group("/api")
	{
		api.GET("/stats", h.GetStats)

		blocks := api.Group("/blocks")
		{
			blocks.GET("", h.GetBlocks)
			blocks.POST("", h.CreateBlock)
			blocks.GET("/:id", h.GetBlock)
			blocks.DELETE("/:id", h.DeleteBlock)
			blocks.PUT("/:id/wiring", h.ConfigureWiring)
			blocks.POST("/:id/validate", h.ValidateBlock)
		}

		api.POST("/sizing", h.CalculateSizes)
		api.POST("/modules/pan", h.ImportPAN)
		api.GET("/templates", h.GetTemplates)
		api.GET("/inverters", h.GetInverters)
		api.GET("/bom", h.GetBOM)

		project := api.Group("/project")
		{
			project.POST("/save", h.SaveProject)
			project.POST("/load", h.LoadProject)
		}
	}
}
