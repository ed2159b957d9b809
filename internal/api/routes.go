package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the engine's endpoints on the /api/v1 group.
func (h *Handler) RegisterRoutes(v1 *gin.RouterGroup) {
	products := v1.Group("/products/:id")
	{
		products.GET("/programs", h.DiscoverPrograms)      // GET /api/v1/products/:id/programs
		products.POST("/links", h.GenerateLink)            // POST /api/v1/products/:id/links
		products.GET("/links", h.ListLinks)                // GET /api/v1/products/:id/links
		products.GET("/ads/recommendation", h.RecommendAd) // GET /api/v1/products/:id/ads/recommendation
		products.POST("/ads", h.GenerateAd)                // POST /api/v1/products/:id/ads
		products.GET("/ads", h.AdHistory)                  // GET /api/v1/products/:id/ads
	}

	linkRoutes := v1.Group("/links")
	{
		linkRoutes.POST("/generate-all", h.GenerateAllLinks) // POST /api/v1/links/generate-all
		linkRoutes.POST("/:id/refresh", h.RefreshLink)       // POST /api/v1/links/:id/refresh
		linkRoutes.DELETE("/:id", h.DeleteLink)              // DELETE /api/v1/links/:id
	}
}
