package routes

import (
	"github.com/Kariqs/franchise-api/controllers"
	"github.com/gin-gonic/gin"
)

func CatalogRoutes(server *gin.Engine, h *controllers.Handler, auth gin.HandlerFunc) {
	catalog := server.Group("/catalog", auth)
	catalog.GET("", h.GetProducts)
	catalog.GET("/:itemId", h.GetProduct)
}
