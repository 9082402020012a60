package routes

import (
	"github.com/Kariqs/franchise-api/controllers"
	"github.com/gin-gonic/gin"
)

func CartRoutes(server *gin.Engine, h *controllers.Handler, auth gin.HandlerFunc) {
	cart := server.Group("/cart", auth)
	cart.GET("", h.GetCart)
	cart.DELETE("", h.ClearCart)
	cart.POST("/items", h.AddToCart)
	cart.PATCH("/items/:itemId", h.UpdateCartQuantity)
	cart.DELETE("/items/:itemId", h.RemoveFromCart)
}
