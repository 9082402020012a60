package routes

import (
	"github.com/Kariqs/franchise-api/controllers"
	"github.com/gin-gonic/gin"
)

func OrderRoutes(server *gin.Engine, h *controllers.Handler, auth gin.HandlerFunc) {
	server.POST("/checkout", auth, h.Checkout)

	orders := server.Group("/orders", auth)
	orders.GET("", h.GetMyOrders)
	orders.GET("/:orderId", h.GetMyOrder)
	orders.POST("/:orderId/cancel", h.CancelOrder)
	orders.POST("/:orderId/payments", h.InitiatePayment)
	orders.GET("/:orderId/payments", h.GetOrderPayments)
}
