package routes

import (
	"github.com/Kariqs/franchise-api/controllers"
	"github.com/Kariqs/franchise-api/middlewares"
	"github.com/gin-gonic/gin"
)

func AdminRoutes(server *gin.Engine, h *controllers.Handler, auth gin.HandlerFunc) {
	admin := server.Group("/admin", auth, middlewares.RequireAdmin())

	admin.GET("/orders", h.GetOrders)
	admin.GET("/orders/:orderId", h.GetOrderByID)
	admin.PATCH("/orders/:orderId/status", h.UpdateOrderStatus)

	admin.POST("/payments/expire", h.ExpirePayments)
	admin.POST("/payments/:transactionId/complete", h.CompletePayment)
	admin.POST("/payments/:transactionId/fail", h.FailPayment)

	admin.POST("/loyalty/:memberId/adjust", h.AdjustPoints)
	admin.POST("/loyalty/:memberId/rebuild", h.RebuildLoyalty)
}
