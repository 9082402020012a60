package routes

import (
	"github.com/Kariqs/franchise-api/controllers"
	"github.com/gin-gonic/gin"
)

// PaymentRoutes exposes the gateway notification endpoint, which the
// gateway calls without a token.
func PaymentRoutes(server *gin.Engine, h *controllers.Handler) {
	server.POST("/payments/pesapal/ipn", h.HandlePesapalIPN)
	server.GET("/payments/pesapal/ipn", h.HandlePesapalIPN)
}
