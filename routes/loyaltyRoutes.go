package routes

import (
	"github.com/Kariqs/franchise-api/controllers"
	"github.com/gin-gonic/gin"
)

func LoyaltyRoutes(server *gin.Engine, h *controllers.Handler, auth gin.HandlerFunc) {
	loyalty := server.Group("/loyalty", auth)
	loyalty.GET("", h.GetLoyaltyBalance)
	loyalty.GET("/transactions", h.GetLoyaltyTransactions)
	loyalty.POST("/redeem", h.RedeemPoints)
}
