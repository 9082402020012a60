package routes

import (
	"github.com/Kariqs/franchise-api/controllers"
	"github.com/Kariqs/franchise-api/middlewares"
	"github.com/gin-gonic/gin"
)

// Register mounts every route group on server.
func Register(server *gin.Engine, h *controllers.Handler, jwtSecret string) {
	auth := middlewares.RequireAuth(jwtSecret)

	DefaultRoutes(server)
	CatalogRoutes(server, h, auth)
	CartRoutes(server, h, auth)
	OrderRoutes(server, h, auth)
	PaymentRoutes(server, h)
	LoyaltyRoutes(server, h, auth)
	AdminRoutes(server, h, auth)
	EventRoutes(server, h, auth)
}
