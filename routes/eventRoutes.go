package routes

import (
	"github.com/Kariqs/franchise-api/controllers"
	"github.com/gin-gonic/gin"
)

func EventRoutes(server *gin.Engine, h *controllers.Handler, auth gin.HandlerFunc) {
	server.GET("/events", auth, h.StreamEvents)
}
