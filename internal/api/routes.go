package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures the API routes. Health routes come from the
// server builder.
func SetupRoutes(router *gin.Engine, handler *Handler, metrics http.Handler) {
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	index := router.Group("/api/v1/index")
	index.GET("/status", handler.GetStatus)
	index.POST("/rebuild", handler.Rebuild)
}
