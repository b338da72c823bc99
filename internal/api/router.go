// Package api exposes search, paging and provider status over HTTP.
package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures the gin router with all routes and middleware.
func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(AccessLog(logger))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/jobs/search", h.Search)
		api.GET("/jobs", h.List)
		api.GET("/stats/skills", h.Skills)
		api.GET("/providers", h.Providers)
	}

	return router
}
