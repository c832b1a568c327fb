package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mantonx/gallery/internal/middleware"
)

// RegisterRoutes registers the media routes
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	h.logger.Debug("registering media routes")

	media := router.Group("/api/media")
	{
		media.GET("", h.getPage)
		media.GET("/count", h.getCount)
		media.GET("/access", h.getAccess)
		media.POST("/access", h.requestAccess)
	}
}

// RegisterMetrics exposes gatherer on /metrics
func RegisterMetrics(router gin.IRouter, gatherer prometheus.Gatherer) {
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// NewRouter builds a gin engine with the media routes and metrics
func NewRouter(h *Handler, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(h.logger))
	h.RegisterRoutes(router)
	if gatherer != nil {
		RegisterMetrics(router, gatherer)
	}
	return router
}
