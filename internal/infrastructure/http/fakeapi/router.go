package fakeapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ochotona/internal/infrastructure/http/fakeapi/middleware"
	"ochotona/pkg/logger"
)

// Config configures the fake API router.
type Config struct {
	Registry *Registry
	Logger   *logger.Logger

	// Gatherer backs /metrics; nil leaves the endpoint out
	Gatherer prometheus.Gatherer
}

// NewRouter creates the gin engine serving /api/{path} for every registry collection.
func NewRouter(cfg Config) (*gin.Engine, error) {
	if cfg.Registry == nil {
		cfg.Registry = NewInventoryRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	log := cfg.Logger.WithComponent("fake-api")
	router := gin.New()
	router.Use(
		middleware.Trace(log),
		middleware.Logger(log),
		middleware.ErrorHandler(),
		middleware.Recovery(),
	)

	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	for _, path := range cfg.Registry.Paths() {
		h, err := NewResourceHandler(cfg.Registry, path)
		if err != nil {
			return nil, err
		}
		api.GET("/"+path, h.List)
		api.POST("/"+path, h.Create)
		api.GET("/"+path+"/:id", h.Get)
		api.PUT("/"+path+"/:id", h.Update)
		api.PATCH("/"+path+"/:id", h.Patch)
		api.DELETE("/"+path+"/:id", h.Delete)
	}
	return router, nil
}
