package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/middleware"
)

// SetupRouter configures the middleware chain and the application routes
func SetupRouter(cfg *config.Config, db *gorm.DB, services api.Services) *gin.Engine {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(
		middleware.Recovery(),
		middleware.RequestLogger(),
		middleware.Metrics(),
		middleware.CORS(cfg.AllowedOrigins()),
	)
	router.NoRoute(middleware.NotFound())
	router.NoMethod(middleware.MethodNotAllowed())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Uploaded images are served by the app only when they live on local disk
	if cfg.StorageBackend == "local" && strings.HasPrefix(cfg.MediaURL, "/") {
		router.Static(strings.TrimSuffix(cfg.MediaURL, "/"), cfg.MediaRoot)
	}

	api.RegisterRoutes(router, db, services)
	return router
}
