package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/export"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Services is everything the handlers depend on
type Services struct {
	Auth        service.IAuthService
	Users       service.IUserService
	Tags        service.ITagService
	Ingredients service.IIngredientService
	Recipes     service.IRecipeService
	Shopping    service.IShoppingService
	Renderer    *export.Renderer

	// RecipeCreationLimiter is optional; recipe creation is unlimited without it
	RecipeCreationLimiter *middleware.RateLimiter
	PageSize              int
}

// HealthCheck returns the health status of the API
func HealthCheck(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.HealthCheck(c.Request.Context(), db); err != nil {
			logging.Ctx(c.Request.Context()).Error().Err(err).Msg("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"message":  "Foodgram API is running",
			"database": "ok",
		})
	}
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, db *gorm.DB, s Services) {
	router.GET("/health", HealthCheck(db))
	router.GET("/api/health/", HealthCheck(db))

	group := router.Group("/api")
	NewAuthHandler(s.Auth).RegisterRoutes(group)
	NewUserHandler(s.Auth, s.Users, s.Recipes, s.PageSize).RegisterRoutes(group)
	NewTagHandler(s.Auth, s.Tags).RegisterRoutes(group)
	NewIngredientHandler(s.Ingredients).RegisterRoutes(group)
	NewRecipeHandlerWithRateLimit(s.Auth, s.Recipes, s.Users, s.Shopping, s.Renderer, s.PageSize, s.RecipeCreationLimiter).RegisterRoutes(group)
}
