package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/api"
	"github.com/pageza/foodgram/backend/internal/export"
	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/router"
	"github.com/pageza/foodgram/backend/internal/service"
)

// Server represents the HTTP server
type Server struct {
	cfg    *config.Config
	router *gin.Engine
	http   *http.Server
}

// New wires the services and routes. redisClient may be nil, in which case
// revoked tokens are kept in memory and recipe creation is not rate limited.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	images, err := newImageStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	renderer, err := export.NewRenderer(cfg.PDFFontPath)
	if err != nil {
		return nil, err
	}

	var (
		denylist service.TokenDenylist
		limiter  *middleware.RateLimiter
	)
	if redisClient != nil {
		denylist = service.NewRedisDenylist(redisClient)
		limiter = middleware.NewRecipeCreationRateLimiter(redisClient, cfg.RecipeCreateLimit)
	} else {
		logging.Warn().Msg("Redis is not configured; using in-memory token denylist and no rate limiting")
	}

	recipes := service.NewRecipeService(db, images)
	services := api.Services{
		Auth:                  service.NewAuthService(db, cfg.JWTSecret, cfg.TokenTTL, denylist),
		Users:                 service.NewUserService(db),
		Tags:                  service.NewTagService(db),
		Ingredients:           service.NewIngredientService(db),
		Recipes:               recipes,
		Shopping:              service.NewShoppingService(db),
		Renderer:              renderer,
		RecipeCreationLimiter: limiter,
		PageSize:              cfg.PageSize,
	}

	r := router.SetupRouter(cfg, db, services)
	return &Server{
		cfg:    cfg,
		router: r,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Handler exposes the routes, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	logging.Info().Str("addr", s.http.Addr).Msg("Starting server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func newImageStore(ctx context.Context, cfg *config.Config) (service.ImageStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		s3Config, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure S3 storage: %w", err)
		}
		return service.NewS3ImageStore(s3Config), nil
	default:
		return service.NewLocalImageStore(cfg.MediaRoot, cfg.MediaURL), nil
	}
}
