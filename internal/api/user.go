package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

type UserHandler struct {
	authService service.IAuthService
	users       service.IUserService
	present     *presenter
	pager       paginator
}

func NewUserHandler(authService service.IAuthService, users service.IUserService, recipes service.IRecipeService, pageSize int) *UserHandler {
	return &UserHandler{
		authService: authService,
		users:       users,
		present:     &presenter{users: users, recipes: recipes},
		pager:       newPaginator(pageSize),
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.AuthMiddleware(h.authService)
	optional := middleware.OptionalAuth(h.authService)

	users := router.Group("/users")
	{
		users.GET("/", optional, h.ListUsers)
		users.POST("/", h.Register)
		users.GET("/me/", auth, h.Me)
		users.POST("/set_password/", auth, h.SetPassword)
		users.GET("/subscriptions/", auth, h.ListSubscriptions)
		users.GET("/:id/", optional, h.GetUser)
		users.POST("/:id/subscribe/", auth, h.Subscribe)
		users.DELETE("/:id/subscribe/", auth, h.Unsubscribe)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	page, ok := h.pager.page(c)
	if !ok {
		return
	}

	users, total, err := h.users.ListUsers(c.Request.Context(), page)
	if err != nil {
		respondError(c, err)
		return
	}
	results, err := h.present.userList(c.Request.Context(), middleware.CurrentUserID(c), users)
	if err != nil {
		respondError(c, err)
		return
	}

	h.pager.write(c, page, total, results)
}

func (h *UserHandler) Register(c *gin.Context) {
	var req types.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userResponse(user, false))
}

func (h *UserHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, userResponse(middleware.CurrentUser(c), false))
}

func (h *UserHandler) SetPassword(c *gin.Context) {
	var req types.SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.users.SetPassword(c.Request.Context(), middleware.CurrentUserID(c), &req); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.present.user(c.Request.Context(), middleware.CurrentUserID(c), user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) ListSubscriptions(c *gin.Context) {
	page, ok := h.pager.page(c)
	if !ok {
		return
	}

	authors, total, err := h.users.ListSubscriptions(c.Request.Context(), middleware.CurrentUserID(c), page)
	if err != nil {
		respondError(c, err)
		return
	}
	results, err := h.present.subscriptionList(c.Request.Context(), authors, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.pager.write(c, page, total, results)
}

func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, ok := paramID(c, "id")
	if !ok {
		return
	}

	author, err := h.users.Subscribe(c.Request.Context(), middleware.CurrentUserID(c), authorID)
	if err != nil {
		respondError(c, err)
		return
	}
	results, err := h.present.subscriptionList(c.Request.Context(), []models.User{*author}, recipesLimit(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, results[0])
}

func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.users.Unsubscribe(c.Request.Context(), middleware.CurrentUserID(c), authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// recipesLimit reads the recipes_limit query parameter; zero means no limit
func recipesLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("recipes_limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
