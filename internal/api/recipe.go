package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/export"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

type RecipeHandler struct {
	authService   service.IAuthService
	recipes       service.IRecipeService
	shopping      service.IShoppingService
	renderer      *export.Renderer
	createLimiter *middleware.RateLimiter
	present       *presenter
	pager         paginator
}

func NewRecipeHandler(
	authService service.IAuthService,
	recipes service.IRecipeService,
	users service.IUserService,
	shopping service.IShoppingService,
	renderer *export.Renderer,
	pageSize int,
) *RecipeHandler {
	return &RecipeHandler{
		authService: authService,
		recipes:     recipes,
		shopping:    shopping,
		renderer:    renderer,
		present:     &presenter{users: users, recipes: recipes},
		pager:       newPaginator(pageSize),
	}
}

// NewRecipeHandlerWithRateLimit limits recipe creation per user
func NewRecipeHandlerWithRateLimit(
	authService service.IAuthService,
	recipes service.IRecipeService,
	users service.IUserService,
	shopping service.IShoppingService,
	renderer *export.Renderer,
	pageSize int,
	createLimiter *middleware.RateLimiter,
) *RecipeHandler {
	h := NewRecipeHandler(authService, recipes, users, shopping, renderer, pageSize)
	h.createLimiter = createLimiter
	return h
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.AuthMiddleware(h.authService)
	optional := middleware.OptionalAuth(h.authService)

	create := []gin.HandlerFunc{auth}
	if h.createLimiter != nil {
		create = append(create, h.createLimiter.RateLimitMiddleware())
	}
	create = append(create, h.CreateRecipe)

	recipes := router.Group("/recipes")
	{
		recipes.GET("/", optional, h.ListRecipes)
		recipes.POST("/", create...)
		recipes.GET("/download_shopping_cart/", auth, h.DownloadShoppingCart)
		recipes.GET("/:id/", optional, h.GetRecipe)
		recipes.PATCH("/:id/", auth, h.UpdateRecipe)
		recipes.DELETE("/:id/", auth, h.DeleteRecipe)
		recipes.POST("/:id/favorite/", auth, h.AddFavorite)
		recipes.DELETE("/:id/favorite/", auth, h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart/", auth, h.AddToCart)
		recipes.DELETE("/:id/shopping_cart/", auth, h.RemoveFromCart)
	}
}

// ListRecipes supports the author, tags, is_favorited and is_in_shopping_cart filters
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	page, ok := h.pager.page(c)
	if !ok {
		return
	}

	viewer := middleware.CurrentUserID(c)
	filter := types.RecipeFilter{
		TagSlugs:         c.QueryArray("tags"),
		IsFavorited:      queryFlag(c, "is_favorited"),
		IsInShoppingCart: queryFlag(c, "is_in_shopping_cart"),
		Viewer:           viewer,
	}
	if raw := c.Query("author"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, validation.Field("author", "Enter a whole number."))
			return
		}
		filter.AuthorID = uint(id)
	}

	recipes, total, err := h.recipes.ListRecipes(c.Request.Context(), filter, page)
	if err != nil {
		respondError(c, err)
		return
	}
	results, err := h.present.recipeList(c.Request.Context(), viewer, recipes)
	if err != nil {
		respondError(c, err)
		return
	}

	h.pager.write(c, page, total, results)
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	recipe, err := h.recipes.GetRecipe(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	resp, err := h.present.recipe(c.Request.Context(), middleware.CurrentUserID(c), recipe)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := middleware.CurrentUserID(c)
	recipe, err := h.recipes.CreateRecipe(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.RecipesCreated.Inc()

	resp, err := h.present.recipe(c.Request.Context(), userID, recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req types.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	user := middleware.CurrentUser(c)
	recipe, err := h.recipes.UpdateRecipe(c.Request.Context(), user, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.present.recipe(c.Request.Context(), user.ID, recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := h.recipes.DeleteRecipe(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	h.addToList(c, h.shopping.AddFavorite)
}

func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	h.removeFromList(c, h.shopping.RemoveFavorite)
}

func (h *RecipeHandler) AddToCart(c *gin.Context) {
	h.addToList(c, h.shopping.AddToCart)
}

func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	h.removeFromList(c, h.shopping.RemoveFromCart)
}

// DownloadShoppingCart renders the summed ingredients of every recipe in the cart.
// The default is a PDF; ?format=txt returns plain text.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	user := middleware.CurrentUser(c)
	items, err := h.shopping.ShoppingList(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	list := &export.ShoppingList{
		Owner:       strings.TrimSpace(user.FirstName + " " + user.LastName),
		Username:    user.Username,
		GeneratedAt: time.Now(),
		Items:       items,
	}

	format := strings.ToLower(c.DefaultQuery("format", "pdf"))
	var (
		body        []byte
		contentType string
		filename    string
	)
	switch format {
	case "txt":
		body, err = h.renderer.Text(list)
		contentType = "text/plain; charset=utf-8"
		filename = strings.TrimSuffix(export.Filename, ".pdf") + ".txt"
	case "pdf":
		body, err = h.renderer.PDF(list)
		contentType = "application/pdf"
		filename = export.Filename
	default:
		c.JSON(http.StatusBadRequest, validation.Field("format", "Select a valid choice. Use pdf or txt."))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	metrics.ShoppingListDownloads.WithLabelValues(format).Inc()
	c.Header("Content-Disposition", "inline; filename="+filename)
	c.Data(http.StatusOK, contentType, body)
}

type listAdder func(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)

type listRemover func(ctx context.Context, userID, recipeID uint) error

func (h *RecipeHandler) addToList(c *gin.Context, add listAdder) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	recipe, err := add(c.Request.Context(), middleware.CurrentUserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shortRecipe(recipe))
}

func (h *RecipeHandler) removeFromList(c *gin.Context, remove listRemover) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := remove(c.Request.Context(), middleware.CurrentUserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// queryFlag reads a boolean filter; "1" and "true" enable it
func queryFlag(c *gin.Context, name string) bool {
	v := strings.ToLower(c.Query(name))
	return v == "1" || v == "true"
}
