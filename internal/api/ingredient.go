package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
)

type IngredientHandler struct {
	ingredients service.IIngredientService
}

func NewIngredientHandler(ingredients service.IIngredientService) *IngredientHandler {
	return &IngredientHandler{ingredients: ingredients}
}

func (h *IngredientHandler) RegisterRoutes(router *gin.RouterGroup) {
	ingredients := router.Group("/ingredients")
	{
		ingredients.GET("/", h.ListIngredients)
		ingredients.GET("/:id/", h.GetIngredient)
	}
}

// ListIngredients supports a case-insensitive name prefix search via ?name=
func (h *IngredientHandler) ListIngredients(c *gin.Context) {
	ingredients, err := h.ingredients.ListIngredients(c.Request.Context(), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredients)
}

func (h *IngredientHandler) GetIngredient(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ingredient, err := h.ingredients.GetIngredient(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingredient)
}
