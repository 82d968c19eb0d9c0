package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// ShoppingService manages favorites, the shopping cart and the aggregated shopping list
type ShoppingService struct {
	db *gorm.DB
}

func NewShoppingService(db *gorm.DB) *ShoppingService {
	return &ShoppingService{db: db}
}

// userRecipeList describes one of the per-user recipe lists
type userRecipeList struct {
	model       func(userID, recipeID uint) interface{}
	existsMsg   string
	notFoundMsg string
}

var (
	favoritesList = userRecipeList{
		model: func(userID, recipeID uint) interface{} {
			return &models.Favourite{UserID: userID, RecipeID: recipeID}
		},
		existsMsg:   "Recipe is already in favorites.",
		notFoundMsg: "Recipe is not in favorites.",
	}
	cartList = userRecipeList{
		model: func(userID, recipeID uint) interface{} {
			return &models.ShoppingCart{UserID: userID, RecipeID: recipeID}
		},
		existsMsg:   "Recipe is already in the shopping cart.",
		notFoundMsg: "Recipe is not in the shopping cart.",
	}
)

func (s *ShoppingService) AddFavorite(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.add(ctx, favoritesList, userID, recipeID)
}

func (s *ShoppingService) RemoveFavorite(ctx context.Context, userID, recipeID uint) error {
	return s.remove(ctx, favoritesList, userID, recipeID)
}

func (s *ShoppingService) AddToCart(ctx context.Context, userID, recipeID uint) (*models.Recipe, error) {
	return s.add(ctx, cartList, userID, recipeID)
}

func (s *ShoppingService) RemoveFromCart(ctx context.Context, userID, recipeID uint) error {
	return s.remove(ctx, cartList, userID, recipeID)
}

func (s *ShoppingService) add(ctx context.Context, list userRecipeList, userID, recipeID uint) (*models.Recipe, error) {
	recipe, err := s.recipe(ctx, recipeID)
	if err != nil {
		return nil, err
	}

	row := list.model(userID, recipeID)
	var count int64
	err = s.db.WithContext(ctx).Model(row).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, relationError(ErrAlreadyExists, list.existsMsg)
	}

	// a concurrent duplicate still trips the unique index
	if err := s.db.WithContext(ctx).Omit("User", "Recipe").Create(row).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, relationError(ErrAlreadyExists, list.existsMsg)
		}
		return nil, err
	}
	return recipe, nil
}

func (s *ShoppingService) remove(ctx context.Context, list userRecipeList, userID, recipeID uint) error {
	if _, err := s.recipe(ctx, recipeID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(list.model(0, 0))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return relationError(ErrNotInList, list.notFoundMsg)
	}
	return nil
}

func (s *ShoppingService) recipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).First(&recipe, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// ShoppingList sums the ingredients of every recipe in the user's cart,
// one line per ingredient name and measurement unit.
func (s *ShoppingService) ShoppingList(ctx context.Context, userID uint) ([]types.ShoppingListItem, error) {
	items := []types.ShoppingListItem{}
	err := s.db.WithContext(ctx).
		Table("recipe_ingredients AS ri").
		Select("i.name AS name, i.measurement_unit AS measurement_unit, SUM(ri.amount) AS amount").
		Joins("JOIN ingredients i ON i.id = ri.ingredient_id").
		Joins("JOIN shopping_carts sc ON sc.recipe_id = ri.recipe_id").
		Where("sc.user_id = ?", userID).
		Group("i.name, i.measurement_unit").
		Order("i.name, i.measurement_unit").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
