package service

import (
	"context"
	"io"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
)

// IAuthService defines the interface for authentication operations
type IAuthService interface {
	Login(ctx context.Context, email, password string) (string, error)
	Logout(ctx context.Context, claims *types.TokenClaims) error
	ValidateToken(ctx context.Context, token string) (*types.TokenClaims, error)
	GenerateToken(userID uint) (string, error)
	Authenticate(ctx context.Context, token string) (*models.User, *types.TokenClaims, error)
}

// IUserService defines the interface for user and subscription operations
type IUserService interface {
	Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	ListUsers(ctx context.Context, page types.Page) ([]models.User, int64, error)
	SetPassword(ctx context.Context, userID uint, req *types.SetPasswordRequest) error
	IsSubscribed(ctx context.Context, userID, authorID uint) (bool, error)
	SubscribedAuthors(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error)
	Subscribe(ctx context.Context, userID, authorID uint) (*models.User, error)
	Unsubscribe(ctx context.Context, userID, authorID uint) error
	ListSubscriptions(ctx context.Context, userID uint, page types.Page) ([]models.User, int64, error)
}

// ITagService defines the interface for tag operations
type ITagService interface {
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetTag(ctx context.Context, id uint) (*models.Tag, error)
	CreateTag(ctx context.Context, req *types.TagRequest) (*models.Tag, error)
	DeleteTag(ctx context.Context, id uint) error
}

// IIngredientService defines the interface for ingredient lookups
type IIngredientService interface {
	ListIngredients(ctx context.Context, namePrefix string) ([]models.Ingredient, error)
	GetIngredient(ctx context.Context, id uint) (*models.Ingredient, error)
}

// IRecipeService defines the interface for recipe operations
type IRecipeService interface {
	CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeRequest) (*models.Recipe, error)
	GetRecipe(ctx context.Context, id uint) (*models.Recipe, error)
	UpdateRecipe(ctx context.Context, user *models.User, id uint, req *types.RecipeRequest) (*models.Recipe, error)
	DeleteRecipe(ctx context.Context, user *models.User, id uint) error
	ListRecipes(ctx context.Context, filter types.RecipeFilter, page types.Page) ([]models.Recipe, int64, error)
	RecipesByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, int64, error)
	Flags(ctx context.Context, userID uint, recipeIDs []uint) (favorited, inCart map[uint]bool, err error)
}

// IShoppingService defines favorites, shopping cart and shopping list operations
type IShoppingService interface {
	AddFavorite(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)
	RemoveFavorite(ctx context.Context, userID, recipeID uint) error
	AddToCart(ctx context.Context, userID, recipeID uint) (*models.Recipe, error)
	RemoveFromCart(ctx context.Context, userID, recipeID uint) error
	ShoppingList(ctx context.Context, userID uint) ([]types.ShoppingListItem, error)
}

// ImageStore persists recipe images and returns their public URL
type ImageStore interface {
	Save(ctx context.Context, name string, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}
