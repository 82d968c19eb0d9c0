package types

// RegisterRequest represents the request body for creating a user
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Username  string `json:"username" validate:"required,max=150,slug"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest represents the token login body
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SetPasswordRequest represents the password change body
type SetPasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// TagRequest represents the request body for creating a tag
type TagRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Color string `json:"color" validate:"required,tagcolor"`
	Slug  string `json:"slug" validate:"required,max=200,slug"`
}

// IngredientAmount is one entry of a recipe's ingredient list
type IngredientAmount struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"gte=1,lte=32767"`
}

// RecipeRequest is the write body for creating and updating recipes.
// Image is a base64 data URI; it may be omitted on update.
type RecipeRequest struct {
	Ingredients []IngredientAmount `json:"ingredients" validate:"required,min=1,dive"`
	Tags        []uint             `json:"tags" validate:"required,min=1,dive,required"`
	Image       string             `json:"image"`
	Name        string             `json:"name" validate:"required,max=200"`
	Text        string             `json:"text" validate:"required"`
	CookingTime int                `json:"cooking_time" validate:"gte=1,lte=32767"`
}

// RecipeFilter narrows a recipe listing
type RecipeFilter struct {
	AuthorID         uint
	TagSlugs         []string
	IsFavorited      bool
	IsInShoppingCart bool
	// Viewer is the requesting user; zero for anonymous requests
	Viewer uint
}

// Page selects a window of a listing
type Page struct {
	Number int
	Limit  int
}

// Offset returns the number of rows before the page
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}
