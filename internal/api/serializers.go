package api

import (
	"context"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// presenter builds response bodies, filling in the per-viewer flags
type presenter struct {
	users   service.IUserService
	recipes service.IRecipeService
}

func userResponse(u *models.User, subscribed bool) types.UserResponse {
	return types.UserResponse{
		Email:        u.Email,
		ID:           u.ID,
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		IsSubscribed: subscribed,
	}
}

func tagResponse(t *models.Tag) types.TagResponse {
	return types.TagResponse{ID: t.ID, Name: t.Name, Color: t.Color, Slug: t.Slug}
}

func shortRecipe(r *models.Recipe) types.ShortRecipe {
	return types.ShortRecipe{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime}
}

func (p *presenter) user(ctx context.Context, viewer uint, u *models.User) (types.UserResponse, error) {
	subscribed, err := p.users.IsSubscribed(ctx, viewer, u.ID)
	if err != nil {
		return types.UserResponse{}, err
	}
	return userResponse(u, subscribed), nil
}

func (p *presenter) userList(ctx context.Context, viewer uint, users []models.User) ([]types.UserResponse, error) {
	ids := make([]uint, len(users))
	for i := range users {
		ids[i] = users[i].ID
	}
	subscribed, err := p.users.SubscribedAuthors(ctx, viewer, ids)
	if err != nil {
		return nil, err
	}

	out := make([]types.UserResponse, len(users))
	for i := range users {
		out[i] = userResponse(&users[i], subscribed[users[i].ID])
	}
	return out, nil
}

func (p *presenter) recipe(ctx context.Context, viewer uint, r *models.Recipe) (types.RecipeResponse, error) {
	list, err := p.recipeList(ctx, viewer, []models.Recipe{*r})
	if err != nil {
		return types.RecipeResponse{}, err
	}
	return list[0], nil
}

func (p *presenter) recipeList(ctx context.Context, viewer uint, recipes []models.Recipe) ([]types.RecipeResponse, error) {
	recipeIDs := make([]uint, len(recipes))
	authorIDs := make([]uint, 0, len(recipes))
	for i := range recipes {
		recipeIDs[i] = recipes[i].ID
		authorIDs = append(authorIDs, recipes[i].AuthorID)
	}

	favorited, inCart, err := p.recipes.Flags(ctx, viewer, recipeIDs)
	if err != nil {
		return nil, err
	}
	subscribed, err := p.users.SubscribedAuthors(ctx, viewer, authorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]types.RecipeResponse, len(recipes))
	for i := range recipes {
		r := &recipes[i]

		tags := make([]types.TagResponse, len(r.Tags))
		for j := range r.Tags {
			tags[j] = tagResponse(&r.Tags[j])
		}
		ingredients := make([]types.RecipeIngredientResponse, len(r.Ingredients))
		for j, ri := range r.Ingredients {
			ingredients[j] = types.RecipeIngredientResponse{
				ID:              ri.IngredientID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			}
		}

		out[i] = types.RecipeResponse{
			ID:               r.ID,
			Tags:             tags,
			Author:           userResponse(&r.Author, subscribed[r.AuthorID]),
			Ingredients:      ingredients,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
	}
	return out, nil
}

// subscriptionList renders followed authors with up to recipesLimit of their recipes.
// A recipesLimit of zero or less includes every recipe.
func (p *presenter) subscriptionList(ctx context.Context, authors []models.User, recipesLimit int) ([]types.SubscriptionResponse, error) {
	out := make([]types.SubscriptionResponse, len(authors))
	for i := range authors {
		recipes, total, err := p.recipes.RecipesByAuthor(ctx, authors[i].ID, recipesLimit)
		if err != nil {
			return nil, err
		}
		short := make([]types.ShortRecipe, len(recipes))
		for j := range recipes {
			short[j] = shortRecipe(&recipes[j])
		}
		out[i] = types.SubscriptionResponse{
			UserResponse: userResponse(&authors[i], true),
			Recipes:      short,
			RecipesCount: total,
		}
	}
	return out, nil
}
