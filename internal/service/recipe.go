package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// RecipeService handles recipe operations
type RecipeService struct {
	db     *gorm.DB
	images ImageStore
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, images ImageStore) *RecipeService {
	return &RecipeService{
		db:     db,
		images: images,
	}
}

// recipeInput is a validated write request with duplicates folded together
type recipeInput struct {
	ingredients []models.RecipeIngredient
	tagIDs      []uint
	image       *DecodedImage
}

// CreateRecipe creates a new recipe
func (s *RecipeService) CreateRecipe(ctx context.Context, authorID uint, req *types.RecipeRequest) (*models.Recipe, error) {
	in, err := s.prepare(ctx, req, true)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.saveImage(ctx, in.image)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    authorID,
		Name:        strings.TrimSpace(req.Name),
		Text:        req.Text,
		Image:       imageURL,
		CookingTime: req.CookingTime,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author", "Ingredients", "Tags").Create(recipe).Error; err != nil {
			return err
		}
		return replaceComponents(tx, recipe.ID, in)
	})
	if err != nil {
		s.deleteImage(ctx, imageURL)
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	logging.Info().Uint("recipe_id", recipe.ID).Uint("author_id", authorID).Msg("Recipe created")
	return s.GetRecipe(ctx, recipe.ID)
}

// GetRecipe retrieves a recipe with its author, ingredients and tags
func (s *RecipeService) GetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := preloadRecipe(s.db.WithContext(ctx)).First(&recipe, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// UpdateRecipe replaces a recipe's fields, ingredients and tags.
// Only the author or an admin may update; the image is kept when omitted.
func (s *RecipeService) UpdateRecipe(ctx context.Context, user *models.User, id uint, req *types.RecipeRequest) (*models.Recipe, error) {
	existing, err := s.getOwned(ctx, user, id)
	if err != nil {
		return nil, err
	}

	in, err := s.prepare(ctx, req, false)
	if err != nil {
		return nil, err
	}

	imageURL := existing.Image
	if in.image != nil {
		if imageURL, err = s.saveImage(ctx, in.image); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Recipe{ID: id}).
			Select("name", "text", "image", "cooking_time", "updated_at").
			Updates(&models.Recipe{
				Name:        strings.TrimSpace(req.Name),
				Text:        req.Text,
				Image:       imageURL,
				CookingTime: req.CookingTime,
			}).Error
		if err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeTag{}).Error; err != nil {
			return err
		}
		return replaceComponents(tx, id, in)
	})
	if err != nil {
		if imageURL != existing.Image {
			s.deleteImage(ctx, imageURL)
		}
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}

	if imageURL != existing.Image {
		s.deleteImage(ctx, existing.Image)
	}
	return s.GetRecipe(ctx, id)
}

// DeleteRecipe removes a recipe and every row that points at it
func (s *RecipeService) DeleteRecipe(ctx context.Context, user *models.User, id uint) error {
	existing, err := s.getOwned(ctx, user, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, dependent := range []interface{}{
			&models.Favourite{},
			&models.ShoppingCart{},
			&models.RecipeIngredient{},
			&models.RecipeTag{},
		} {
			if err := tx.Where("recipe_id = ?", id).Delete(dependent).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Recipe{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	s.deleteImage(ctx, existing.Image)
	return nil
}

// ListRecipes returns one page of recipes, newest first
func (s *RecipeService) ListRecipes(ctx context.Context, filter types.RecipeFilter, page types.Page) ([]models.Recipe, int64, error) {
	if (filter.IsFavorited || filter.IsInShoppingCart) && filter.Viewer == 0 {
		return []models.Recipe{}, 0, nil
	}

	q := s.db.WithContext(ctx).Model(&models.Recipe{})
	if filter.AuthorID != 0 {
		q = q.Where("recipes.author_id = ?", filter.AuthorID)
	}
	if len(filter.TagSlugs) > 0 {
		tagged := s.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", filter.TagSlugs)
		q = q.Where("recipes.id IN (?)", tagged)
	}
	if filter.IsFavorited {
		favorites := s.db.Model(&models.Favourite{}).Select("recipe_id").Where("user_id = ?", filter.Viewer)
		q = q.Where("recipes.id IN (?)", favorites)
	}
	if filter.IsInShoppingCart {
		cart := s.db.Model(&models.ShoppingCart{}).Select("recipe_id").Where("user_id = ?", filter.Viewer)
		q = q.Where("recipes.id IN (?)", cart)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	err := preloadRecipe(q).
		Order("recipes.id DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// RecipesByAuthor returns up to limit of the author's newest recipes and their total count.
// A limit of zero or less returns all of them.
func (s *RecipeService) RecipesByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Recipe{}).Where("author_id = ?", authorID).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	list := q.Order("id DESC")
	if limit > 0 {
		list = list.Limit(limit)
	}
	var recipes []models.Recipe
	if err := list.Find(&recipes).Error; err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// Flags reports which of recipeIDs the user has favorited or put in the cart
func (s *RecipeService) Flags(ctx context.Context, userID uint, recipeIDs []uint) (map[uint]bool, map[uint]bool, error) {
	favorited := make(map[uint]bool)
	inCart := make(map[uint]bool)
	if userID == 0 || len(recipeIDs) == 0 {
		return favorited, inCart, nil
	}

	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Favourite{}).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, nil, err
	}
	for _, id := range ids {
		favorited[id] = true
	}

	ids = nil
	err = s.db.WithContext(ctx).Model(&models.ShoppingCart{}).
		Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, nil, err
	}
	for _, id := range ids {
		inCart[id] = true
	}
	return favorited, inCart, nil
}

func (s *RecipeService) getOwned(ctx context.Context, user *models.User, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).First(&recipe, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if user == nil || (recipe.AuthorID != user.ID && !user.IsAdmin()) {
		return nil, ErrForbidden
	}
	return &recipe, nil
}

// prepare validates the request, coalesces duplicate ingredient ids by summing
// their amounts, drops duplicate tag ids and checks that every id exists.
func (s *RecipeService) prepare(ctx context.Context, req *types.RecipeRequest, imageRequired bool) (*recipeInput, error) {
	errs := validation.ValidateStruct(req)
	if errs == nil {
		errs = validation.Errors{}
	}

	in := &recipeInput{}
	switch {
	case req.Image != "":
		img, err := DecodeDataURI(req.Image)
		if err != nil {
			errs.Add("image", ErrInvalidImage.Error())
		}
		in.image = img
	case imageRequired:
		errs.Add("image", "This field is required.")
	}

	if len(errs) > 0 {
		return nil, errs
	}

	amounts := make(map[uint]int)
	for _, item := range req.Ingredients {
		if _, seen := amounts[item.ID]; !seen {
			in.ingredients = append(in.ingredients, models.RecipeIngredient{IngredientID: item.ID})
		}
		amounts[item.ID] += item.Amount
	}
	for i := range in.ingredients {
		in.ingredients[i].Amount = amounts[in.ingredients[i].IngredientID]
		if in.ingredients[i].Amount > 32767 {
			errs.Add("ingredients", fmt.Sprintf("Total amount for ingredient %d must not exceed 32767.", in.ingredients[i].IngredientID))
		}
	}

	seenTags := make(map[uint]bool)
	for _, id := range req.Tags {
		if !seenTags[id] {
			seenTags[id] = true
			in.tagIDs = append(in.tagIDs, id)
		}
	}

	ingredientIDs := make([]uint, 0, len(in.ingredients))
	for _, ri := range in.ingredients {
		ingredientIDs = append(ingredientIDs, ri.IngredientID)
	}
	missing, err := s.missingIDs(ctx, &models.Ingredient{}, ingredientIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		errs.Add("ingredients", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
	}

	missing, err = s.missingIDs(ctx, &models.Tag{}, in.tagIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range missing {
		errs.Add("tags", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return in, nil
}

// missingIDs returns the ids that have no row in model's table, sorted
func (s *RecipeService) missingIDs(ctx context.Context, model interface{}, ids []uint) ([]uint, error) {
	var found []uint
	if err := s.db.WithContext(ctx).Model(model).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}

	exists := make(map[uint]bool, len(found))
	for _, id := range found {
		exists[id] = true
	}
	var missing []uint
	for _, id := range ids {
		if !exists[id] {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing, nil
}

func (s *RecipeService) saveImage(ctx context.Context, img *DecodedImage) (string, error) {
	if img == nil {
		return "", nil
	}
	url, err := s.images.Save(ctx, img.Filename(), img.ContentType, bytes.NewReader(img.Data))
	if err != nil {
		return "", fmt.Errorf("failed to store recipe image: %w", err)
	}
	return url, nil
}

// deleteImage is best effort; a stale file is not worth failing a request for
func (s *RecipeService) deleteImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.images.Delete(ctx, url); err != nil {
		logging.Warn().Err(err).Str("image", url).Msg("Failed to delete recipe image")
	}
}

func replaceComponents(tx *gorm.DB, recipeID uint, in *recipeInput) error {
	rows := make([]models.RecipeIngredient, len(in.ingredients))
	for i, ri := range in.ingredients {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: ri.IngredientID, Amount: ri.Amount}
	}
	if err := tx.Omit("Ingredient").Create(&rows).Error; err != nil {
		return err
	}

	tags := make([]models.RecipeTag, len(in.tagIDs))
	for i, id := range in.tagIDs {
		tags[i] = models.RecipeTag{RecipeID: recipeID, TagID: id}
	}
	return tx.Create(&tags).Error
}

func preloadRecipe(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB { return db.Order("recipe_ingredients.id") }).
		Preload("Ingredients.Ingredient").
		Preload("Tags", func(db *gorm.DB) *gorm.DB { return db.Order("tags.id") })
}
