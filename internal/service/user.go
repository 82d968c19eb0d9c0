package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

// UserService handles registration, profiles and subscriptions
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Register creates a regular user
func (s *UserService) Register(ctx context.Context, req *types.RegisterRequest) (*models.User, error) {
	if errs := validation.ValidateStruct(req); errs != nil {
		return nil, errs
	}

	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)

	errs := validation.Errors{}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		errs.Add("email", "A user with that email already exists.")
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		errs.Add("username", "A user with that username already exists.")
	}
	if len(errs) > 0 {
		return nil, errs
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Username:     username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, validation.Field("non_field_errors", "A user with that email or username already exists.")
		}
		return nil, err
	}
	return user, nil
}

// GetUser returns a user by id
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns one page of users ordered by id
func (s *UserService) ListUsers(ctx context.Context, page types.Page) ([]models.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Order("id").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// SetPassword replaces the password after checking the current one
func (s *UserService) SetPassword(ctx context.Context, userID uint, req *types.SetPasswordRequest) error {
	if errs := validation.ValidateStruct(req); errs != nil {
		return errs
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return validation.Field("current_password", "Invalid password.")
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error
}

// IsSubscribed reports whether userID follows authorID
func (s *UserService) IsSubscribed(ctx context.Context, userID, authorID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	return count > 0, err
}

// SubscribedAuthors returns which of authorIDs userID follows
func (s *UserService) SubscribedAuthors(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool)
	if userID == 0 || len(authorIDs) == 0 {
		return result, nil
	}

	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// Subscribe makes userID follow authorID and returns the author
func (s *UserService) Subscribe(ctx context.Context, userID, authorID uint) (*models.User, error) {
	author, err := s.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if userID == authorID {
		return nil, relationError(ErrSelfSubscription, "You cannot subscribe to yourself.")
	}

	subscribed, err := s.IsSubscribed(ctx, userID, authorID)
	if err != nil {
		return nil, err
	}
	if subscribed {
		return nil, relationError(ErrAlreadyExists, "You are already subscribed to this author.")
	}

	sub := &models.Subscription{UserID: userID, AuthorID: authorID}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return nil, relationError(ErrAlreadyExists, "You are already subscribed to this author.")
		case database.IsCheckViolation(err):
			return nil, relationError(ErrSelfSubscription, "You cannot subscribe to yourself.")
		}
		return nil, err
	}
	return author, nil
}

// Unsubscribe removes the follow relation
func (s *UserService) Unsubscribe(ctx context.Context, userID, authorID uint) error {
	if _, err := s.GetUser(ctx, authorID); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return relationError(ErrNotInList, "You are not subscribed to this author.")
	}
	return nil
}

// ListSubscriptions returns one page of the authors userID follows
func (s *UserService) ListSubscriptions(ctx context.Context, userID uint, page types.Page) ([]models.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var authors []models.User
	err := q.Select("users.*").
		Order("subscriptions.id").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&authors).Error
	if err != nil {
		return nil, 0, err
	}
	return authors, total, nil
}
