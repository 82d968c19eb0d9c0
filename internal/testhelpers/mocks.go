package testhelpers

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/models"
)

// TestPassword is the plain text password of every fixture user
const TestPassword = "password123"

// PNGDataURI is a valid 1x1 PNG recipe image
const PNGDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// MockImageStore is a mock implementation of the service.ImageStore interface
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Save(ctx context.Context, name string, contentType string, body io.Reader) (string, error) {
	if body != nil {
		_, _ = io.Copy(io.Discard, body)
	}
	args := m.Called(ctx, name, contentType, body)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

// NewMockImageStore accepts every image and hands out predictable URLs
func NewMockImageStore() *MockImageStore {
	m := new(MockImageStore)
	m.On("Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("/media/recipes/test.png", nil).Maybe()
	m.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// CreateUser inserts a user whose password is TestPassword
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	return createUser(t, db, username, models.RoleUser)
}

// CreateAdmin inserts a user with the admin role
func CreateAdmin(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	return createUser(t, db, username, models.RoleAdmin)
}

func createUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        fmt.Sprintf("%s@example.com", username),
		Username:     username,
		FirstName:    "Test",
		LastName:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

// CreateIngredient inserts an ingredient
func CreateIngredient(t *testing.T, db *gorm.DB, name, unit string) *models.Ingredient {
	t.Helper()
	ingredient := &models.Ingredient{Name: name, MeasurementUnit: unit}
	if err := db.Create(ingredient).Error; err != nil {
		t.Fatalf("failed to create ingredient %s: %v", name, err)
	}
	return ingredient
}

// CreateTag inserts a tag
func CreateTag(t *testing.T, db *gorm.DB, name, color, slug string) *models.Tag {
	t.Helper()
	tag := &models.Tag{Name: name, Color: color, Slug: slug}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create tag %s: %v", name, err)
	}
	return tag
}
