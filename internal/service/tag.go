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

type TagService struct {
	db *gorm.DB
}

func NewTagService(db *gorm.DB) *TagService {
	return &TagService{db: db}
}

func (s *TagService) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := s.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

func (s *TagService) GetTag(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).First(&tag, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// CreateTag validates the color and the per-field uniqueness before inserting
func (s *TagService) CreateTag(ctx context.Context, req *types.TagRequest) (*models.Tag, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.TrimSpace(req.Slug)
	req.Color = strings.TrimSpace(req.Color)

	if errs := validation.ValidateStruct(req); errs != nil {
		return nil, errs
	}

	errs := validation.Errors{}
	for _, f := range []struct{ column, value string }{
		{"name", req.Name},
		{"color", req.Color},
		{"slug", req.Slug},
	} {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Tag{}).Where(f.column+" = ?", f.value).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			errs.Add(f.column, "tag with this "+f.column+" already exists.")
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	tag := &models.Tag{Name: req.Name, Color: req.Color, Slug: req.Slug}
	if err := s.db.WithContext(ctx).Create(tag).Error; err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return nil, validation.Field("non_field_errors", "A tag with these values already exists.")
		case database.IsCheckViolation(err):
			return nil, validation.Field("color", "Enter a valid hex color, e.g. #FFAA00.")
		}
		return nil, err
	}
	return tag, nil
}

func (s *TagService) DeleteTag(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Tag{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
