// Package seed loads reference data (ingredients and tags) from CSV files
// and creates convenience accounts for local development.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/validation"
)

const batchSize = 500

// Result counts what a load did
type Result struct {
	Read     int
	Inserted int64
}

// LoadIngredients reads "name,measurement_unit" rows. Rows already present are skipped.
func LoadIngredients(ctx context.Context, db *gorm.DB, r io.Reader) (Result, error) {
	var res Result
	var batch []models.Ingredient

	err := readRows(r, 2, func(line int, row []string) error {
		name, unit := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if name == "" || unit == "" {
			return fmt.Errorf("line %d: name and measurement unit are required", line)
		}
		res.Read++
		batch = append(batch, models.Ingredient{Name: name, MeasurementUnit: unit})
		return nil
	})
	if err != nil {
		return res, err
	}

	for start := 0; start < len(batch); start += batchSize {
		end := start + batchSize
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]
		result := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&chunk)
		if result.Error != nil {
			return res, fmt.Errorf("failed to insert ingredients: %w", result.Error)
		}
		res.Inserted += result.RowsAffected
	}

	logging.Info().Int("read", res.Read).Int64("inserted", res.Inserted).Msg("Ingredients loaded")
	return res, nil
}

// LoadTags reads "name,color,slug" rows. Colors must be #RGB or #RRGGBB.
func LoadTags(ctx context.Context, db *gorm.DB, r io.Reader) (Result, error) {
	var res Result
	var tags []models.Tag

	err := readRows(r, 3, func(line int, row []string) error {
		tag := models.Tag{
			Name:  strings.TrimSpace(row[0]),
			Color: strings.TrimSpace(row[1]),
			Slug:  strings.TrimSpace(row[2]),
		}
		if tag.Name == "" || tag.Slug == "" {
			return fmt.Errorf("line %d: name and slug are required", line)
		}
		if !validation.IsTagColor(tag.Color) {
			return fmt.Errorf("line %d: invalid color %q", line, tag.Color)
		}
		res.Read++
		tags = append(tags, tag)
		return nil
	})
	if err != nil {
		return res, err
	}

	if len(tags) > 0 {
		result := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&tags)
		if result.Error != nil {
			return res, fmt.Errorf("failed to insert tags: %w", result.Error)
		}
		res.Inserted = result.RowsAffected
	}

	logging.Info().Int("read", res.Read).Int64("inserted", res.Inserted).Msg("Tags loaded")
	return res, nil
}

// EnsureUser creates the user unless the email is taken and returns the stored row
func EnsureUser(ctx context.Context, db *gorm.DB, user models.User, password string) (*models.User, bool, error) {
	var existing models.User
	err := db.WithContext(ctx).Where("email = ?", user.Email).First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, true, nil
}

// DummyUser is the development account created by load-data --dummy-user
func DummyUser() models.User {
	return models.User{
		Email:     "dummy@example.com",
		Username:  "dummy",
		FirstName: "Dummy",
		LastName:  "User",
	}
}

// readRows calls fn for every non-empty row. A header row whose first cell is
// "name" is skipped.
func readRows(r io.Reader, fields int, fn func(line int, row []string) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = fields
	reader.TrimLeadingSpace = true

	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read csv: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "name") {
			continue
		}
		if err := fn(line, row); err != nil {
			return err
		}
	}
}
