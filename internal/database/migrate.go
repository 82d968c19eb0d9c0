package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/internal/logging"
	"github.com/pageza/foodgram/backend/internal/models"
)

// ErrNoMigrations is returned by Rollback when nothing has been applied
var ErrNoMigrations = errors.New("no migrations to rollback")

// AutoMigrate creates or updates the schema from the gorm models
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Recipe{}, "Tags", &models.RecipeTag{}); err != nil {
		return fmt.Errorf("failed to set up recipe tags: %w", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}
	if db.Dialector.Name() == "postgres" {
		// the model tag only checks the shape; postgres gets the full pattern
		if err := db.Exec(`ALTER TABLE tags DROP CONSTRAINT IF EXISTS chk_tag_color, ADD CONSTRAINT chk_tag_color CHECK (` + tagColorCheck + `)`).Error; err != nil {
			return fmt.Errorf("failed to set tag color check: %w", err)
		}
	}
	return nil
}

// tagColorCheck is the postgres CHECK expression for tag colors, matching migrations/000001
const tagColorCheck = `color ~ '^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$'`

// Migrator applies the versioned SQL files of a migrations directory.
// Files are named VERSION_name.sql; VERSION_name_rollback.sql undoes them.
type Migrator struct {
	db  *sql.DB
	dir string
}

func NewMigrator(db *sql.DB, dir string) *Migrator {
	return &Migrator{db: db, dir: dir}
}

// Files returns the forward migration files in apply order
func (m *Migrator) Files() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".sql" || strings.HasSuffix(name, "_rollback.sql") {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	return nil
}

// Up applies every pending migration, each in its own transaction.
// It returns the names of the files it applied.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	files, err := m.Files()
	if err != nil {
		return nil, err
	}
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	var applied []string
	for _, file := range files {
		version := migrationVersion(file)

		var exists bool
		err := m.db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", version,
		).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			logging.Debug().Str("migration", file).Msg("Skipping migration (already applied)")
			continue
		}

		content, err := os.ReadFile(filepath.Join(m.dir, file))
		if err != nil {
			return applied, fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		if err := m.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", file, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", version, file,
			); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", file, err)
			}
			return nil
		}); err != nil {
			return applied, err
		}

		logging.Info().Str("migration", file).Msg("Applied migration")
		applied = append(applied, file)
	}
	return applied, nil
}

// Rollback undoes the most recently applied migration
func (m *Migrator) Rollback(ctx context.Context) (string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return "", err
	}

	var version, name string
	err := m.db.QueryRowContext(ctx,
		"SELECT version, name FROM schema_migrations ORDER BY version DESC LIMIT 1",
	).Scan(&version, &name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoMigrations
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last migration: %w", err)
	}

	rollbackFile := strings.TrimSuffix(name, ".sql") + "_rollback.sql"
	content, err := os.ReadFile(filepath.Join(m.dir, rollbackFile))
	if err != nil {
		return "", fmt.Errorf("failed to read rollback file %s: %w", rollbackFile, err)
	}

	err = m.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute rollback %s: %w", rollbackFile, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", version); err != nil {
			return fmt.Errorf("failed to remove migration record: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	logging.Info().Str("migration", name).Msg("Rolled back migration")
	return name, nil
}

// MigrationStatus reports whether one migration file has been applied
type MigrationStatus struct {
	File    string
	Version string
	Applied bool
}

// Status lists every migration file with its applied state
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	files, err := m.Files()
	if err != nil {
		return nil, err
	}
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, len(files))
	for i, file := range files {
		version := migrationVersion(file)
		statuses[i] = MigrationStatus{File: file, Version: version, Applied: applied[version]}
	}
	return statuses, nil
}

func (m *Migrator) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func migrationVersion(file string) string {
	return strings.SplitN(file, "_", 2)[0]
}
