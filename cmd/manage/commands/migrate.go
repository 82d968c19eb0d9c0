package commands

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/pageza/foodgram/backend/internal/database"
)

var migrationsDir string

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Run the versioned SQL migrations in the migrations directory.

Subcommands:
  up        - Apply pending migrations
  rollback  - Undo the most recent migration
  status    - Show which migrations are applied

With db_driver=sqlite the schema is created from the models instead.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DBDriver == "sqlite" {
			db, closeFn, err := openDB()
			if err != nil {
				return err
			}
			defer closeFn()
			if err := database.AutoMigrate(db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema migrated from models.")
			return nil
		}

		return withMigrator(func(m *database.Migrator) error {
			applied, err := m.Up(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending migrations.")
				return nil
			}
			for _, file := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %s\n", file)
			}
			return nil
		})
	},
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Undo the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *database.Migrator) error {
			name, err := m.Rollback(cmd.Context())
			if errors.Is(err, database.ErrNoMigrations) {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to roll back.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %s\n", name)
			return nil
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(m *database.Migrator) error {
			statuses, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tFILE\tSTATUS")
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.Version, s.File, state)
			}
			return w.Flush()
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateRollbackCmd, migrateStatusCmd)
	migrateCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "", "Directory with migration files (defaults to migrations_dir)")
}

func withMigrator(fn func(m *database.Migrator) error) error {
	if cfg.DBDriver != "postgres" {
		return fmt.Errorf("SQL migrations require db_driver=postgres, got %q", cfg.DBDriver)
	}
	dir := migrationsDir
	if dir == "" {
		dir = cfg.MigrationsDir
	}
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("migrations directory: %w", err)
	}

	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer sqlDB.Close()

	return fn(database.NewMigrator(sqlDB, dir))
}
