package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pageza/foodgram/backend/internal/seed"
)

var (
	ingredientsFile string
	tagsFile        string
	dummyUser       bool
	dummyPassword   string
)

// loadDataCmd loads reference data from CSV files
var loadDataCmd = &cobra.Command{
	Use:   "load-data",
	Short: "Load ingredients and tags from CSV files",
	Long: `Load ingredients ("name,measurement_unit") and tags ("name,color,slug")
from CSV files. Rows that already exist are skipped, so the command can be
run repeatedly.

Examples:
  manage load-data
  manage load-data --tags "" --ingredients data/ingredients.csv
  manage load-data --dummy-user`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeFn, err := openDB()
		if err != nil {
			return err
		}
		defer closeFn()
		ctx := cmd.Context()

		if ingredientsFile != "" {
			f, err := os.Open(ingredientsFile)
			if err != nil {
				return err
			}
			res, err := seed.LoadIngredients(ctx, db, f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", ingredientsFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ingredients: %d read, %d added\n", res.Read, res.Inserted)
		}

		if tagsFile != "" {
			f, err := os.Open(tagsFile)
			if err != nil {
				return err
			}
			res, err := seed.LoadTags(ctx, db, f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%s: %w", tagsFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tags: %d read, %d added\n", res.Read, res.Inserted)
		}

		if dummyUser {
			user, created, err := seed.EnsureUser(ctx, db, seed.DummyUser(), dummyPassword)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Username, user.Email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "User %s already exists\n", user.Email)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loadDataCmd)
	loadDataCmd.Flags().StringVar(&ingredientsFile, "ingredients", "data/ingredients.csv", "Ingredients CSV file; empty to skip")
	loadDataCmd.Flags().StringVar(&tagsFile, "tags", "data/tags.csv", "Tags CSV file; empty to skip")
	loadDataCmd.Flags().BoolVarP(&dummyUser, "dummy-user", "u", false, "Also create the dummy@example.com development user")
	loadDataCmd.Flags().StringVar(&dummyPassword, "dummy-password", "dummy-password", "Password for the dummy user")
}
