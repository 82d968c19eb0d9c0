package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pageza/foodgram/backend/internal/models"
	"github.com/pageza/foodgram/backend/internal/seed"
	"github.com/pageza/foodgram/backend/internal/types"
	"github.com/pageza/foodgram/backend/internal/validation"
)

var adminReq types.RegisterRequest

// createAdminCmd creates an account that may manage tags and every recipe
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if errs := validation.ValidateStruct(&adminReq); errs != nil {
			return errs
		}

		db, closeFn, err := openDB()
		if err != nil {
			return err
		}
		defer closeFn()

		user, created, err := seed.EnsureUser(cmd.Context(), db, models.User{
			Email:     adminReq.Email,
			Username:  adminReq.Username,
			FirstName: adminReq.FirstName,
			LastName:  adminReq.LastName,
			Role:      models.RoleAdmin,
		}, adminReq.Password)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("a user with email %s already exists", user.Email)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd)
	createAdminCmd.Flags().StringVar(&adminReq.Email, "email", "", "Email address")
	createAdminCmd.Flags().StringVar(&adminReq.Username, "username", "admin", "Username")
	createAdminCmd.Flags().StringVar(&adminReq.FirstName, "first-name", "Admin", "First name")
	createAdminCmd.Flags().StringVar(&adminReq.LastName, "last-name", "User", "Last name")
	createAdminCmd.Flags().StringVar(&adminReq.Password, "password", "", "Password (at least 8 characters)")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}
