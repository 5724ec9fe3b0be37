package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"authlink/internal/config"
	"authlink/internal/database"
	"authlink/internal/models"
	"authlink/internal/validation"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewUserCmd creates the user administration command with list, get,
// suspend, activate and delete subcommands.
func NewUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
		Long:  "List, inspect and administer user accounts stored in the database.",
	}
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserGetCmd())
	cmd.AddCommand(newUserSuspendCmd())
	cmd.AddCommand(newUserActivateCmd())
	cmd.AddCommand(newUserDeleteCmd())
	return cmd
}

func newUserListCmd() *cobra.Command {
	var limit int
	var offset int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Long:  "List user accounts ordered by creation time, newest first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			if offset < 0 {
				return fmt.Errorf("--offset must not be negative")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() {
				_ = db.Close()
			}()
			repo := database.NewUserRepository(db)
			users, err := repo.List(context.Background(), limit, offset)
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			if len(users) == 0 {
				fmt.Println("No users found")
				return nil
			}
			fmt.Printf("Users (%d):\n", len(users))
			for _, u := range users {
				fmt.Printf("  - ID: %s\n", u.ID)
				fmt.Printf("    Email: %s\n", u.Email)
				fmt.Printf("    Name: %s\n", u.Name)
				if u.Provider != nil {
					fmt.Printf("    Provider: %s\n", *u.Provider)
				}
				fmt.Printf("    Status: %s\n", u.Status)
				if u.LastSeenAt != nil {
					fmt.Printf("    Last seen: %s\n", u.LastSeenAt.Format(time.RFC3339))
				}
				fmt.Println()
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of users to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of users to skip")
	return cmd
}

func newUserGetCmd() *cobra.Command {
	var id string
	var email string
	var providerTag string
	var providerID string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Show a single user account",
		Long:  "Look up a user by ID, by email, or by provider identity and print the account.",
		RunE: func(cmd *cobra.Command, args []string) error {
			id = strings.TrimSpace(id)
			email = strings.TrimSpace(email)
			providerTag = strings.TrimSpace(providerTag)
			providerID = strings.TrimSpace(providerID)

			byProvider := providerTag != "" || providerID != ""
			modes := 0
			if id != "" {
				modes++
			}
			if email != "" {
				modes++
			}
			if byProvider {
				modes++
			}
			if modes != 1 {
				return fmt.Errorf("specify exactly one of --id, --email, or --provider with --provider-id")
			}
			if byProvider && (providerTag == "" || providerID == "") {
				return fmt.Errorf("--provider and --provider-id must be given together")
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() {
				_ = db.Close()
			}()
			repo := database.NewUserRepository(db)
			ctx := context.Background()

			var user *models.User
			switch {
			case id != "":
				userID, err := uuid.Parse(id)
				if err != nil {
					return fmt.Errorf("parse user id: %w", err)
				}
				user, err = repo.GetByID(ctx, userID)
				if err != nil {
					return fmt.Errorf("get user: %w", err)
				}
			case email != "":
				user, err = repo.GetByEmail(ctx, email)
				if err != nil {
					return fmt.Errorf("get user: %w", err)
				}
			default:
				user, err = repo.GetByProviderIdentity(ctx, providerTag, providerID)
				if err != nil {
					return fmt.Errorf("get user: %w", err)
				}
			}

			printUser(user)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "User ID")
	cmd.Flags().StringVar(&email, "email", "", "User email address")
	cmd.Flags().StringVar(&providerTag, "provider", "", "Identity provider tag (use with --provider-id)")
	cmd.Flags().StringVar(&providerID, "provider-id", "", "Provider-side account ID (use with --provider)")
	return cmd
}

func newUserSuspendCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "suspend",
		Short: "Suspend a user account",
		Long:  "Mark a user account as suspended. Suspended users cannot authenticate.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setUserStatus(id, string(models.UserStatusSuspended))
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "User ID (required)")
	return cmd
}

func newUserActivateCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Reactivate a suspended user account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return setUserStatus(id, string(models.UserStatusActive))
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "User ID (required)")
	return cmd
}

// setUserStatus is the single path for status writes from the CLI. The
// status string goes through the shared validator before it reaches the
// database.
func setUserStatus(id string, status string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("--id is required")
	}
	userID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}
	if err := validation.ValidateUserStatus(status); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()
	repo := database.NewUserRepository(db)
	if err := repo.UpdateStatus(context.Background(), userID, models.UserStatus(status)); err != nil {
		return fmt.Errorf("update user status: %w", err)
	}
	fmt.Printf("User %s is now %s\n", userID, status)
	return nil
}

func newUserDeleteCmd() *cobra.Command {
	var id string
	var confirm bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a user account",
		Long:  "Permanently delete a user account and its login activity. Requires --confirm.",
		RunE: func(cmd *cobra.Command, args []string) error {
			id = strings.TrimSpace(id)
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			userID, err := uuid.Parse(id)
			if err != nil {
				return fmt.Errorf("parse user id: %w", err)
			}
			if !confirm {
				return fmt.Errorf("refusing to delete user %s without --confirm", userID)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			db, err := database.New(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer func() {
				_ = db.Close()
			}()
			repo := database.NewUserRepository(db)
			if err := repo.Delete(context.Background(), userID); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
			fmt.Printf("User %s deleted\n", userID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "User ID (required)")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the deletion")
	return cmd
}

func printUser(u *models.User) {
	fmt.Printf("User %s:\n", u.ID)
	fmt.Printf("  Email: %s\n", u.Email)
	fmt.Printf("  Name: %s\n", u.Name)
	fmt.Printf("  First name: %s\n", u.FirstName)
	fmt.Printf("  Last name: %s\n", u.LastName)
	if u.Provider != nil {
		fmt.Printf("  Provider: %s\n", *u.Provider)
	}
	if u.ProviderID != nil {
		fmt.Printf("  Provider ID: %s\n", *u.ProviderID)
	}
	if u.Avatar != nil {
		fmt.Printf("  Avatar: %s\n", *u.Avatar)
	}
	fmt.Printf("  Verified: %v\n", u.Verified)
	fmt.Printf("  Status: %s\n", u.Status)
	if u.Contact != "" {
		fmt.Printf("  Contact: %s\n", u.Contact)
	}
	if u.Location != "" {
		fmt.Printf("  Location: %s\n", u.Location)
	}
	if u.LastSeenAt != nil {
		fmt.Printf("  Last seen: %s\n", u.LastSeenAt.Format(time.RFC3339))
	}
	fmt.Printf("  Created: %s\n", u.CreatedAt.Format(time.RFC3339))
}
