package commands

import (
	"context"
	"fmt"

	"authlink/internal/config"
	"authlink/internal/database"
	"github.com/spf13/cobra"
)

// NewMigrateCmd creates the migrate command, which applies the database
// schema. The statements are idempotent, so running it repeatedly is safe.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long:  "Create or update the tables the service needs. Safe to run more than once.",
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if err := database.RunMigrations(context.Background(), db); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			fmt.Println("Schema is up to date.")
			return nil
		},
	}
}
