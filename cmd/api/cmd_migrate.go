package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/interview-journey/backend/internal/storage/sqlite"
)

var migrateDBPath string

func init() {
	migrateCmd.Flags().StringVar(&migrateDBPath, "db", "", "SQLite database path (defaults to $DATABASE_PATH)")
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()

		path := strings.TrimSpace(migrateDBPath)
		if path == "" {
			path = strings.TrimSpace(os.Getenv("DATABASE_PATH"))
		}
		if path == "" {
			return errors.New("no database path: pass --db or set DATABASE_PATH")
		}

		store, err := sqlite.Open(path)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", path, err)
		}
		if err := store.Close(); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrations applied to %s\n", path)
		return nil
	},
}
