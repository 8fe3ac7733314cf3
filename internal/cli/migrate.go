package cli

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
)

var migrationsPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrations()
	},
}

func runMigrations() error {
	m, err := migrate.New("file://"+migrationsPath, cfg.Database.Postgres.ConnString())
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("database schema already up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database migrations applied")
	return nil
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsPath, "path", "migrations", "directory containing migration files")
	rootCmd.AddCommand(migrateCmd)
}
