package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pm33/abtest/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [version]",
	Short: "Run database migrations",
	Long: `Run database migrations.

Without arguments, runs all pending migrations (up).
With a version number, migrates to that specific version (up or down as needed).

Examples:
  abtest migrate      # Run all pending migrations
  abtest migrate 1    # Migrate to version 1
  abtest migrate 0    # Rollback all migrations`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	if err := migrate.EnsureMigrationsTable(ctx, app.DB); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	currentVersion, dirty, err := migrate.CurrentVersion(ctx, app.DB)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d, manual intervention required", currentVersion)
	}

	fmt.Printf("Current version: %d\n", currentVersion)

	if len(args) == 0 {
		if err := migrate.RunAll(ctx, app.DB); err != nil {
			return err
		}
		fmt.Println("Migrations complete")
		return nil
	}

	targetVersion, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version number: %s", args[0])
	}

	all, err := migrate.Load()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	switch {
	case targetVersion > currentVersion:
		for _, m := range all {
			if m.Version <= currentVersion || m.Version > targetVersion {
				continue
			}
			fmt.Printf("Applying %03d_%s...\n", m.Version, m.Name)
			if err := migrate.Run(ctx, app.DB, m, true); err != nil {
				return err
			}
		}
	case targetVersion < currentVersion:
		if err := migrate.DownTo(ctx, app.DB, all, currentVersion, targetVersion); err != nil {
			return err
		}
	default:
		fmt.Println("Already at target version")
		return nil
	}

	fmt.Printf("Migrated to version %d\n", targetVersion)
	return nil
}
