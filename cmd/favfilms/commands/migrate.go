package commands

import (
	"fmt"

	"github.com/geocoder89/favfilms/internal/config"
	"github.com/geocoder89/favfilms/internal/db"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Args:  cobra.NoArgs,
		Short: "Apply pending database migrations for the configured driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx := cmd.Context()

			switch cfg.DBDriver {
			case config.DriverPostgres:
				pool, err := db.NewPool(ctx, cfg.DBURL, 2)
				if err != nil {
					return fmt.Errorf("connect postgres: %w", err)
				}
				defer pool.Close()

				if err := db.MigratePool(ctx, pool); err != nil {
					return err
				}

			case config.DriverSQLite:
				sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
				if err != nil {
					return err
				}
				defer sqlDB.Close()

				if err := db.Migrate(ctx, sqlDB, config.DriverSQLite); err != nil {
					return err
				}

			default:
				fmt.Fprintf(cmd.OutOrStdout(), "driver %q keeps no schema; nothing to migrate\n", cfg.DBDriver)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", cfg.DBDriver)
			return nil
		},
	}
}
