package commands

import (
	"context"
	"fmt"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/spf13/cobra"
)

// NewMigrateCmd applies pending schema migrations.
func NewMigrateCmd() *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply all pending schema migrations embedded in the binary and print the resulting version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				if !statusOnly {
					if err := db.Migrate(ctx); err != nil {
						return fmt.Errorf("migrate: %w", err)
					}
				}
				version, err := db.MigrationVersion(ctx)
				if err != nil {
					return fmt.Errorf("read migration version: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema version: %d\n", version)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "Only print the current schema version")
	return cmd
}
