package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/spf13/cobra"
)

// NewCorsCmd creates the cors configuration command with list and set subcommands.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS configuration",
		Long:  "List or update CORS allowed origins and options. The server picks up changes within a minute.",
	}
	cmd.AddCommand(newCorsListCmd())
	cmd.AddCommand(newCorsSetCmd())
	return cmd
}

func newCorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the stored CORS configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				c, err := database.NewCorsConfigRepository(db).Get(ctx)
				if err != nil {
					return fmt.Errorf("get cors config: %w", err)
				}
				out := cmd.OutOrStdout()
				if c == nil {
					fmt.Fprintln(out, "No CORS configuration stored; CORS_ALLOWED_ORIGINS applies. Use 'cors set' to add one.")
					return nil
				}
				fmt.Fprintln(out, "CORS configuration:")
				fmt.Fprintf(out, "  Allowed origins: %s\n", c.AllowedOrigins)
				fmt.Fprintf(out, "  Allow credentials: %v\n", c.AllowCredentials)
				fmt.Fprintf(out, "  Max-Age: %d\n", c.MaxAge)
				return nil
			})
		},
	}
}

func newCorsSetCmd() *cobra.Command {
	var origins string
	var allowCreds bool
	var maxAge int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set CORS configuration",
		Long:  "Update CORS allowed origins (comma-separated, or * for any). Credentials cannot be combined with *.",
		RunE: func(cmd *cobra.Command, args []string) error {
			origins = strings.TrimSpace(origins)
			if origins == "" {
				return fmt.Errorf("--origins is required (comma-separated list)")
			}
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				c := &models.CorsConfig{
					AllowedOrigins:   origins,
					AllowCredentials: allowCreds,
					MaxAge:           maxAge,
				}
				if err := database.NewCorsConfigRepository(db).Set(ctx, c); err != nil {
					return fmt.Errorf("set cors config: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "CORS configuration updated.")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", false, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age (seconds)")
	return cmd
}
