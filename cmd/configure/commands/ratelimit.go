package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/spf13/cobra"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limits",
		Long:  "List or update per-scope rate limits (e.g. 5-S, 100-M). Scopes: api, relay, storefront.",
	}
	cmd.AddCommand(newRatelimitListCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List effective rate limits per scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				stored, err := database.NewRatelimitConfigRepository(db).List(ctx)
				if err != nil {
					return fmt.Errorf("list ratelimit config: %w", err)
				}
				rates := make(map[string]string, len(stored))
				for _, c := range stored {
					rates[c.ConfigKey] = c.Rate
				}
				scopes := make([]string, 0, len(models.DefaultRates))
				for scope := range models.DefaultRates {
					scopes = append(scopes, scope)
				}
				sort.Strings(scopes)

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Rate limits:")
				for _, scope := range scopes {
					if rate, ok := rates[scope]; ok {
						fmt.Fprintf(out, "  %-10s %s\n", scope, rate)
					} else {
						fmt.Fprintf(out, "  %-10s %s (default)\n", scope, models.DefaultRates[scope])
					}
				}
				return nil
			})
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var rate, scope string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set the rate limit for a scope",
		Long:  "Update a scope's rate limit (e.g. 5-S, 100-M, 1000-H). Servers reload it within a minute.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if rate == "" {
				return fmt.Errorf("--rate is required (e.g. 5-S, 100-M)")
			}
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				c := &models.RatelimitConfig{ConfigKey: strings.TrimSpace(scope), Rate: rate}
				if err := database.NewRatelimitConfigRepository(db).Set(ctx, c); err != nil {
					return fmt.Errorf("set ratelimit config: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rate limit for %s set to %s.\n", c.ConfigKey, c.Rate)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	cmd.Flags().StringVar(&scope, "scope", models.RatelimitScopeAPI, "Scope: api, relay or storefront")
	return cmd
}
