package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/logger"
	"github.com/benvon/resale-hub/internal/models"
	"github.com/spf13/cobra"
)

// NewKeysCmd manages the remove.bg provider keys used by the background relay.
func NewKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage background-removal provider keys",
		Long:  "List, add, remove, enable or disable the provider keys pooled by the background relay.",
	}
	cmd.AddCommand(newKeysListCmd())
	cmd.AddCommand(newKeysAddCmd())
	cmd.AddCommand(newKeysRemoveCmd())
	cmd.AddCommand(newKeysToggleCmd("enable", true))
	cmd.AddCommand(newKeysToggleCmd("disable", false))
	return cmd
}

func newKeysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List provider keys in allocation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				keys, err := database.NewAPIKeyRepository(db).List(ctx)
				if err != nil {
					return fmt.Errorf("list api keys: %w", err)
				}
				if len(keys) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No provider keys configured. Use 'keys add' to add one.")
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tPRIORITY\tACTIVE\tSECRET\tID")
				for _, k := range keys {
					fmt.Fprintf(w, "%s\t%d\t%v\t%s\t%s\n", k.Name, k.Priority, k.Active, logger.MaskSecret(k.Secret), k.ID)
				}
				return w.Flush()
			})
		},
	}
}

func newKeysAddCmd() *cobra.Command {
	var name, secret string
	var priority int
	var disabled bool
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a provider key",
		RunE: func(cmd *cobra.Command, args []string) error {
			name = strings.TrimSpace(name)
			secret = strings.TrimSpace(secret)
			if name == "" || secret == "" {
				return fmt.Errorf("--name and --secret are required")
			}
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				repo := database.NewAPIKeyRepository(db)
				if _, err := repo.GetByName(ctx, name); err == nil {
					return fmt.Errorf("a key named %q already exists", name)
				} else if !errors.Is(err, database.ErrNotFound) {
					return fmt.Errorf("look up api key: %w", err)
				}
				key := &models.APIKey{Name: name, Secret: secret, Priority: priority, Active: !disabled}
				if err := repo.Create(ctx, key); err != nil {
					return fmt.Errorf("create api key: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added key %s (%s).\n", key.Name, key.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Unique key name (required)")
	cmd.Flags().StringVar(&secret, "secret", "", "Provider API key (required)")
	cmd.Flags().IntVar(&priority, "priority", 0, "Allocation priority; lower is used first")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Add the key without activating it")
	return cmd
}

func newKeysRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a provider key and its usage history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				repo := database.NewAPIKeyRepository(db)
				key, err := repo.GetByName(ctx, args[0])
				if err != nil {
					return fmt.Errorf("look up api key %q: %w", args[0], err)
				}
				if err := repo.Delete(ctx, key.ID); err != nil {
					return fmt.Errorf("delete api key: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed key %s.\n", key.Name)
				return nil
			})
		},
	}
}

func newKeysToggleCmd(use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: strings.ToUpper(use[:1]) + use[1:] + " a provider key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				repo := database.NewAPIKeyRepository(db)
				key, err := repo.GetByName(ctx, args[0])
				if err != nil {
					return fmt.Errorf("look up api key %q: %w", args[0], err)
				}
				if key.Active == active {
					fmt.Fprintf(cmd.OutOrStdout(), "Key %s is already %sd.\n", key.Name, use)
					return nil
				}
				key.Active = active
				if err := repo.Update(ctx, key); err != nil {
					return fmt.Errorf("update api key: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Key %s %sd.\n", key.Name, use)
				return nil
			})
		},
	}
}
