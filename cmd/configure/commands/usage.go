package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/benvon/resale-hub/internal/database"
	"github.com/benvon/resale-hub/internal/logger"
	"github.com/benvon/resale-hub/internal/services/bgremoval"
	"github.com/spf13/cobra"
)

type usageReport struct {
	Month  string                `yaml:"month"`
	Totals bgremoval.UsageTotals `yaml:"totals"`
	Keys   []usageRow            `yaml:"keys"`
}

type usageRow struct {
	Name      string `yaml:"name"`
	Secret    string `yaml:"secret"`
	Active    bool   `yaml:"active"`
	Used      int    `yaml:"used"`
	Remaining int    `yaml:"remaining"`
}

// NewUsageCmd prints per-key image counts for a month.
func NewUsageCmd() *cobra.Command {
	var month, output string
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show background-removal usage per key",
		Long:  "Show images processed per provider key for a calendar month (default: current UTC month).",
		RunE: func(cmd *cobra.Command, args []string) error {
			if month == "" {
				month = bgremoval.MonthKey(time.Now())
			} else if _, err := time.Parse("2006-01", month); err != nil {
				return fmt.Errorf("--month must be YYYY-MM: %w", err)
			}
			if output != "table" && output != "yaml" {
				return fmt.Errorf("--output must be table or yaml")
			}
			return withDB(cmd.Context(), func(ctx context.Context, db *database.DB) error {
				keys, err := database.NewAPIKeyRepository(db).List(ctx)
				if err != nil {
					return fmt.Errorf("list api keys: %w", err)
				}
				counts, err := database.NewUsageRepository(db).CountsForMonth(ctx, month)
				if err != nil {
					return fmt.Errorf("load usage: %w", err)
				}

				pool := bgremoval.NewPool(keys, counts, bgremoval.MonthlyLimitPerKey)
				report := usageReport{Month: month, Totals: pool.Totals(month)}
				for _, k := range pool.KeyUsage(logger.MaskSecret) {
					report.Keys = append(report.Keys, usageRow{
						Name:      k.Name,
						Secret:    k.SecretHint,
						Active:    k.Active,
						Used:      k.Used,
						Remaining: k.Remaining,
					})
				}

				if output == "yaml" {
					return writeYAML(cmd.OutOrStdout(), report)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Month %s: %d used, %d remaining of %d\n\n",
					report.Month, report.Totals.Used, report.Totals.Remaining, report.Totals.Limit)
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tSECRET\tACTIVE\tUSED\tREMAINING")
				for _, r := range report.Keys {
					fmt.Fprintf(w, "%s\t%s\t%v\t%d\t%d\n", r.Name, r.Secret, r.Active, r.Used, r.Remaining)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table or yaml")
	return cmd
}
