package main

import (
	"fmt"
	"os"

	"github.com/benvon/resale-hub/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:          "resale-hub-configure",
		Short:        "Configuration tool for Resale Hub",
		Long:         "CLI tool for migrations, provider keys, usage, CORS and rate limit settings",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(commands.NewMigrateCmd())
	rootCmd.AddCommand(commands.NewKeysCmd())
	rootCmd.AddCommand(commands.NewUsageCmd())
	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewOIDCCheckCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
