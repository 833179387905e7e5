package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/benvon/resale-hub/internal/config"
	"github.com/benvon/resale-hub/internal/database"
	"gopkg.in/yaml.v3"
)

// withDB loads configuration, opens the database and hands it to fn.
func withDB(ctx context.Context, fn func(ctx context.Context, db *database.DB) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()
	return fn(ctx, db)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
