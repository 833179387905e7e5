package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benvon/resale-hub/internal/models"
)

const corsConfigKey = "default"

// CorsConfigRepository stores the CORS policy so it can change without a restart.
type CorsConfigRepository struct {
	db *DB
}

// NewCorsConfigRepository creates a new CORS config repository.
func NewCorsConfigRepository(db *DB) *CorsConfigRepository {
	return &CorsConfigRepository{db: db}
}

// Get returns the stored policy, or nil when none has been saved.
func (r *CorsConfigRepository) Get(ctx context.Context) (*models.CorsConfig, error) {
	c := &models.CorsConfig{}
	err := r.db.QueryRowContext(ctx, `
		SELECT config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at
		FROM cors_config WHERE config_key = $1
	`, corsConfigKey).Scan(&c.ConfigKey, &c.AllowedOrigins, &c.AllowCredentials, &c.MaxAge, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cors config: %w", err)
	}
	return c, nil
}

// Set upserts the policy. A wildcard origin cannot be combined with credentials.
func (r *CorsConfigRepository) Set(ctx context.Context, c *models.CorsConfig) error {
	origins := AllowedOriginsSlice(c.AllowedOrigins)
	if len(origins) == 0 {
		return fmt.Errorf("allowed_origins cannot be empty")
	}
	if c.AllowCredentials && containsWildcard(origins) {
		return fmt.Errorf("allow_credentials cannot be used with a wildcard origin")
	}
	c.ConfigKey = corsConfigKey
	c.AllowedOrigins = strings.Join(origins, ",")
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cors_config (config_key, allowed_origins, allow_credentials, max_age, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (config_key) DO UPDATE SET
			allowed_origins = EXCLUDED.allowed_origins,
			allow_credentials = EXCLUDED.allow_credentials,
			max_age = EXCLUDED.max_age,
			updated_at = EXCLUDED.updated_at
	`, c.ConfigKey, c.AllowedOrigins, c.AllowCredentials, c.MaxAge, now, now)
	if err != nil {
		return fmt.Errorf("set cors config: %w", err)
	}
	return nil
}

// AllowedOriginsSlice splits a comma-separated origin list, trimming and de-duplicating.
func AllowedOriginsSlice(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, p := range strings.Split(raw, ",") {
		s := strings.TrimSpace(p)
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
