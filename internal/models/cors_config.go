package models

import "time"

// CorsConfig holds the allowed origins served by the CORS middleware.
type CorsConfig struct {
	ConfigKey        string    `json:"config_key"`
	AllowedOrigins   string    `json:"allowed_origins"` // Comma-separated, "*" allows any origin
	AllowCredentials bool      `json:"allow_credentials"`
	MaxAge           int       `json:"max_age"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// DefaultCorsConfig is the permissive policy applied until an operator stores one.
func DefaultCorsConfig(origins string) *CorsConfig {
	if origins == "" {
		origins = "*"
	}
	return &CorsConfig{ConfigKey: "default", AllowedOrigins: origins, MaxAge: 3600}
}
