package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	CORSOrigins      string
	EnableHSTS       bool
	OIDCIssuer       string
	OIDCJWKSURL      string
	OIDCAudience     string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
	OTELInsecure     bool
	OTELSampleRatio  float64

	OpenAIKey   string
	AIModel     string
	AIBaseURL   string
	RemoveBGURL string

	StripeSecretKey  string
	StripeSuccessURL string
	StripeCancelURL  string

	ShopifyShopDomain   string
	ShopifyAccessToken  string
	CatalogSyncSchedule string
}

// Load loads configuration from environment variables. A .env file in the
// working directory (or the file named by ENV_FILE) is read first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		BaseURL:             getEnv("BASE_URL", "http://localhost:8080"),
		CORSOrigins:         getEnv("CORS_ALLOWED_ORIGINS", "*"),
		EnableHSTS:          getEnvBool("ENABLE_HSTS", false),
		OIDCIssuer:          getEnv("OIDC_ISSUER", ""),
		OIDCJWKSURL:         getEnv("OIDC_JWKS_URL", ""),
		OIDCAudience:        getEnv("OIDC_AUDIENCE", ""),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:         getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:    getEnvInt("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:     getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:     getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:         getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:        getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:        getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELSampleRatio:     getEnvFloat("OTEL_SAMPLE_RATIO", 1),
		OpenAIKey:           getEnv("OPENAI_API_KEY", ""),
		AIModel:             getEnv("AI_MODEL", ""),
		AIBaseURL:           getEnv("AI_BASE_URL", ""),
		RemoveBGURL:         getEnv("REMOVEBG_BASE_URL", "https://api.remove.bg/v1.0"),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeSuccessURL:    getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/shop/success"),
		StripeCancelURL:     getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/shop/cart"),
		ShopifyShopDomain:   getEnv("SHOPIFY_SHOP_DOMAIN", ""),
		ShopifyAccessToken:  getEnv("SHOPIFY_ACCESS_TOKEN", ""),
		CatalogSyncSchedule: getEnv("CATALOG_SYNC_SCHEDULE", "@daily"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// ValidateServer checks the settings only the API server needs.
func (c *Config) ValidateServer() error {
	if c.OIDCIssuer == "" {
		return fmt.Errorf("OIDC_ISSUER is required")
	}
	if c.OIDCJWKSURL == "" {
		return fmt.Errorf("OIDC_JWKS_URL is required")
	}
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for catalog sync and listing jobs")
	}
	return nil
}

// ShopifyEnabled reports whether Shopify credentials are configured.
func (c *Config) ShopifyEnabled() bool {
	return strings.TrimSpace(c.ShopifyShopDomain) != "" && c.ShopifyAccessToken != ""
}

func loadEnvFile() error {
	path := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
