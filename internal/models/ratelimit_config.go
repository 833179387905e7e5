package models

import "time"

// Rate limit scopes. Each scope has its own limiter and stored rate.
const (
	RatelimitScopeAPI        = "api"
	RatelimitScopeRelay      = "relay"
	RatelimitScopeStorefront = "storefront"
)

// DefaultRates are used for scopes with no stored row. Format is ulule/limiter's "<n>-<unit>".
var DefaultRates = map[string]string{
	RatelimitScopeAPI:        "20-S",
	RatelimitScopeRelay:      "10-M",
	RatelimitScopeStorefront: "30-S",
}

// RatelimitConfig is the stored rate for one scope.
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
