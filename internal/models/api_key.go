package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey is a third-party background-removal credential in the key pool.
// Lower Priority values are tried first.
type APIKey struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Secret    string    `json:"-"`
	Priority  int       `json:"priority"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsageCounter is the number of images processed with one key in one calendar month.
type UsageCounter struct {
	APIKeyID  uuid.UUID `json:"api_key_id"`
	Month     string    `json:"month"` // YYYY-MM
	Count     int       `json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeyUsage is an API key joined with its usage for a month, as shown on the admin screen.
type KeyUsage struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	SecretHint string    `json:"secret_hint"`
	Priority   int       `json:"priority"`
	Active     bool      `json:"active"`
	Used       int       `json:"used"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
}
