package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is an outgoing payment recorded for the accounting statements
type Expense struct {
	ID          uuid.UUID       `json:"id"`
	Date        time.Time       `json:"date"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	Vendor      string          `json:"vendor,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CapitalAccountKind classifies where money is held
type CapitalAccountKind string

const (
	CapitalKindCash     CapitalAccountKind = "cash"
	CapitalKindBank     CapitalAccountKind = "bank"
	CapitalKindCard     CapitalAccountKind = "card"
	CapitalKindPlatform CapitalAccountKind = "platform"
)

// CapitalAccount is a balance the business tracks (bank, PayPal, till...)
type CapitalAccount struct {
	ID        uuid.UUID          `json:"id"`
	Name      string             `json:"name"`
	Kind      CapitalAccountKind `json:"kind"`
	Balance   decimal.Decimal    `json:"balance"`
	Notes     string             `json:"notes,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}
