package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactKind classifies a contact
type ContactKind string

const (
	ContactKindSupplier  ContactKind = "supplier"
	ContactKindCustomer  ContactKind = "customer"
	ContactKindConsignor ContactKind = "consignor"
	ContactKindOther     ContactKind = "other"
)

// Contact is an address-book entry
type Contact struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email,omitempty"`
	Phone     string      `json:"phone,omitempty"`
	Kind      ContactKind `json:"kind"`
	Notes     string      `json:"notes,omitempty"`
	Tags      []string    `json:"tags"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}
