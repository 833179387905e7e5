package ai

import (
	"context"
)

// ListingGenerator drafts marketplace copy for a garment from a photo
type ListingGenerator interface {
	SuggestListing(ctx context.Context, input ListingInput) (*ListingSuggestion, error)
}

// ListingInput is what the operator knows about the item before asking for a draft
type ListingInput struct {
	ImageURL  string `json:"image_url" validate:"required,url"`
	Notes     string `json:"notes,omitempty" validate:"max=2000"`
	Brand     string `json:"brand,omitempty" validate:"max=200"`
	Category  string `json:"category,omitempty" validate:"max=200"`
	Size      string `json:"size,omitempty" validate:"max=50"`
	Condition string `json:"condition,omitempty" validate:"max=50"`
}

// ListingSuggestion is the generated draft. Operators review it before saving.
type ListingSuggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Colors      []string `json:"colors,omitempty"`
	Materials   []string `json:"materials,omitempty"`
}
