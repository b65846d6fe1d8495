// Package inventory defines the four records managed by the client:
// Products, Storage, StorageRoom and StockPosition.
package inventory

import (
	"context"
	"strings"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/entity"
)

// Products is a product that can be stocked in storage rooms.
type Products struct {
	entity.Base

	// Name is the display name (required)
	Name string `json:"name"`

	URL  *string `json:"url"`
	EAN  *string `json:"ean"`
	Tags *string `json:"tags"`

	// Storeds lists the rooms referencing this product (read-only)
	Storeds []StorageRoom `json:"storeds,omitempty"`
}

// NewProducts creates a new unsaved Products record.
func NewProducts(name string) Products {
	return Products{Name: name}
}

// Validate implements entity.Validatable interface.
func (p Products) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required").
			WithDetail("entity", EntityProducts).
			WithDetail("field", "name")
	}
	return nil
}
