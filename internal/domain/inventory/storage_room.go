package inventory

import (
	"context"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/entity"
)

// StorageRoom groups storages. It is itself anchored on a parent Storage via Inherit.
type StorageRoom struct {
	entity.Base

	Name *string `json:"name"`

	// Inherit is the parent storage (required)
	Inherit entity.Ref[Storage] `json:"inherit"`

	// Contains lists the storages inside this room (read-only)
	Contains []Storage `json:"contains,omitempty"`

	Products entity.Ref[Products] `json:"products"`
}

// Validate implements entity.Validatable interface.
func (r StorageRoom) Validate(ctx context.Context) error {
	if !r.Inherit.IsSet() {
		return apperror.NewValidation("inherit is required").
			WithDetail("entity", EntityStorageRoom).
			WithDetail("field", "inherit")
	}
	return nil
}
