// Package entity defines what every record managed by the client has in common.
package entity

import (
	"context"

	"ochotona/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks required fields only; referential integrity is the server's job.
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Entity is a record with a server-assigned identifier.
type Entity interface {
	Validatable

	// GetID returns the identifier, zero for unsaved records.
	GetID() id.ID
}

// Base contains the identifier shared by all entities.
type Base struct {
	ID id.ID `json:"id"`
}

// GetID implements Entity.
func (b Base) GetID() id.ID {
	return b.ID
}

// IsNew returns true if the record has not been persisted.
func (b Base) IsNew() bool {
	return id.IsNil(b.ID)
}
