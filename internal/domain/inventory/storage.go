package inventory

import (
	"context"
	"strings"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/entity"
)

// Storage is an addressable storage slot, optionally inside a storage room.
type Storage struct {
	entity.Base

	// Key is the storage label (required)
	Key string `json:"key"`

	StorageRoom entity.Ref[StorageRoom] `json:"storageRoom"`
}

// NewStorage creates a new unsaved Storage record.
func NewStorage(key string) Storage {
	return Storage{Key: key}
}

// Validate implements entity.Validatable interface.
func (s Storage) Validate(ctx context.Context) error {
	if strings.TrimSpace(s.Key) == "" {
		return apperror.NewValidation("key is required").
			WithDetail("entity", EntityStorage).
			WithDetail("field", "key")
	}
	return nil
}
