package inventory

import (
	"context"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/entity"
)

// StockPosition is a counted amount of goods held in a Storage.
type StockPosition struct {
	entity.Base

	Amount   *int    `json:"amount"`
	SerialNo *string `json:"serialNo"`

	// Inherit is the storage holding the position (required)
	Inherit entity.Ref[Storage] `json:"inherit"`
}

// Validate implements entity.Validatable interface.
func (p StockPosition) Validate(ctx context.Context) error {
	if !p.Inherit.IsSet() {
		return apperror.NewValidation("inherit is required").
			WithDetail("entity", EntityStockPosition).
			WithDetail("field", "inherit")
	}
	if p.Amount != nil && *p.Amount < 0 {
		return apperror.NewValidation("amount must not be negative").
			WithDetail("entity", EntityStockPosition).
			WithDetail("field", "amount")
	}
	return nil
}
