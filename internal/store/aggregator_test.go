package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/entity"
	"ochotona/internal/domain/inventory"
	"ochotona/pkg/logger"
)

func TestAggregator_Register(t *testing.T) {
	agg := NewAggregator()
	products := New[inventory.Products](Config[inventory.Products]{
		Key:      inventory.EntityProducts,
		Resource: &memoryProducts{},
		Logger:   logger.Nop(),
	})

	require.NoError(t, agg.Register(products))

	err := agg.Register(products)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)

	err = agg.Register(New[inventory.Products](Config[inventory.Products]{Logger: logger.Nop()}))
	assert.True(t, apperror.IsValidation(err))

	assert.True(t, apperror.IsValidation(agg.Register(nil)))
}

func TestAggregator_TypedAccess(t *testing.T) {
	agg := NewAggregator()
	res := &memoryProducts{items: []inventory.Products{{Base: entity.Base{ID: 1}, Name: "Bolt"}}}
	products := New[inventory.Products](Config[inventory.Products]{
		Key:      inventory.EntityProducts,
		Resource: res,
		Logger:   logger.Nop(),
	})
	require.NoError(t, agg.Register(products))

	got, err := Of[inventory.Products](agg, inventory.EntityProducts)
	require.NoError(t, err)
	assert.Same(t, products, got)

	_, err = Of[inventory.Storage](agg, inventory.EntityProducts)
	assert.True(t, apperror.IsValidation(err))

	_, err = Of[inventory.Storage](agg, inventory.EntityStorage)
	assert.True(t, apperror.IsNotFound(err))

	h, err := agg.Handle(inventory.EntityProducts)
	require.NoError(t, err)
	require.NoError(t, h.Refresh(context.Background()))

	status := agg.Status()
	assert.Equal(t, Status{Count: 1}, status[inventory.EntityProducts])

	record, err := h.Find(1)
	require.NoError(t, err)
	assert.Equal(t, "Bolt", record.(inventory.Products).Name)
	assert.Len(t, h.Records(), 1)

	agg.ResetAll()
	agg.Wait()
	assert.Equal(t, 0, agg.Status()[inventory.EntityProducts].Count)
}

func TestAggregator_KeysSorted(t *testing.T) {
	agg := NewAggregator()
	for _, key := range []string{inventory.EntityStorageRoom, inventory.EntityProducts, inventory.EntityStorage} {
		require.NoError(t, agg.Register(New[inventory.Products](Config[inventory.Products]{
			Key:      key,
			Resource: &memoryProducts{},
			Logger:   logger.Nop(),
		})))
	}
	assert.Equal(t, []string{"products", "storage", "storageRoom"}, agg.Keys())
}
