package fakeapi

import (
	"ochotona/internal/domain/inventory"
)

// SeedDemo fills an empty inventory registry with a small connected data set.
func SeedDemo(r *Registry) error {
	product, err := r.Seed(inventory.PathProducts, Document{"name": "Hex bolt M8", "ean": "4006381333931", "tags": "metal"})
	if err != nil {
		return err
	}
	storage, err := r.Seed(inventory.PathStorages, Document{"key": "A-01"})
	if err != nil {
		return err
	}
	room, err := r.Seed(inventory.PathStorageRooms, Document{
		"name":     "Main hall",
		"inherit":  map[string]any{"id": storage["id"]},
		"products": map[string]any{"id": product["id"]},
	})
	if err != nil {
		return err
	}
	if _, err := r.Seed(inventory.PathStorages, Document{
		"key":         "A-02",
		"storageRoom": map[string]any{"id": room["id"]},
	}); err != nil {
		return err
	}
	_, err = r.Seed(inventory.PathStockPositions, Document{
		"amount":   120,
		"serialNo": "SN-0001",
		"inherit":  map[string]any{"id": storage["id"]},
	})
	return err
}
