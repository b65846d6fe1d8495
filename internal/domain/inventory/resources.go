package inventory

// Entity keys used by the store aggregator.
const (
	EntityProducts      = "products"
	EntityStorage       = "storage"
	EntityStorageRoom   = "storageRoom"
	EntityStockPosition = "stockPosition"
)

// REST base paths under /api.
const (
	PathProducts       = "products"
	PathStorages       = "storages"
	PathStorageRooms   = "storage-rooms"
	PathStockPositions = "stock-positions"
)

// Resource pairs an entity key with its REST base path.
type Resource struct {
	Key  string
	Path string
}

// Resources lists every managed entity type in menu order.
func Resources() []Resource {
	return []Resource{
		{Key: EntityProducts, Path: PathProducts},
		{Key: EntityStockPosition, Path: PathStockPositions},
		{Key: EntityStorage, Path: PathStorages},
		{Key: EntityStorageRoom, Path: PathStorageRooms},
	}
}

// StringPtr returns a pointer to s, nil for the empty string.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
