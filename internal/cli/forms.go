package cli

import (
	"context"
	"strings"

	"github.com/spf13/pflag"

	"ochotona/internal/core/entity"
	"ochotona/internal/core/id"
	"ochotona/internal/domain/inventory"
	"ochotona/internal/infrastructure/http/client"
	"ochotona/internal/store"
)

// noRef clears a reference flag.
const noRef = "none"

// resolveRef fetches the referenced collection and selects the option with the given id,
// the way a form's select box is populated. Empty or "none" clears the reference.
func resolveRef[T entity.Entity](ctx context.Context, a *app, key, raw string) (entity.Ref[T], error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == noRef {
		return entity.Ref[T]{}, nil
	}
	refID, err := parseID(raw)
	if err != nil {
		return entity.Ref[T]{}, err
	}

	s, err := store.Of[T](a.stores.Aggregator, key)
	if err != nil {
		return entity.Ref[T]{}, err
	}
	options, err := s.FetchAll(ctx, client.ListQuery{})
	if err != nil {
		return entity.Ref[T]{}, stateError(s, err)
	}
	option, err := entity.Resolve(key, entity.RefTo[T](refID), options)
	if err != nil {
		return entity.Ref[T]{}, err
	}
	return entity.Embed(option), nil
}

func productsForm() *form[inventory.Products] {
	var name, url, ean, tags string

	return &form[inventory.Products]{
		key:     inventory.EntityProducts,
		use:     "products",
		aliases: []string{"product"},
		short:   "Manage products",
		header:  []string{"ID", "NAME", "URL", "EAN", "TAGS"},
		row: func(p inventory.Products) []string {
			return []string{p.ID.String(), p.Name, str(p.URL), str(p.EAN), str(p.Tags)}
		},
		blank: func(entityID id.ID) inventory.Products {
			return inventory.Products{Base: entity.Base{ID: entityID}}
		},
		bind: func(fs *pflag.FlagSet) {
			fs.StringVar(&name, "name", "", "Product name (required)")
			fs.StringVar(&url, "url", "", "Product page URL")
			fs.StringVar(&ean, "ean", "", "EAN barcode")
			fs.StringVar(&tags, "tags", "", "Free-form tags")
		},
		apply: func(_ context.Context, _ *app, fs *pflag.FlagSet, p *inventory.Products) error {
			if fs.Changed("name") {
				p.Name = name
			}
			if fs.Changed("url") {
				p.URL = inventory.StringPtr(url)
			}
			if fs.Changed("ean") {
				p.EAN = inventory.StringPtr(ean)
			}
			if fs.Changed("tags") {
				p.Tags = inventory.StringPtr(tags)
			}
			return nil
		},
	}
}

func storageForm() *form[inventory.Storage] {
	var key, room string

	return &form[inventory.Storage]{
		key:    inventory.EntityStorage,
		use:    "storage",
		short:  "Manage storages",
		header: []string{"ID", "KEY", "STORAGE ROOM"},
		row: func(s inventory.Storage) []string {
			return []string{s.ID.String(), s.Key, refLabel(s.StorageRoom, roomLabel)}
		},
		blank: func(entityID id.ID) inventory.Storage {
			return inventory.Storage{Base: entity.Base{ID: entityID}}
		},
		bind: func(fs *pflag.FlagSet) {
			fs.StringVar(&key, "key", "", "Storage key (required)")
			fs.StringVar(&room, "storage-room", "", `Storage room id, "none" to clear`)
		},
		apply: func(ctx context.Context, a *app, fs *pflag.FlagSet, s *inventory.Storage) error {
			if fs.Changed("key") {
				s.Key = key
			}
			if fs.Changed("storage-room") {
				ref, err := resolveRef[inventory.StorageRoom](ctx, a, inventory.EntityStorageRoom, room)
				if err != nil {
					return err
				}
				s.StorageRoom = ref
			}
			return nil
		},
	}
}

func storageRoomForm() *form[inventory.StorageRoom] {
	var name, inherit, products string

	return &form[inventory.StorageRoom]{
		key:     inventory.EntityStorageRoom,
		use:     "storage-room",
		aliases: []string{"storageRoom", "room"},
		short:   "Manage storage rooms",
		header:  []string{"ID", "NAME", "INHERIT", "PRODUCTS", "CONTAINS"},
		row: func(r inventory.StorageRoom) []string {
			keys := make([]string, 0, len(r.Contains))
			for _, s := range r.Contains {
				keys = append(keys, s.Key)
			}
			return []string{
				r.ID.String(),
				str(r.Name),
				refLabel(r.Inherit, storageLabel),
				refLabel(r.Products, productLabel),
				strings.Join(keys, ","),
			}
		},
		blank: func(entityID id.ID) inventory.StorageRoom {
			return inventory.StorageRoom{Base: entity.Base{ID: entityID}}
		},
		bind: func(fs *pflag.FlagSet) {
			fs.StringVar(&name, "name", "", "Room name")
			fs.StringVar(&inherit, "inherit", "", "Parent storage id (required)")
			fs.StringVar(&products, "products", "", `Product id, "none" to clear`)
		},
		apply: func(ctx context.Context, a *app, fs *pflag.FlagSet, r *inventory.StorageRoom) error {
			if fs.Changed("name") {
				r.Name = inventory.StringPtr(name)
			}
			if fs.Changed("inherit") {
				ref, err := resolveRef[inventory.Storage](ctx, a, inventory.EntityStorage, inherit)
				if err != nil {
					return err
				}
				r.Inherit = ref
			}
			if fs.Changed("products") {
				ref, err := resolveRef[inventory.Products](ctx, a, inventory.EntityProducts, products)
				if err != nil {
					return err
				}
				r.Products = ref
			}
			return nil
		},
	}
}

func stockPositionForm() *form[inventory.StockPosition] {
	var (
		amount   int
		serialNo string
		inherit  string
	)

	return &form[inventory.StockPosition]{
		key:     inventory.EntityStockPosition,
		use:     "stock-position",
		aliases: []string{"stockPosition", "stock"},
		short:   "Manage stock positions",
		header:  []string{"ID", "AMOUNT", "SERIAL NO", "INHERIT"},
		row: func(p inventory.StockPosition) []string {
			return []string{p.ID.String(), num(p.Amount), str(p.SerialNo), refLabel(p.Inherit, storageLabel)}
		},
		blank: func(entityID id.ID) inventory.StockPosition {
			return inventory.StockPosition{Base: entity.Base{ID: entityID}}
		},
		bind: func(fs *pflag.FlagSet) {
			fs.IntVar(&amount, "amount", 0, "Amount held")
			fs.StringVar(&serialNo, "serial-no", "", "Serial number")
			fs.StringVar(&inherit, "inherit", "", "Storage id (required)")
		},
		apply: func(ctx context.Context, a *app, fs *pflag.FlagSet, p *inventory.StockPosition) error {
			if fs.Changed("amount") {
				p.Amount = inventory.IntPtr(amount)
			}
			if fs.Changed("serial-no") {
				p.SerialNo = inventory.StringPtr(serialNo)
			}
			if fs.Changed("inherit") {
				ref, err := resolveRef[inventory.Storage](ctx, a, inventory.EntityStorage, inherit)
				if err != nil {
					return err
				}
				p.Inherit = ref
			}
			return nil
		},
	}
}

func storageLabel(s inventory.Storage) string { return s.Key }

func roomLabel(r inventory.StorageRoom) string { return str(r.Name) }

func productLabel(p inventory.Products) string { return p.Name }
