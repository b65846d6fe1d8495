package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/id"
	"ochotona/internal/domain/inventory"
)

// InventoryResources describes the four inventory collections and their relations.
func InventoryResources() []ResourceConfig {
	return []ResourceConfig{
		{
			Name:     inventory.EntityProducts,
			Path:     inventory.PathProducts,
			Required: []string{"name"},
			Inverse: map[string]InverseRef{
				"storeds": {Path: inventory.PathStorageRooms, Field: "products"},
			},
		},
		{
			Name:     inventory.EntityStorage,
			Path:     inventory.PathStorages,
			Required: []string{"key"},
			Refs:     map[string]string{"storageRoom": inventory.PathStorageRooms},
		},
		{
			Name:     inventory.EntityStorageRoom,
			Path:     inventory.PathStorageRooms,
			Required: []string{"inherit"},
			Refs: map[string]string{
				"inherit":  inventory.PathStorages,
				"products": inventory.PathProducts,
			},
			Inverse: map[string]InverseRef{
				"contains": {Path: inventory.PathStorages, Field: "storageRoom"},
			},
		},
		{
			Name:     inventory.EntityStockPosition,
			Path:     inventory.PathStockPositions,
			Required: []string{"inherit"},
			Refs:     map[string]string{"inherit": inventory.PathStorages},
		},
	}
}

// Fault is a one-shot failure returned by the next request to a collection.
type Fault struct {
	Status  int
	Message string
}

// Registry holds the collections served under /api.
type Registry struct {
	collections map[string]*Collection
	paths       []string

	mu     sync.Mutex
	faults map[string]Fault
}

// NewRegistry creates a registry with one empty collection per config.
func NewRegistry(cfgs ...ResourceConfig) *Registry {
	r := &Registry{
		collections: make(map[string]*Collection, len(cfgs)),
		faults:      make(map[string]Fault),
	}
	for _, cfg := range cfgs {
		r.collections[cfg.Path] = NewCollection(cfg)
		r.paths = append(r.paths, cfg.Path)
	}
	sort.Strings(r.paths)
	return r
}

// NewInventoryRegistry creates a registry serving the inventory collections.
func NewInventoryRegistry() *Registry {
	return NewRegistry(InventoryResources()...)
}

// Paths returns the collection paths in sorted order.
func (r *Registry) Paths() []string {
	return append([]string(nil), r.paths...)
}

// Collection returns the collection served at path.
func (r *Registry) Collection(path string) (*Collection, error) {
	c, ok := r.collections[path]
	if !ok {
		return nil, apperror.NewNotFound("collection", path)
	}
	return c, nil
}

// FailNext makes the next request to path fail with the given status.
func (r *Registry) FailNext(path string, status int, message string) {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	r.mu.Lock()
	r.faults[path] = Fault{Status: status, Message: message}
	r.mu.Unlock()
}

func (r *Registry) takeFault(path string) (Fault, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.faults[path]
	if ok {
		delete(r.faults, path)
	}
	return f, ok
}

// Seed inserts documents directly, bypassing the HTTP surface. Used by tests and demos.
func (r *Registry) Seed(path string, doc Document) (Document, error) {
	c, err := r.Collection(path)
	if err != nil {
		return nil, err
	}
	normalized, err := r.normalize(c.Config(), doc)
	if err != nil {
		return nil, err
	}
	stored, err := c.Insert(normalized)
	if err != nil {
		return nil, err
	}
	return r.expand(c.Config(), stored), nil
}

// normalize drops read-only fields and reduces references to {"id": N},
// rejecting references to records that do not exist.
func (r *Registry) normalize(cfg ResourceConfig, doc Document) (Document, error) {
	out := make(Document, len(doc))
	for key, value := range doc {
		if _, readOnly := cfg.Inverse[key]; readOnly {
			continue
		}
		target, isRef := cfg.Refs[key]
		if !isRef || value == nil {
			out[key] = value
			continue
		}

		refID, ok := refID(value)
		if !ok {
			return nil, apperror.NewValidation(fmt.Sprintf("%s must reference a record by id", key)).
				WithDetail("field", key)
		}
		targetColl, err := r.Collection(target)
		if err != nil {
			return nil, err
		}
		if !targetColl.Exists(refID) {
			return nil, apperror.NewValidation(fmt.Sprintf("%s %s does not exist", key, refID)).
				WithDetail("field", key).
				WithDetail("id", refID.String())
		}
		out[key] = map[string]any{"id": int64(refID)}
	}
	return out, nil
}

// expand embeds referenced records and computes read-only lists.
// Embedded records are shown as stored, with their own references reduced to ids.
func (r *Registry) expand(cfg ResourceConfig, doc Document) Document {
	out := doc.clone()
	for key, target := range cfg.Refs {
		refID, ok := refID(out[key])
		if !ok {
			out[key] = nil
			continue
		}
		targetColl, err := r.Collection(target)
		if err != nil {
			continue
		}
		if embedded, err := targetColl.Get(refID); err == nil {
			out[key] = map[string]any(embedded)
		}
	}

	ownID, hasID := doc.ID()
	for key, inv := range cfg.Inverse {
		related := []Document{}
		if source, err := r.Collection(inv.Path); err == nil && hasID {
			for _, candidate := range source.List() {
				if back, ok := refID(candidate[inv.Field]); ok && back == ownID {
					related = append(related, candidate)
				}
			}
		}
		out[key] = related
	}
	return out
}

// sortDocuments orders docs by "field[,asc|desc]" orders; the first order has priority.
func sortDocuments(docs []Document, orders []string) {
	if len(orders) == 0 {
		return
	}
	type key struct {
		field string
		desc  bool
	}
	keys := make([]key, 0, len(orders))
	for _, order := range orders {
		field, dir, _ := strings.Cut(order, ",")
		keys = append(keys, key{field: field, desc: strings.EqualFold(dir, "desc")})
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			cmp := compareValues(docs[i][k.field], docs[j][k.field])
			if cmp == 0 {
				continue
			}
			if k.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// compareValues orders missing values first, then numbers by value, then strings
// case-insensitively. References compare by their id.
func compareValues(a, b any) int {
	ka, na, sa := sortKey(a)
	kb, nb, sb := sortKey(b)
	switch {
	case ka != kb:
		return ka - kb
	case ka == sortNumber:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	default:
		return strings.Compare(sa, sb)
	}
}

const (
	sortMissing = iota
	sortNumber
	sortString
)

func sortKey(v any) (int, float64, string) {
	switch t := v.(type) {
	case float64:
		return sortNumber, t, ""
	case int64:
		return sortNumber, float64(t), ""
	case int:
		return sortNumber, float64(t), ""
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return sortNumber, f, ""
		}
		return sortString, 0, t.String()
	case string:
		return sortString, 0, strings.ToLower(t)
	case map[string]any:
		return sortKey(t["id"])
	case Document:
		return sortKey(t["id"])
	}
	return sortMissing, 0, ""
}

func idOf(doc Document) id.ID {
	docID, _ := doc.ID()
	return docID
}
