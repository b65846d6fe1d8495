package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/entity"
	"ochotona/internal/core/id"
	"ochotona/internal/infrastructure/http/client"
)

// Status is the flag part of a store state, independent of the entity type.
type Status struct {
	Loading       bool   `json:"loading"`
	Updating      bool   `json:"updating"`
	UpdateSuccess bool   `json:"updateSuccess"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	Count         int    `json:"count"`
}

// Handle is the type-erased view of a Store used by the Aggregator.
type Handle interface {
	Key() string
	Status() Status
	Refresh(ctx context.Context) error
	Reset()
	Wait()

	// Records returns the loaded collection.
	Records() []any

	// Find returns a loaded record by id; NotFound when absent.
	Find(entityID id.ID) (any, error)
}

// Status implements Handle.
func (s *Store[T]) Status() Status {
	st := s.Snapshot()
	return Status{
		Loading:       st.Loading,
		Updating:      st.Updating,
		UpdateSuccess: st.UpdateSuccess,
		ErrorMessage:  st.ErrorMessage,
		Count:         len(st.Entities),
	}
}

// Refresh implements Handle by re-reading the whole collection.
func (s *Store[T]) Refresh(ctx context.Context) error {
	_, err := s.FetchAll(ctx, client.ListQuery{})
	return err
}

// Records implements Handle.
func (s *Store[T]) Records() []any {
	items := s.Snapshot().Entities
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

// Find implements Handle.
func (s *Store[T]) Find(entityID id.ID) (any, error) {
	return s.Lookup(entityID)
}

// Aggregator combines the per-entity stores into one namespace addressed by entity key.
type Aggregator struct {
	mu     sync.RWMutex
	stores map[string]Handle
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{stores: make(map[string]Handle)}
}

// Register adds a store under its key.
func (a *Aggregator) Register(h Handle) error {
	if h == nil {
		return apperror.NewValidation("store cannot be nil")
	}
	key := h.Key()
	if key == "" {
		return apperror.NewValidation("store key cannot be empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.stores[key]; exists {
		return apperror.NewConflict(fmt.Sprintf("store %q already registered", key)).
			WithDetail("key", key)
	}
	a.stores[key] = h
	return nil
}

// Handle returns the store registered under key.
func (a *Aggregator) Handle(key string) (Handle, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	h, ok := a.stores[key]
	if !ok {
		return nil, apperror.NewNotFound("store", key)
	}
	return h, nil
}

// Keys returns the registered keys in sorted order.
func (a *Aggregator) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.stores))
	for k := range a.stores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Status returns the flags of every store keyed by entity key.
func (a *Aggregator) Status() map[string]Status {
	out := make(map[string]Status)
	for _, key := range a.Keys() {
		if h, err := a.Handle(key); err == nil {
			out[key] = h.Status()
		}
	}
	return out
}

// ResetAll resets every store.
func (a *Aggregator) ResetAll() {
	for _, h := range a.handles() {
		h.Reset()
	}
}

// Wait blocks until no store has a background refresh outstanding.
func (a *Aggregator) Wait() {
	for _, h := range a.handles() {
		h.Wait()
	}
}

func (a *Aggregator) handles() []Handle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Handle, 0, len(a.stores))
	for _, h := range a.stores {
		out = append(out, h)
	}
	return out
}

// Of returns the typed store registered under key.
func Of[T entity.Entity](a *Aggregator, key string) (*Store[T], error) {
	h, err := a.Handle(key)
	if err != nil {
		return nil, err
	}
	typed, ok := h.(*Store[T])
	if !ok {
		return nil, apperror.NewValidation(fmt.Sprintf("store %q has type %T", key, h)).
			WithDetail("key", key)
	}
	return typed, nil
}
