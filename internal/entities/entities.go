// Package entities wires one Resource Client and Entity Store per inventory entity
// and registers the stores in an Aggregator.
package entities

import (
	"net/http"

	"ochotona/internal/core/entity"
	"ochotona/internal/domain/inventory"
	"ochotona/internal/infrastructure/http/client"
	"ochotona/internal/infrastructure/metrics"
	"ochotona/internal/store"
	"ochotona/pkg/logger"
)

// Options configures the clients behind the stores.
type Options struct {
	// BaseURL is the server root; requests go to {BaseURL}/api/{path}
	BaseURL string

	HTTPClient    *http.Client
	Logger        *logger.Logger
	ClientMetrics *metrics.ClientMetrics
	StoreMetrics  *metrics.StoreMetrics
}

// Stores is the aggregated state of every inventory entity, with typed access to each store.
type Stores struct {
	*store.Aggregator

	Products      *store.Store[inventory.Products]
	Storage       *store.Store[inventory.Storage]
	StorageRoom   *store.Store[inventory.StorageRoom]
	StockPosition *store.Store[inventory.StockPosition]
}

// NewAggregator builds the four entity stores and registers them under their keys.
func NewAggregator(opts Options) (*Stores, error) {
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	s := &Stores{
		Aggregator:    store.NewAggregator(),
		Products:      newStore[inventory.Products](opts, inventory.EntityProducts, inventory.PathProducts),
		Storage:       newStore[inventory.Storage](opts, inventory.EntityStorage, inventory.PathStorages),
		StorageRoom:   newStore[inventory.StorageRoom](opts, inventory.EntityStorageRoom, inventory.PathStorageRooms),
		StockPosition: newStore[inventory.StockPosition](opts, inventory.EntityStockPosition, inventory.PathStockPositions),
	}

	for _, h := range []store.Handle{s.Products, s.Storage, s.StorageRoom, s.StockPosition} {
		if err := s.Register(h); err != nil {
			return nil, err
		}
	}
	opts.Logger.Debugw("entity stores registered", "keys", s.Keys())
	return s, nil
}

func newStore[T entity.Entity](opts Options, key, path string) *store.Store[T] {
	return store.New[T](store.Config[T]{
		Key: key,
		Resource: client.New[T](client.Config{
			BaseURL:    opts.BaseURL,
			Path:       path,
			EntityName: key,
			HTTPClient: opts.HTTPClient,
			Logger:     opts.Logger,
			Metrics:    opts.ClientMetrics,
		}),
		Logger:  opts.Logger,
		Metrics: opts.StoreMetrics,
	})
}
