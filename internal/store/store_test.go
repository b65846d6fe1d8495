package store

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/entity"
	"ochotona/internal/core/id"
	"ochotona/internal/domain/inventory"
	"ochotona/internal/infrastructure/http/client"
	"ochotona/internal/infrastructure/metrics"
	"ochotona/pkg/logger"
)

// memoryProducts is an in-process Resource with programmable failures.
type memoryProducts struct {
	mu       sync.Mutex
	items    []inventory.Products
	nextID   id.ID
	listErr  error
	writeErr error
	calls    []string
}

func (m *memoryProducts) record(op string) {
	m.calls = append(m.calls, op)
}

func (m *memoryProducts) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *memoryProducts) ListAll(ctx context.Context, q client.ListQuery) ([]inventory.Products, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(client.OpList)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]inventory.Products{}, m.items...), nil
}

func (m *memoryProducts) GetOne(ctx context.Context, entityID id.ID) (inventory.Products, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(client.OpGet)
	return entity.Find(inventory.EntityProducts, entityID, m.items)
}

func (m *memoryProducts) Create(ctx context.Context, p inventory.Products) (inventory.Products, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(client.OpCreate)
	if m.writeErr != nil {
		return inventory.Products{}, m.writeErr
	}
	m.nextID++
	p.ID = m.nextID
	m.items = append(m.items, p)
	return p, nil
}

func (m *memoryProducts) Update(ctx context.Context, p inventory.Products) (inventory.Products, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(client.OpUpdate)
	if m.writeErr != nil {
		return inventory.Products{}, m.writeErr
	}
	for i := range m.items {
		if m.items[i].ID == p.ID {
			m.items[i] = p
			return p, nil
		}
	}
	return inventory.Products{}, apperror.NewNotFound(inventory.EntityProducts, p.ID)
}

func (m *memoryProducts) Patch(ctx context.Context, p inventory.Products) (inventory.Products, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(client.OpPatch)
	if m.writeErr != nil {
		return inventory.Products{}, m.writeErr
	}
	for i := range m.items {
		if m.items[i].ID == p.ID {
			if p.Name != "" {
				m.items[i].Name = p.Name
			}
			if p.EAN != nil {
				m.items[i].EAN = p.EAN
			}
			return m.items[i], nil
		}
	}
	return inventory.Products{}, apperror.NewNotFound(inventory.EntityProducts, p.ID)
}

func (m *memoryProducts) Remove(ctx context.Context, entityID id.ID) (inventory.Products, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(client.OpDelete)
	if m.writeErr != nil {
		return inventory.Products{}, m.writeErr
	}
	kept := m.items[:0]
	for _, p := range m.items {
		if p.ID != entityID {
			kept = append(kept, p)
		}
	}
	m.items = kept
	return inventory.Products{}, nil
}

type eventLog struct {
	mu     sync.Mutex
	events []EventKind
}

func (l *eventLog) listener(ev Event[inventory.Products], _ State[inventory.Products]) {
	l.mu.Lock()
	l.events = append(l.events, ev.Kind)
	l.mu.Unlock()
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]EventKind(nil), l.events...)
}

func (l *eventLog) completions() int {
	n := 0
	for _, k := range l.kinds() {
		if k.IsWriteCompletion() {
			n++
		}
	}
	return n
}

func newProductsStore(t *testing.T, res *memoryProducts) (*Store[inventory.Products], *eventLog) {
	t.Helper()
	s := New[inventory.Products](Config[inventory.Products]{
		Key:      inventory.EntityProducts,
		Resource: res,
		Logger:   logger.Nop(),
	})
	log := &eventLog{}
	unsubscribe := s.Subscribe(log.listener)
	t.Cleanup(unsubscribe)
	return s, log
}

func TestStore_InitialState(t *testing.T) {
	s, _ := newProductsStore(t, &memoryProducts{})

	st := s.Snapshot()
	assert.Equal(t, Initial[inventory.Products](), st)
	assert.NotNil(t, st.Entities)
	assert.Equal(t, inventory.EntityProducts, s.Key())
}

func TestStore_FetchAll(t *testing.T) {
	res := &memoryProducts{items: []inventory.Products{{Base: entity.Base{ID: 1}, Name: "Bolt"}}}
	s, events := newProductsStore(t, res)

	items, err := s.FetchAll(context.Background(), client.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.Len(t, st.Entities, 1)
	assert.Equal(t, []EventKind{ReadRequested, ListSucceeded}, events.kinds())
}

func TestStore_FailedReadKeepsData(t *testing.T) {
	res := &memoryProducts{items: []inventory.Products{{Base: entity.Base{ID: 1}, Name: "Bolt"}}}
	s, _ := newProductsStore(t, res)
	_, err := s.FetchAll(context.Background(), client.ListQuery{})
	require.NoError(t, err)

	res.listErr = apperror.FromStatus(http.StatusInternalServerError, "database down")
	_, err = s.FetchAll(context.Background(), client.ListQuery{})
	require.Error(t, err)

	st := s.Snapshot()
	assert.False(t, st.Loading)
	assert.Equal(t, "500: database down", st.ErrorMessage)
	assert.Len(t, st.Entities, 1)
}

func TestStore_FetchMissing(t *testing.T) {
	s, _ := newProductsStore(t, &memoryProducts{})

	_, err := s.Fetch(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, "404: products not found", s.Snapshot().ErrorMessage)
}

func TestStore_CreateRefreshesCollection(t *testing.T) {
	res := &memoryProducts{}
	s, events := newProductsStore(t, res)

	created, err := s.Create(context.Background(), inventory.NewProducts("Bolt"))
	require.NoError(t, err)
	assert.Equal(t, id.ID(1), created.ID)
	s.Wait()

	st := s.Snapshot()
	assert.True(t, st.UpdateSuccess)
	assert.False(t, st.Updating)
	assert.False(t, st.Loading)
	assert.Equal(t, "Bolt", st.Entity.Name)
	require.Len(t, st.Entities, 1)
	assert.Equal(t, id.ID(1), st.Entities[0].ID)

	kinds := events.kinds()
	require.Len(t, kinds, 4)
	assert.Equal(t, []EventKind{WriteRequested, ReadRequested}, kinds[:2])
	assert.ElementsMatch(t, []EventKind{WriteSucceeded, ListSucceeded}, kinds[2:])
	assert.Equal(t, 1, events.completions())
	assert.Equal(t, []string{client.OpCreate, client.OpList}, res.Calls())
}

func TestStore_CreateValidationFailsLocally(t *testing.T) {
	res := &memoryProducts{}
	s, events := newProductsStore(t, res)

	_, err := s.Create(context.Background(), inventory.NewProducts(""))
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	st := s.Snapshot()
	assert.Equal(t, "name is required", st.ErrorMessage)
	assert.False(t, st.Updating)
	assert.False(t, st.UpdateSuccess)
	assert.Empty(t, res.Calls())
	assert.Equal(t, []EventKind{WriteRequested, WriteFailed}, events.kinds())
}

func TestStore_WriteFailureSkipsRefresh(t *testing.T) {
	res := &memoryProducts{writeErr: apperror.FromStatus(http.StatusBadRequest, "A new products cannot already have an ID")}
	s, events := newProductsStore(t, res)

	_, err := s.Create(context.Background(), inventory.NewProducts("Bolt"))
	require.Error(t, err)
	s.Wait()

	st := s.Snapshot()
	assert.Equal(t, "400: A new products cannot already have an ID", st.ErrorMessage)
	assert.False(t, st.UpdateSuccess)
	assert.Equal(t, []string{client.OpCreate}, res.Calls())
	assert.Equal(t, 1, events.completions())
}

func TestStore_UpdateAndPatch(t *testing.T) {
	res := &memoryProducts{items: []inventory.Products{{Base: entity.Base{ID: 1}, Name: "Bolt"}}, nextID: 1}
	s, _ := newProductsStore(t, res)

	updated, err := s.Update(context.Background(), inventory.Products{Base: entity.Base{ID: 1}, Name: "Nut"})
	require.NoError(t, err)
	assert.Equal(t, "Nut", updated.Name)

	// partial records are not validated
	patched, err := s.Patch(context.Background(), inventory.Products{Base: entity.Base{ID: 1}, EAN: inventory.StringPtr("400")})
	require.NoError(t, err)
	assert.Equal(t, "Nut", patched.Name)
	s.Wait()

	st := s.Snapshot()
	assert.True(t, st.UpdateSuccess)
	assert.Equal(t, "400", *st.Entity.EAN)
	require.Len(t, st.Entities, 1)
	assert.Equal(t, "400", *st.Entities[0].EAN)
}

func TestStore_DeleteClearsEntity(t *testing.T) {
	res := &memoryProducts{items: []inventory.Products{
		{Base: entity.Base{ID: 1}, Name: "Bolt"},
		{Base: entity.Base{ID: 2}, Name: "Nut"},
	}}
	s, events := newProductsStore(t, res)

	_, err := s.Fetch(context.Background(), 1)
	require.NoError(t, err)

	var deleted []string
	s.Hooks().OnBeforeDelete(func(ctx context.Context, p inventory.Products) error {
		deleted = append(deleted, p.Name)
		return nil
	})

	require.NoError(t, s.Delete(context.Background(), 1))
	s.Wait()

	st := s.Snapshot()
	assert.True(t, st.UpdateSuccess)
	assert.True(t, id.IsNil(st.Entity.ID))
	require.Len(t, st.Entities, 1)
	assert.Equal(t, id.ID(2), st.Entities[0].ID)
	assert.Equal(t, []string{"Bolt"}, deleted)
	assert.Contains(t, events.kinds(), DeleteSucceeded)
	assert.Equal(t, 1, events.completions())
}

func TestStore_Hooks(t *testing.T) {
	res := &memoryProducts{}
	s, _ := newProductsStore(t, res)

	s.Hooks().OnBeforeCreate(func(ctx context.Context, p inventory.Products) error {
		if p.Name == "forbidden" {
			return apperror.NewValidation("name is reserved")
		}
		return nil
	})
	var after []id.ID
	s.Hooks().OnAfterCreate(func(ctx context.Context, p inventory.Products) error {
		after = append(after, p.ID)
		return errors.New("ignored")
	})

	_, err := s.Create(context.Background(), inventory.NewProducts("forbidden"))
	require.Error(t, err)
	assert.Equal(t, "name is reserved", s.Snapshot().ErrorMessage)
	assert.Empty(t, res.Calls())

	_, err = s.Create(context.Background(), inventory.NewProducts("Bolt"))
	require.NoError(t, err)
	s.Wait()
	assert.Equal(t, []id.ID{1}, after)
	assert.True(t, s.Snapshot().UpdateSuccess)
}

func TestStore_ResetAndLookup(t *testing.T) {
	res := &memoryProducts{items: []inventory.Products{{Base: entity.Base{ID: 5}, Name: "Bolt"}}}
	s, _ := newProductsStore(t, res)
	_, err := s.FetchAll(context.Background(), client.ListQuery{})
	require.NoError(t, err)

	found, err := s.Lookup(5)
	require.NoError(t, err)
	assert.Equal(t, "Bolt", found.Name)

	_, err = s.Lookup(6)
	assert.True(t, apperror.IsNotFound(err))

	s.Reset()
	s.Reset()
	assert.Equal(t, Initial[inventory.Products](), s.Snapshot())
}

func TestStore_UnsubscribeAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewStoreMetrics(reg)
	require.NoError(t, err)

	s := New[inventory.Products](Config[inventory.Products]{
		Key:      inventory.EntityProducts,
		Resource: &memoryProducts{},
		Logger:   logger.Nop(),
		Metrics:  m,
	})

	calls := 0
	unsubscribe := s.Subscribe(func(Event[inventory.Products], State[inventory.Products]) { calls++ })
	s.Reset()
	unsubscribe()
	s.Reset()

	assert.Equal(t, 1, calls)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Transitions().WithLabelValues(inventory.EntityProducts, string(ResetRequested))))
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	res := &memoryProducts{items: []inventory.Products{{Base: entity.Base{ID: 1}, Name: "Bolt"}}}
	s, _ := newProductsStore(t, res)
	_, err := s.FetchAll(context.Background(), client.ListQuery{})
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Entities[0].Name = "changed"
	assert.Equal(t, "Bolt", s.Snapshot().Entities[0].Name)
}

// gatedList holds the first ListAll call until release is closed.
type gatedList struct {
	*memoryProducts
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedList) ListAll(ctx context.Context, q client.ListQuery) ([]inventory.Products, error) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		stale := []inventory.Products{{Base: entity.Base{ID: 1}, Name: "stale"}}
		close(g.entered)
		<-g.release
		return stale, nil
	}
	return g.memoryProducts.ListAll(ctx, q)
}

func TestStore_StaleListReadIsDropped(t *testing.T) {
	res := &gatedList{
		memoryProducts: &memoryProducts{items: []inventory.Products{{Base: entity.Base{ID: 1}, Name: "fresh"}}},
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	s := New[inventory.Products](Config[inventory.Products]{
		Key:      inventory.EntityProducts,
		Resource: res,
		Logger:   logger.Nop(),
	})

	slow := make(chan []inventory.Products)
	go func() {
		items, _ := s.FetchAll(context.Background(), client.ListQuery{})
		slow <- items
	}()
	<-res.entered

	_, err := s.FetchAll(context.Background(), client.ListQuery{})
	require.NoError(t, err)

	close(res.release)
	items := <-slow
	require.Len(t, items, 1)
	assert.Equal(t, "stale", items[0].Name)

	st := s.Snapshot()
	require.Len(t, st.Entities, 1)
	assert.Equal(t, "fresh", st.Entities[0].Name)
}

func TestStore_WaitOverlapsWrites(t *testing.T) {
	res := &memoryProducts{}
	s, _ := newProductsStore(t, res)

	stop := make(chan struct{})
	waiting := make(chan struct{})
	go func() {
		defer close(waiting)
		for {
			select {
			case <-stop:
				return
			default:
				s.Wait()
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Create(context.Background(), inventory.Products{Name: "Bolt"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	close(stop)
	<-waiting

	s.Wait()
	assert.Len(t, s.Snapshot().Entities, 10)
}
