package store

import (
	"context"
	"sync"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/entity"
	"ochotona/internal/core/id"
	"ochotona/internal/infrastructure/http/client"
	"ochotona/internal/infrastructure/metrics"
	"ochotona/pkg/logger"
)

// Resource is the remote collection a store synchronizes with.
// *client.ResourceClient[T] implements it.
type Resource[T entity.Entity] interface {
	ListAll(ctx context.Context, q client.ListQuery) ([]T, error)
	GetOne(ctx context.Context, entityID id.ID) (T, error)
	Create(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, record T) (T, error)
	Patch(ctx context.Context, record T) (T, error)
	Remove(ctx context.Context, entityID id.ID) (T, error)
}

// Listener observes every applied transition together with the resulting state.
// Listeners run on the goroutine that completed the operation and may be called
// concurrently; they must not block.
type Listener[T any] func(ev Event[T], state State[T])

// Config configures a Store.
type Config[T entity.Entity] struct {
	// Key addresses the store inside an Aggregator (e.g. "storage")
	Key string

	Resource Resource[T]
	Logger   *logger.Logger
	Metrics  *metrics.StoreMetrics
}

// Store holds the state of one entity type and drives it through transitions.
// All mutations go through Reduce; the store is the single owner of its state.
type Store[T entity.Entity] struct {
	key      string
	resource Resource[T]
	hooks    *HookRegistry[T]
	log      *logger.Logger
	metrics  *metrics.StoreMetrics

	mu        sync.Mutex
	state     State[T]
	listeners map[int]Listener[T]
	nextID    int

	// listSeq numbers collection reads; appliedList is the newest one applied
	listSeq     uint64
	appliedList uint64

	// refreshing counts background collection reads issued after writes;
	// idle is signalled on s.mu when it drops to zero
	refreshing int
	idle       *sync.Cond
}

// New creates a store in its initial state.
func New[T entity.Entity](cfg Config[T]) *Store[T] {
	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	s := &Store[T]{
		key:       cfg.Key,
		resource:  cfg.Resource,
		hooks:     NewHookRegistry[T](),
		log:       log.WithComponent("entity-store").WithEntity(cfg.Key),
		metrics:   cfg.Metrics,
		state:     Initial[T](),
		listeners: make(map[int]Listener[T]),
	}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// Key returns the aggregator key of the store.
func (s *Store[T]) Key() string {
	return s.key
}

// Hooks returns the hook registry for external registration.
func (s *Store[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

// Snapshot returns a copy of the current state.
func (s *Store[T]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Subscribe registers a listener and returns the function that removes it.
func (s *Store[T]) Subscribe(fn Listener[T]) func() {
	s.mu.Lock()
	subID := s.nextID
	s.nextID++
	s.listeners[subID] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, subID)
		s.mu.Unlock()
	}
}

// Wait blocks until every background refresh issued by earlier writes has finished.
// It may overlap new writes and returns once no refresh is outstanding.
func (s *Store[T]) Wait() {
	s.mu.Lock()
	for s.refreshing > 0 {
		s.idle.Wait()
	}
	s.mu.Unlock()
}

// Reset returns the store to its initial state. Used before a "create new" form.
func (s *Store[T]) Reset() {
	s.dispatch(Event[T]{Kind: ResetRequested})
}

// Lookup finds a record in the loaded collection; NotFound when absent.
func (s *Store[T]) Lookup(entityID id.ID) (T, error) {
	return entity.Find(s.key, entityID, s.Snapshot().Entities)
}

// FetchAll reads the whole collection and replaces Entities with it.
func (s *Store[T]) FetchAll(ctx context.Context, q client.ListQuery) ([]T, error) {
	seq := s.beginList()
	return s.completeList(ctx, q, seq)
}

// Fetch reads one record and makes it the current Entity.
func (s *Store[T]) Fetch(ctx context.Context, entityID id.ID) (T, error) {
	s.dispatch(Event[T]{Kind: ReadRequested, Operation: client.OpGet})

	item, err := s.resource.GetOne(ctx, entityID)
	if err != nil {
		s.fail(ctx, ReadFailed, client.OpGet, err)
		return item, err
	}
	s.dispatch(Event[T]{Kind: GetSucceeded, Operation: client.OpGet, Entity: item})
	return item, nil
}

// Create submits a new record. On success the collection is refreshed in the background.
func (s *Store[T]) Create(ctx context.Context, record T) (T, error) {
	return s.write(ctx, client.OpCreate, record, s.resource.Create, BeforeCreate, AfterCreate)
}

// Update replaces a record. On success the collection is refreshed in the background.
func (s *Store[T]) Update(ctx context.Context, record T) (T, error) {
	return s.write(ctx, client.OpUpdate, record, s.resource.Update, BeforeUpdate, AfterUpdate)
}

// Patch submits the set fields of a partial record. Partial records are not validated.
func (s *Store[T]) Patch(ctx context.Context, record T) (T, error) {
	return s.write(ctx, client.OpPatch, record, s.resource.Patch, BeforeUpdate, AfterUpdate)
}

// Delete removes a record, clears Entity and refreshes the collection in the background.
func (s *Store[T]) Delete(ctx context.Context, entityID id.ID) error {
	s.dispatch(Event[T]{Kind: WriteRequested, Operation: client.OpDelete})

	var target T
	if current := s.Snapshot().Entity; current.GetID() == entityID {
		target = current
	}
	if err := s.hooks.Run(ctx, BeforeDelete, target); err != nil {
		s.fail(ctx, WriteFailed, client.OpDelete, err)
		return err
	}

	if _, err := s.resource.Remove(ctx, entityID); err != nil {
		s.fail(ctx, WriteFailed, client.OpDelete, err)
		return err
	}

	s.refresh(ctx)
	s.dispatch(Event[T]{Kind: DeleteSucceeded, Operation: client.OpDelete})

	if err := s.hooks.Run(ctx, AfterDelete, target); err != nil {
		s.log.WithContext(ctx).Warnw("after-delete hook failed", "id", entityID, "error", err)
	}
	return nil
}

func (s *Store[T]) write(
	ctx context.Context,
	op string,
	record T,
	send func(context.Context, T) (T, error),
	before, after HookEvent,
) (T, error) {
	s.dispatch(Event[T]{Kind: WriteRequested, Operation: op})

	if op != client.OpPatch {
		if err := record.Validate(ctx); err != nil {
			if !apperror.IsAppError(err) {
				err = apperror.NewValidation(err.Error())
			}
			s.fail(ctx, WriteFailed, op, err)
			return record, err
		}
	}
	if err := s.hooks.Run(ctx, before, record); err != nil {
		s.fail(ctx, WriteFailed, op, err)
		return record, err
	}

	result, err := send(ctx, record)
	if err != nil {
		s.fail(ctx, WriteFailed, op, err)
		return result, err
	}

	// The refresh is requested before the write completes, as a dispatched list read would be.
	s.refresh(ctx)
	s.dispatch(Event[T]{Kind: WriteSucceeded, Operation: op, Entity: result})

	if err := s.hooks.Run(ctx, after, result); err != nil {
		s.log.WithContext(ctx).Warnw("after-write hook failed", "operation", op, "error", err)
	}
	return result, nil
}

// refresh issues a collection read that outlives the caller's interest in the write.
func (s *Store[T]) refresh(ctx context.Context) {
	s.mu.Lock()
	s.refreshing++
	s.mu.Unlock()
	seq := s.beginList()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.refreshDone()
		_, _ = s.completeList(bg, client.ListQuery{}, seq)
	}()
}

func (s *Store[T]) refreshDone() {
	s.mu.Lock()
	s.refreshing--
	if s.refreshing == 0 {
		s.idle.Broadcast()
	}
	s.mu.Unlock()
}

func (s *Store[T]) beginList() uint64 {
	s.mu.Lock()
	s.listSeq++
	seq := s.listSeq
	s.mu.Unlock()

	s.dispatch(Event[T]{Kind: ReadRequested, Operation: client.OpList})
	return seq
}

// completeList applies the outcome of read seq unless a newer read already landed.
func (s *Store[T]) completeList(ctx context.Context, q client.ListQuery, seq uint64) ([]T, error) {
	newest := func() bool {
		if seq < s.appliedList {
			return false
		}
		s.appliedList = seq
		return true
	}

	items, err := s.resource.ListAll(ctx, q)
	if err != nil {
		msg := apperror.Message(err)
		s.log.WithContext(ctx).Warnw("entity operation failed", "operation", client.OpList, "error", msg)
		s.apply(Event[T]{Kind: ReadFailed, Operation: client.OpList, Err: err, Message: msg}, newest)
		return nil, err
	}
	if !s.apply(Event[T]{Kind: ListSucceeded, Operation: client.OpList, Entities: items}, newest) {
		s.log.WithContext(ctx).Debugw("stale collection read dropped", "seq", seq)
	}
	return items, nil
}

func (s *Store[T]) fail(ctx context.Context, kind EventKind, op string, err error) {
	msg := apperror.Message(err)
	s.log.WithContext(ctx).Warnw("entity operation failed", "operation", op, "error", msg)
	s.dispatch(Event[T]{Kind: kind, Operation: op, Err: err, Message: msg})
}

func (s *Store[T]) dispatch(ev Event[T]) {
	s.apply(ev, nil)
}

// apply reduces ev when accept (checked under the lock) allows it,
// then notifies listeners outside the lock.
func (s *Store[T]) apply(ev Event[T], accept func() bool) bool {
	s.mu.Lock()
	if accept != nil && !accept() {
		s.mu.Unlock()
		return false
	}
	s.state = Reduce(s.state, ev)
	snapshot := s.state.Clone()
	listeners := make([]Listener[T], 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	s.metrics.Transition(s.key, string(ev.Kind))
	for _, fn := range listeners {
		fn(ev, snapshot)
	}
	return true
}
