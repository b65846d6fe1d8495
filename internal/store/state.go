// Package store provides the Entity Store: a per-entity-type state container
// kept consistent with a remote collection through explicit transitions.
package store

// State is the client-side view of one entity collection.
type State[T any] struct {
	// Entities is the collection as last returned by a list read
	Entities []T

	// Entity is the record loaded for detail/edit/delete flows
	Entity T

	// Loading is true while a read is outstanding
	Loading bool

	// Updating is true while a write is outstanding
	Updating bool

	// UpdateSuccess is true once a write completed, until the next write begins
	UpdateSuccess bool

	// ErrorMessage is the last read or write error
	ErrorMessage string
}

// Initial returns the empty state a store starts with and returns to on reset.
func Initial[T any]() State[T] {
	return State[T]{Entities: []T{}}
}

// Clone returns a copy that shares no slice memory with s.
func (s State[T]) Clone() State[T] {
	out := s
	out.Entities = make([]T, len(s.Entities))
	copy(out.Entities, s.Entities)
	return out
}

// EventKind names a state transition.
type EventKind string

const (
	ReadRequested   EventKind = "read_requested"
	ListSucceeded   EventKind = "list_succeeded"
	GetSucceeded    EventKind = "get_succeeded"
	ReadFailed      EventKind = "read_failed"
	WriteRequested  EventKind = "write_requested"
	WriteSucceeded  EventKind = "write_succeeded"
	DeleteSucceeded EventKind = "delete_succeeded"
	WriteFailed     EventKind = "write_failed"
	ResetRequested  EventKind = "reset"
)

// IsWriteCompletion reports the one-shot events that end a write.
func (k EventKind) IsWriteCompletion() bool {
	return k == WriteSucceeded || k == DeleteSucceeded || k == WriteFailed
}

// Event is the input of a transition.
type Event[T any] struct {
	Kind EventKind

	// Operation is the client operation that produced the event (list, get, create...)
	Operation string

	// Entities carries the fetched collection for ListSucceeded
	Entities []T

	// Entity carries the record for GetSucceeded and WriteSucceeded
	Entity T

	// Err carries the failure for ReadFailed and WriteFailed
	Err error

	// Message is the serialized Err
	Message string
}

// Reduce applies ev to s and returns the next state. It is pure: s is not modified.
func Reduce[T any](s State[T], ev Event[T]) State[T] {
	next := s
	switch ev.Kind {
	case ReadRequested:
		next.Loading = true
		next.ErrorMessage = ""
		next.UpdateSuccess = false

	case ListSucceeded:
		next.Loading = false
		next.Entities = make([]T, len(ev.Entities))
		copy(next.Entities, ev.Entities)

	case GetSucceeded:
		next.Loading = false
		next.Entity = ev.Entity

	case ReadFailed:
		next.Loading = false
		next.ErrorMessage = ev.Message

	case WriteRequested:
		next.Updating = true
		next.ErrorMessage = ""
		next.UpdateSuccess = false

	case WriteSucceeded:
		next.Updating = false
		next.Loading = false
		next.UpdateSuccess = true
		next.Entity = ev.Entity

	case DeleteSucceeded:
		var zero T
		next.Updating = false
		next.UpdateSuccess = true
		next.Entity = zero

	case WriteFailed:
		next.Updating = false
		next.ErrorMessage = ev.Message

	case ResetRequested:
		return Initial[T]()
	}
	return next
}
