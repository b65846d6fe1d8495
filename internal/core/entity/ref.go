package entity

import (
	"bytes"
	"encoding/json"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/id"
)

// Ref is a reference field: a typed identifier of a related record,
// optionally carrying the embedded record as returned by the server.
// The zero Ref encodes as JSON null.
type Ref[T any] struct {
	ID     id.ID
	Record *T
}

// RefTo builds a reference holding only an identifier.
func RefTo[T any](target id.ID) Ref[T] {
	return Ref[T]{ID: target}
}

// Embed builds a reference carrying the full record.
func Embed[T Entity](record T) Ref[T] {
	return Ref[T]{ID: record.GetID(), Record: &record}
}

// IsSet returns true if the reference points at a record.
func (r Ref[T]) IsSet() bool {
	return !id.IsNil(r.ID)
}

// MarshalJSON encodes the embedded record when present, {"id":N} otherwise.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if !r.IsSet() {
		return []byte("null"), nil
	}
	if r.Record != nil {
		return json.Marshal(r.Record)
	}
	return json.Marshal(struct {
		ID id.ID `json:"id"`
	}{ID: r.ID})
}

// UnmarshalJSON accepts null, a bare id or an embedded object.
func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Ref[T]{}
		return nil
	}
	if len(data) > 0 && data[0] != '{' {
		var bare id.ID
		if err := json.Unmarshal(data, &bare); err != nil {
			return err
		}
		*r = Ref[T]{ID: bare}
		return nil
	}

	var head struct {
		ID id.ID `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	record := new(T)
	if err := json.Unmarshal(data, record); err != nil {
		return err
	}
	*r = Ref[T]{ID: head.ID, Record: record}
	return nil
}

// Resolve looks a reference up in an already-fetched collection.
// It fails with NotFound when the reference is unset or matches nothing.
func Resolve[T Entity](entityName string, ref Ref[T], options []T) (T, error) {
	return Find(entityName, ref.ID, options)
}

// Find returns the record with the given id from the collection.
func Find[T Entity](entityName string, target id.ID, options []T) (T, error) {
	var zero T
	if id.IsNil(target) {
		return zero, apperror.NewNotFound(entityName, target.String())
	}
	for _, option := range options {
		if option.GetID() == target {
			return option, nil
		}
	}
	return zero, apperror.NewNotFound(entityName, target.String())
}
