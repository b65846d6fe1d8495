// Package fakeapi is an in-memory implementation of the /api REST surface
// used by tests and by the mock-api command. It stores schema-less JSON documents.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/id"
)

// Document is one stored record.
type Document map[string]any

// ResourceConfig describes one collection.
type ResourceConfig struct {
	// Name is used in error messages (e.g. storage)
	Name string

	// Path is the collection segment under /api (e.g. storages)
	Path string

	// Required lists fields that must be present and non-empty on create and update
	Required []string

	// Refs maps reference fields to the path of the referenced collection
	Refs map[string]string

	// Inverse maps read-only list fields to the collection and reference field pointing back here
	Inverse map[string]InverseRef
}

// InverseRef names the reference field of another collection that points at this one.
type InverseRef struct {
	Path  string
	Field string
}

// Collection holds the documents of one resource ordered by id.
type Collection struct {
	cfg ResourceConfig

	mu     sync.RWMutex
	docs   map[id.ID]Document
	nextID id.ID
}

// NewCollection creates an empty collection.
func NewCollection(cfg ResourceConfig) *Collection {
	return &Collection{
		cfg:    cfg,
		docs:   make(map[id.ID]Document),
		nextID: 1,
	}
}

// Config returns the collection configuration.
func (c *Collection) Config() ResourceConfig {
	return c.cfg
}

// List returns copies of all documents ordered by id.
func (c *Collection) List() []Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]id.ID, 0, len(c.docs))
	for k := range c.docs {
		ids = append(ids, k)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Document, 0, len(ids))
	for _, k := range ids {
		out = append(out, c.docs[k].clone())
	}
	return out
}

// Get returns a copy of one document.
func (c *Collection) Get(docID id.ID) (Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound(c.cfg.Name, docID.String())
	}
	return doc.clone(), nil
}

// Exists reports whether a document with the id is stored.
func (c *Collection) Exists(docID id.ID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.docs[docID]
	return ok
}

// Insert stores a new document and assigns its id.
func (c *Collection) Insert(doc Document) (Document, error) {
	if _, has := doc.ID(); has {
		return nil, badRequest(fmt.Sprintf("A new %s cannot already have an ID", c.cfg.Name), "idexists")
	}
	if err := c.validate(doc); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	newID := c.nextID
	c.nextID++
	stored := doc.clone()
	stored["id"] = int64(newID)
	c.docs[newID] = stored
	return stored.clone(), nil
}

// Replace overwrites the document at pathID with doc (PUT semantics).
func (c *Collection) Replace(pathID id.ID, doc Document) (Document, error) {
	if err := c.checkID(pathID, doc); err != nil {
		return nil, err
	}
	if err := c.validate(doc); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[pathID]; !ok {
		return nil, badRequest("Entity not found", "idnotfound")
	}
	stored := doc.clone()
	stored["id"] = int64(pathID)
	c.docs[pathID] = stored
	return stored.clone(), nil
}

// Merge copies the non-null fields of doc onto the stored document (PATCH semantics).
func (c *Collection) Merge(pathID id.ID, doc Document) (Document, error) {
	if err := c.checkID(pathID, doc); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.docs[pathID]
	if !ok {
		return nil, badRequest("Entity not found", "idnotfound")
	}
	merged := existing.clone()
	for key, value := range doc {
		if key == "id" || value == nil {
			continue
		}
		merged[key] = value
	}
	c.docs[pathID] = merged
	return merged.clone(), nil
}

// Delete removes the document. Deleting a missing id is not an error.
func (c *Collection) Delete(docID id.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, docID)
}

func (c *Collection) checkID(pathID id.ID, doc Document) error {
	bodyID, has := doc.ID()
	if !has {
		return badRequest("Invalid id", "idnull")
	}
	if bodyID != pathID {
		return badRequest("Invalid ID", "idinvalid")
	}
	return nil
}

func (c *Collection) validate(doc Document) error {
	for _, field := range c.cfg.Required {
		value, ok := doc[field]
		if !ok || value == nil {
			return apperror.NewValidation(field+" is required").WithDetail("field", field)
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			return apperror.NewValidation(field+" is required").WithDetail("field", field)
		}
	}
	return nil
}

// ID returns the document id when present and positive.
func (d Document) ID() (id.ID, bool) {
	return refID(d["id"])
}

func (d Document) clone() Document {
	data, err := json.Marshal(d)
	if err != nil {
		out := make(Document, len(d))
		for k, v := range d {
			out[k] = v
		}
		return out
	}
	var out Document
	_ = json.Unmarshal(data, &out)
	return out
}

// refID extracts an id from a bare number, numeric string or {"id": ...} object.
func refID(v any) (id.ID, bool) {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return id.ID(t), true
		}
	case int64:
		if t > 0 {
			return id.ID(t), true
		}
	case int:
		if t > 0 {
			return id.ID(t), true
		}
	case json.Number:
		if n, err := t.Int64(); err == nil && n > 0 {
			return id.ID(n), true
		}
	case string:
		if parsed, err := id.Parse(t); err == nil {
			return parsed, true
		}
	case map[string]any:
		return refID(t["id"])
	case Document:
		return refID(t["id"])
	}
	return 0, false
}

func badRequest(message, key string) *apperror.AppError {
	return apperror.NewValidation(message).WithDetail("errorKey", "error."+key)
}
