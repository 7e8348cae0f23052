package odm

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
	"github.com/google/uuid"
)

// Collection binds a Schema to its backing document collection and is the
// only path by which entities are created, updated or destroyed.
type Collection struct {
	schema *Schema
	coll   *docstore.Collection
}

// NewCollection registers the schema's collection with the store.
func NewCollection(ctx context.Context, store *docstore.Store, schema *Schema) (*Collection, error) {
	coll, err := store.Collection(ctx, schema.Collection)
	if err != nil {
		return nil, err
	}
	return &Collection{schema: schema, coll: coll}, nil
}

// Schema returns the collection's schema declaration.
func (c *Collection) Schema() *Schema { return c.schema }

// New returns a fresh transient entity.
func (c *Collection) New() *Entity {
	return &Entity{coll: c, attrs: docstore.Document{}}
}

// NewUp wraps a stored row in a hydrated entity.
func (c *Collection) NewUp(row docstore.Document) *Entity {
	e := &Entity{coll: c}
	e.hydrate(row)
	return e
}

// clearPayload strips fields only the engine or the store may assign.
// Client-supplied identifiers and timestamps are silently discarded.
func clearPayload(payload docstore.Document) docstore.Document {
	cleared := make(docstore.Document, len(payload))
	for field, value := range payload {
		switch field {
		case docstore.FieldID, docstore.FieldCreatedAt, docstore.FieldUpdatedAt:
			continue
		}
		cleared[field] = value
	}
	return cleared
}

// Find returns the single entity matching filter, in first-match-wins order
// when more than one document qualifies. It fails with ErrNotFound when
// nothing matches.
func (c *Collection) Find(ctx context.Context, filter docstore.Filter) (*Entity, error) {
	row, err := c.coll.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, docstore.ErrNoDocument) {
			return nil, ErrNotFound
		}
		return nil, &DatabaseError{Err: err}
	}
	return c.NewUp(row), nil
}

// FindByID is sugar for Find on the identifier field.
func (c *Collection) FindByID(ctx context.Context, id string) (*Entity, error) {
	return c.Find(ctx, docstore.ByID(id))
}

// Create validates the payload, builds a transient entity through the field
// setters, assigns a fresh identifier and persists it. It returns the
// re-hydrated entity carrying the storage-assigned timestamps.
func (c *Collection) Create(ctx context.Context, payload docstore.Document) (*Entity, error) {
	payload = clearPayload(payload)

	if c.schema.Validate != nil {
		if verr := c.schema.Validate(payload); verr != nil {
			return nil, verr
		}
	}

	e := c.New()
	e.Fill(payload)
	e.attrs[docstore.FieldID] = uuid.NewString()

	row, err := c.coll.Insert(ctx, e.attrs)
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}

	e.hydrate(row)
	return e, nil
}

// Update applies the payload as a partial set-update to every document
// matching filter and returns the updated entity via Find.
//
// Field setters run (a password sent here is re-hashed), but validation does
// not: only Create gates on the declared rules.
func (c *Collection) Update(ctx context.Context, filter docstore.Filter, payload docstore.Document) (*Entity, error) {
	payload = clearPayload(payload)

	e := c.New()
	e.Fill(payload)

	// Nothing left to write: the update degenerates to a lookup.
	if len(e.attrs) == 0 {
		return c.Find(ctx, filter)
	}

	affected, err := c.coll.Update(ctx, filter, docstore.Update{Set: e.attrs})
	if err != nil {
		return nil, &DatabaseError{Err: err}
	}
	if affected == 0 {
		return nil, ErrNotFound
	}

	return c.Find(ctx, filter)
}

// Destroy removes every document matching filter, failing with ErrNotFound
// when nothing was removed.
func (c *Collection) Destroy(ctx context.Context, filter docstore.Filter) error {
	removed, err := c.coll.Remove(ctx, filter)
	if err != nil {
		return &DatabaseError{Err: err}
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// Apply issues one atomic partial update (add-to-set, pull, increment, set)
// against matching documents, bypassing the create/update path. Entity domain
// actions use it so concurrent writers never race on a read-modify-write
// cycle. The in-memory entity is not refreshed; re-fetch to observe the
// result.
func (c *Collection) Apply(ctx context.Context, filter docstore.Filter, upd docstore.Update) error {
	if _, err := c.coll.Update(ctx, filter, upd); err != nil {
		return &DatabaseError{Err: err}
	}
	return nil
}

// EnsureIndex declares a single-field lookup (or uniqueness) hint on the
// backing collection.
func (c *Collection) EnsureIndex(ctx context.Context, field string, unique bool) error {
	return c.coll.EnsureIndex(ctx, field, unique)
}
