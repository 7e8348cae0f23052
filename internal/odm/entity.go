package odm

import (
	"context"
	"sort"

	"github.com/dmitrijs2005/instafeed/internal/docstore"
)

// Entity is the in-memory form of one document. It is either transient
// (filled from a payload, not yet persisted) or hydrated (loaded from the
// store). All field access goes through Get/Set so the schema's transform
// tables always apply.
type Entity struct {
	coll *Collection

	attrs     docstore.Document
	original  docstore.Document
	persisted bool
}

// ID returns the entity's identifier, or "" for a transient entity that has
// not been assigned one yet.
func (e *Entity) ID() string {
	id, _ := e.attrs[docstore.FieldID].(string)
	return id
}

// Persisted reports whether the entity corresponds to a stored document.
func (e *Entity) Persisted() bool { return e.persisted }

// Get returns the raw attribute value. Getter transforms apply on projection,
// not here.
func (e *Entity) Get(field string) any {
	return e.attrs[field]
}

// Set stores an attribute value, routing it through the field's registered
// setter if one exists.
func (e *Entity) Set(field string, value any) {
	if setter := e.coll.schema.setterFor(field); setter != nil {
		value = setter(value)
	}
	e.attrs[field] = value
}

// Fill resets the attributes and merges the payload in through Set.
func (e *Entity) Fill(payload docstore.Document) {
	e.attrs = docstore.Document{}
	e.Merge(payload)
}

// Merge applies each payload field through Set, keeping existing attributes.
func (e *Entity) Merge(payload docstore.Document) {
	for field, value := range payload {
		e.Set(field, value)
	}
}

// hydrate replaces the entity's state with a stored row and snapshots it.
func (e *Entity) hydrate(row docstore.Document) {
	e.persisted = true
	e.attrs = row
	e.original = make(docstore.Document, len(row))
	for k, v := range row {
		e.original[k] = v
	}
}

// Project evaluates the externally visible form of the entity:
// stored fields pass through their getters (or date casting when flagged),
// computed fields are appended with access to the projection built so far,
// and finally the visible/hidden declarations filter the result.
func (e *Entity) Project() docstore.Document {
	schema := e.coll.schema
	out := make(docstore.Document, len(e.attrs))

	for field, value := range e.attrs {
		if getter := schema.getterFor(field); getter != nil {
			out[field] = getter(value)
			continue
		}
		if schema.isDate(field) && value != nil {
			out[field] = castDate(value)
			continue
		}
		out[field] = value
	}

	// Computed fields run in name order so projections are deterministic even
	// when one derived value reads another stored one.
	computed := make([]string, 0, len(schema.Computed))
	for field := range schema.Computed {
		computed = append(computed, field)
	}
	sort.Strings(computed)
	for _, field := range computed {
		out[field] = schema.Computed[field](out)
	}

	if schema.Visible != nil {
		picked := make(docstore.Document, len(schema.Visible))
		for _, field := range schema.Visible {
			if v, ok := out[field]; ok {
				picked[field] = v
			}
		}
		return picked
	}

	for _, field := range schema.Hidden {
		delete(out, field)
	}
	return out
}

// Remove destroys the stored document backing this entity. Any later
// operation against its identifier fails with ErrNotFound.
func (e *Entity) Remove(ctx context.Context) error {
	return e.coll.Destroy(ctx, docstore.ByID(e.ID()))
}
